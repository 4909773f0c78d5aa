package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdownStyle is the glamour style used for answers.
const markdownStyle = "dark"

// rendererPool keeps one glamour renderer pool per wrap width.
// glamour.TermRenderer is not safe for concurrent Render calls.
type rendererPool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

var renderers = &rendererPool{pools: make(map[int]*sync.Pool)}

func (p *rendererPool) pool(width int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok := p.pools[width]; ok {
		return pool
	}
	pool := &sync.Pool{
		New: func() any {
			r, err := glamour.NewTermRenderer(
				glamour.WithStylePath(markdownStyle),
				glamour.WithWordWrap(width),
				glamour.WithPreservedNewLines(),
				glamour.WithEmoji(),
			)
			if err != nil {
				return nil
			}
			return r
		},
	}
	p.pools[width] = pool
	return pool
}

// renderMarkdown renders an answer for a bubble of the given width. Text
// that fails to render is returned unchanged.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	pool := renderers.pool(width)
	r, ok := pool.Get().(*glamour.TermRenderer)
	if !ok || r == nil {
		return content
	}
	defer pool.Put(r)

	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
