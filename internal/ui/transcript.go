package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/arin/gallery-chat/internal/conversation"
)

// Indicator is a busy animation such as *Spinner.
type Indicator interface {
	Start()
	Stop()
}

// Transcript prints a conversation to a terminal as it grows. Each visible
// entry is written once and the trailing entry is extended in place as its
// text grows. Empty AI entries are never printed.
type Transcript struct {
	w        io.Writer
	prefix   string
	echoUser bool
	thinking Indicator

	mu       sync.Mutex
	entries  int    // visible entries started
	written  string // text already printed for the last started entry
	open     bool   // last started entry still takes output
	spinning bool
}

// TranscriptOption configures a Transcript.
type TranscriptOption func(*Transcript)

// WithPrefix indents AI text with prefix.
func WithPrefix(prefix string) TranscriptOption {
	return func(t *Transcript) { t.prefix = prefix }
}

// WithUserEcho prints user entries too. Interactive sessions leave it off
// since the terminal already shows what was typed.
func WithUserEcho() TranscriptOption {
	return func(t *Transcript) { t.echoUser = true }
}

// WithThinking shows ind while an answer is pending.
func WithThinking(ind Indicator) TranscriptOption {
	return func(t *Transcript) { t.thinking = ind }
}

// NewTranscript creates a transcript writing to w.
func NewTranscript(w io.Writer, opts ...TranscriptOption) *Transcript {
	t := &Transcript{w: w}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render brings the terminal up to date with msgs. busy reports whether an
// answer is still streaming.
func (t *Transcript) Render(msgs []conversation.Message, busy bool) {
	visible := conversation.Visible(msgs)

	t.mu.Lock()
	defer t.mu.Unlock()

	waiting := busy && len(visible) > 0 && visible[len(visible)-1].Author == conversation.RoleUser
	if !waiting {
		t.stopThinking()
	}

	if t.open && t.entries > 0 && t.entries <= len(visible) {
		t.extend(visible[t.entries-1])
	}
	for t.entries < len(visible) {
		t.closeEntry()
		t.start(visible[t.entries])
		t.entries++
	}

	if waiting {
		t.startThinking()
	}
}

// End finishes the open entry.
func (t *Transcript) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopThinking()
	t.closeEntry()
}

func (t *Transcript) start(m conversation.Message) {
	t.written = m.Text
	if m.Author == conversation.RoleUser && !t.echoUser {
		t.open = false
		return
	}
	t.open = true
	if m.Author == conversation.RoleUser {
		color.New(color.FgGreen).Fprintf(t.w, "> %s", m.Text)
		return
	}
	fmt.Fprint(t.w, t.prefix+t.indent(m.Text))
}

func (t *Transcript) extend(m conversation.Message) {
	if m.Text == t.written {
		return
	}
	if rest, ok := strings.CutPrefix(m.Text, t.written); ok {
		fmt.Fprint(t.w, t.indent(rest))
		t.written = m.Text
		return
	}
	// The entry was replaced rather than extended.
	fmt.Fprintln(t.w)
	color.New(color.FgYellow).Fprint(t.w, t.prefix+t.indent(m.Text))
	t.written = m.Text
}

func (t *Transcript) closeEntry() {
	if !t.open {
		return
	}
	if !strings.HasSuffix(t.written, "\n") {
		fmt.Fprintln(t.w)
	}
	fmt.Fprintln(t.w)
	t.open = false
}

// indent keeps multi-line answers under the prefix.
func (t *Transcript) indent(s string) string {
	if t.prefix == "" {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\n"+t.prefix)
}

func (t *Transcript) startThinking() {
	if t.thinking == nil || t.spinning {
		return
	}
	t.thinking.Start()
	t.spinning = true
}

func (t *Transcript) stopThinking() {
	if !t.spinning {
		return
	}
	t.thinking.Stop()
	t.spinning = false
}
