package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arin/gallery-chat/internal/conversation"
)

// Bridge forwards session changes into the TUI event loop. Pass OnChange
// as chat.Options.OnChange. Each change is handed over before the session
// continues, so no fragment is skipped.
type Bridge struct {
	updates chan []conversation.Message
	done    chan struct{}
	once    sync.Once
}

// NewBridge creates an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		updates: make(chan []conversation.Message),
		done:    make(chan struct{}),
	}
}

// OnChange delivers msgs to the TUI, or drops them once the bridge is closed.
func (b *Bridge) OnChange(msgs []conversation.Message) {
	select {
	case b.updates <- msgs:
	case <-b.done:
	}
}

// Close releases any sender blocked in OnChange.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msgs := <-b.updates:
			return snapshotMsg(msgs)
		case <-b.done:
			return nil
		}
	}
}
