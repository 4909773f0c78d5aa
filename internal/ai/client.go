// Package ai talks to hosted and local language models and exposes a chat
// session that streams each answer as a sequence of fragments.
package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// maxHistory caps how many prior messages are replayed to the model.
const maxHistory = 20

// ErrEmptyPrompt is returned when Open is called with blank text.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// Chat is a multi-turn session with a model. It keeps the system
// instruction and the turns that completed successfully; a failed or
// abandoned turn leaves the history untouched.
type Chat struct {
	provider Provider
	system   string

	mu      sync.Mutex
	history []Message
}

// NewChat starts a chat session. An empty systemInstruction means none.
func NewChat(p Provider, systemInstruction string) *Chat {
	return &Chat{provider: p, system: systemInstruction}
}

// Open sends text as the next user turn and returns the answer as a lazy
// fragment stream. The stream ends when the channel closes; a fragment with
// a non-nil Err is the last one sent. Cancelling ctx stops the stream.
func (c *Chat) Open(ctx context.Context, text string) (<-chan Fragment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPrompt
	}

	src := streamOrFallback(ctx, c.provider, c.buildMessages(text))

	out := make(chan Fragment)
	go func() {
		defer close(out)
		var full strings.Builder
		for f := range src {
			if !send(ctx, out, f) {
				return
			}
			if f.Err != nil {
				return
			}
			full.WriteString(f.Content)
		}
		if ctx.Err() != nil {
			return
		}
		c.commit(text, full.String())
	}()
	return out, nil
}

// History returns a copy of the completed turns.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Reset forgets every completed turn.
func (c *Chat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// buildMessages assembles system instruction, trimmed history and the new turn.
func (c *Chat) buildMessages(text string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var messages []Message
	if c.system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: c.system})
	}

	// Keep only the last maxHistory messages to stay within the context window.
	trimmed := c.history
	if len(trimmed) > maxHistory {
		trimmed = trimmed[len(trimmed)-maxHistory:]
	}
	messages = append(messages, trimmed...)

	return append(messages, Message{Role: RoleUser, Content: text})
}

func (c *Chat) commit(prompt, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history,
		Message{Role: RoleUser, Content: prompt},
		Message{Role: RoleAssistant, Content: answer},
	)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}
