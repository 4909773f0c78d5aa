package conversation

import (
	"errors"
	"sync"
)

// ErrNotAIEntry is returned when a text update targets anything other than
// a trailing AI entry.
var ErrNotAIEntry = errors.New("last entry is not an AI message")

// Log is an ordered, append-only list of messages. Entries are never
// reordered or removed; the only in-place changes are text updates to the
// trailing AI entry and the error substitution of that entry.
//
// A Log has one writer at a time. Snapshot may be called concurrently.
type Log struct {
	mu   sync.RWMutex
	msgs []Message
}

// NewLog returns a log seeded with msgs.
func NewLog(msgs ...Message) *Log {
	l := &Log{}
	l.msgs = append(l.msgs, msgs...)
	return l
}

// Append adds msg to the end of the log.
func (l *Log) Append(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

// ReplaceLast swaps the final entry for msg when that entry is the empty AI
// placeholder. Otherwise msg is appended so a real message is never
// clobbered. It reports whether a replacement happened.
func (l *Log) ReplaceLast(msg Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.msgs); n > 0 && l.msgs[n-1].IsPlaceholder() {
		l.msgs[n-1] = msg
		return true
	}
	l.msgs = append(l.msgs, msg)
	return false
}

// ReplaceTrailingAI swaps the final entry for msg when it is an AI entry,
// empty or partially streamed. Otherwise msg is appended.
func (l *Log) ReplaceTrailingAI(msg Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.msgs); n > 0 && l.msgs[n-1].Author == RoleAI {
		l.msgs[n-1] = msg
		return true
	}
	l.msgs = append(l.msgs, msg)
	return false
}

// UpdateLastText rewrites the text of the final entry. The final entry must
// be an AI message; otherwise the log is left untouched and ErrNotAIEntry
// is returned.
func (l *Log) UpdateLastText(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.msgs)
	if n == 0 || l.msgs[n-1].Author != RoleAI {
		return ErrNotAIEntry
	}
	l.msgs[n-1].Text = text
	return nil
}

// Last returns the final entry, if any.
func (l *Log) Last() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.msgs) == 0 {
		return Message{}, false
	}
	return l.msgs[len(l.msgs)-1], true
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// Snapshot returns a copy of every entry, placeholders included.
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}
