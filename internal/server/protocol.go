package server

import "github.com/arin/gallery-chat/internal/conversation"

// Message types exchanged over /ws.
const (
	TypeSubmit   = "submit"
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

// InboundMessage is sent by the widget.
type InboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// SnapshotMessage carries the visible conversation after every change.
type SnapshotMessage struct {
	Type     string                 `json:"type"`
	Messages []conversation.Message `json:"messages"`
	Busy     bool                   `json:"busy"`
}

// ErrorMessage reports a rejected request. The conversation is unchanged.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
