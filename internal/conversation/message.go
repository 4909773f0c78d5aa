// Package conversation holds the append-only message log shown to the user.
package conversation

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message is a single entry in the conversation.
type Message struct {
	Author Role   `json:"author"`
	Text   string `json:"text"`
}

// IsPlaceholder reports whether m is an AI entry that has not received text yet.
func (m Message) IsPlaceholder() bool {
	return m.Author == RoleAI && m.Text == ""
}

// Visible drops empty AI entries. Renderers must apply it so the streaming
// placeholder stays hidden until its first fragment arrives.
func Visible(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsPlaceholder() {
			continue
		}
		out = append(out, m)
	}
	return out
}
