package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/arin/gallery-chat/internal/conversation"
)

func init() {
	color.NoColor = true
}

type fakeIndicator struct {
	starts, stops int
}

func (f *fakeIndicator) Start() { f.starts++ }
func (f *fakeIndicator) Stop()  { f.stops++ }

func msgs(pairs ...string) []conversation.Message {
	var out []conversation.Message
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, conversation.Message{Author: conversation.Role(pairs[i]), Text: pairs[i+1]})
	}
	return out
}

func TestTranscript_StreamsIncrementally(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf, WithPrefix("  "))

	tr.Render(msgs("ai", "Hello!"), false)
	tr.Render(msgs("ai", "Hello!", "user", "hours?", "ai", ""), true)
	tr.Render(msgs("ai", "Hello!", "user", "hours?", "ai", "We're open "), true)
	tr.Render(msgs("ai", "Hello!", "user", "hours?", "ai", "We're open 9am to 5pm."), true)
	tr.End()

	want := "  Hello!\n\n  We're open 9am to 5pm.\n\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestTranscript_EchoUser(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf, WithUserEcho())

	tr.Render(msgs("user", "Who made you?", "ai", "A team."), false)
	tr.End()

	out := buf.String()
	if !strings.HasPrefix(out, "> Who made you?\n\nA team.") {
		t.Errorf("expected echoed user line first, got %q", out)
	}
}

func TestTranscript_HidesPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf)

	tr.Render(msgs("user", "hi", "ai", ""), true)
	tr.End()
	if buf.Len() != 0 {
		t.Errorf("empty AI entry must not print, got %q", buf.String())
	}
}

func TestTranscript_ReplacedEntry(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf)

	tr.Render(msgs("user", "hi", "ai", "partial"), true)
	tr.Render(msgs("user", "hi", "ai", "Please try again later."), false)
	tr.End()

	want := "partial\nPlease try again later.\n\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestTranscript_RenderIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf)

	m := msgs("ai", "Hello", "user", "q", "ai", "answer")
	tr.Render(m, false)
	first := buf.String()
	tr.Render(m, false)
	if buf.String() != first {
		t.Errorf("repeated render must not print again, got %q", buf.String())
	}
}

func TestTranscript_MultilineIndent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript(&buf, WithPrefix("  "))

	tr.Render(msgs("ai", "line one\nline"), true)
	tr.Render(msgs("ai", "line one\nline two"), false)
	tr.End()

	want := "  line one\n  line two\n\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestTranscript_ThinkingWhileWaiting(t *testing.T) {
	var buf bytes.Buffer
	ind := &fakeIndicator{}
	tr := NewTranscript(&buf, WithThinking(ind))

	tr.Render(msgs("ai", "Hello", "user", "q", "ai", ""), true)
	tr.Render(msgs("ai", "Hello", "user", "q", "ai", ""), true)
	if ind.starts != 1 {
		t.Fatalf("expected indicator started once, got %d", ind.starts)
	}

	tr.Render(msgs("ai", "Hello", "user", "q", "ai", "a"), true)
	if ind.stops != 1 {
		t.Errorf("expected indicator stopped at first fragment, got %d", ind.stops)
	}

	tr.End()
	if ind.stops != 1 {
		t.Errorf("expected no extra stop, got %d", ind.stops)
	}
}

func TestTranscript_ThinkingStopsWhenIdle(t *testing.T) {
	var buf bytes.Buffer
	ind := &fakeIndicator{}
	tr := NewTranscript(&buf, WithThinking(ind))

	tr.Render(msgs("user", "q", "ai", ""), true)
	tr.Render(msgs("user", "q", "ai", ""), false)
	if ind.starts != 1 || ind.stops != 1 {
		t.Errorf("expected start/stop pair, got %d/%d", ind.starts, ind.stops)
	}
}
