// Package chat folds streamed model output into the conversation log and
// owns the per-conversation state shared by every front end.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/arin/gallery-chat/internal/ai"
	"github.com/arin/gallery-chat/internal/conversation"
)

// ApologyText replaces the answer of a turn whose stream failed.
const ApologyText = "I seem to be having some trouble connecting. Please try again later."

// Outcome is how a turn ended.
type Outcome int

const (
	// OutcomeNone means the turn never started (the submission was rejected).
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Stream folds fragments into the trailing AI entry of log, which the
// caller must already have appended. After every fragment the entry holds
// the concatenation of all fragments so far and notify is called before the
// next fragment is received.
//
// A fragment carrying an error replaces the trailing entry with
// ApologyText and ends the turn as OutcomeFailed; the returned error is the
// cause; notify is not called for the substitution. Once ctx is done the
// log is no longer touched and notify is not called again.
func Stream(ctx context.Context, log *conversation.Log, fragments <-chan ai.Fragment, notify func()) (Outcome, error) {
	if notify == nil {
		notify = func() {}
	}

	var acc strings.Builder
	for {
		select {
		case <-ctx.Done():
			return OutcomeCanceled, ctx.Err()
		case f, ok := <-fragments:
			if ctx.Err() != nil {
				return OutcomeCanceled, ctx.Err()
			}
			if !ok {
				return OutcomeCompleted, nil
			}
			if f.Err != nil {
				log.ReplaceTrailingAI(conversation.Message{Author: conversation.RoleAI, Text: ApologyText})
				return OutcomeFailed, f.Err
			}

			acc.WriteString(f.Content)
			if err := log.UpdateLastText(acc.String()); err != nil {
				return OutcomeFailed, fmt.Errorf("apply fragment: %w", err)
			}
			notify()
		}
	}
}
