// Package capture turns spoken input into text for the chat prompt.
package capture

import (
	"context"
	"errors"
)

// ErrAlreadyRunning is returned by Start while a capture is in progress.
var ErrAlreadyRunning = errors.New("capture already running")

// Capturer is a voice input source. Results arrive on OnResult as the full
// transcript so far; OnEnd fires once per Start when capture stops, whether
// it finished, failed or was stopped.
//
// Handlers must be registered before Start and may be called from any
// goroutine.
type Capturer interface {
	Start(ctx context.Context) error
	Stop()
	OnResult(func(transcript string))
	OnError(func(err error))
	OnEnd(func())
}
