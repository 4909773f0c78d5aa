package ai

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Fragment is a single chunk from a streaming AI response.
// The channel carrying fragments is closed when the response is complete.
type Fragment struct {
	// Content is the text chunk. Empty string is valid (heartbeat).
	Content string
	// Err is non-nil if the stream failed. It is always the last value sent.
	Err error
}

// StreamingProvider extends Provider with chunk-by-chunk streaming.
// Providers that don't support streaming can omit this interface;
// Chat falls back to Complete() and emits the answer as one fragment.
type StreamingProvider interface {
	Provider
	// CompleteStream sends messages and returns a channel that emits
	// fragments as they arrive. The channel is closed when the response is
	// complete or ctx is cancelled.
	CompleteStream(ctx context.Context, messages []Message) <-chan Fragment
}

// Collect reads all fragments from a stream channel and returns the
// concatenated result. Useful for tests and non-interactive paths.
func Collect(ch <-chan Fragment) (string, error) {
	var result strings.Builder
	for f := range ch {
		if f.Err != nil {
			return result.String(), f.Err
		}
		result.WriteString(f.Content)
	}
	return result.String(), nil
}

// send delivers f unless ctx is done first. It reports whether f was sent.
func send(ctx context.Context, ch chan<- Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamOrFallback uses the provider's streaming API when it has one and
// otherwise wraps Complete() as a single-fragment stream.
func streamOrFallback(ctx context.Context, p Provider, messages []Message) <-chan Fragment {
	if sp, ok := p.(StreamingProvider); ok {
		return sp.CompleteStream(ctx, messages)
	}

	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		text, err := p.Complete(ctx, messages)
		if err != nil {
			send(ctx, ch, Fragment{Err: err})
			return
		}
		send(ctx, ch, Fragment{Content: text})
	}()
	return ch
}

// newStreamClient bounds dialing and the wait for response headers by
// timeout. The body is not bounded: a streamed answer may take longer than
// timeout to finish, and ctx still cancels it.
func newStreamClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}
