package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/arin/gallery-chat/internal/ai"
	"github.com/arin/gallery-chat/internal/capture"
	"github.com/arin/gallery-chat/internal/conversation"
)

const (
	// GreetingText opens every conversation that has a completion source.
	GreetingText = "Hello! I am your personal art guide. How can I help you explore our gallery today?"
	// SetupNoticeText opens a conversation that cannot reach a model.
	SetupNoticeText = "Welcome! To get started, please configure your Gemini API key."
)

// Submission and capture rejections.
var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("still answering the previous message")
	ErrNotReady   = errors.New("no model configured")
	ErrDisposed   = errors.New("session is closed")
	ErrNoCapture  = errors.New("voice input is not available")
)

// Source opens the answer to one user turn as a fragment stream.
// *ai.Chat implements it.
type Source interface {
	Open(ctx context.Context, text string) (<-chan ai.Fragment, error)
}

// TurnReport describes a finished turn. It never carries message text.
type TurnReport struct {
	Outcome       Outcome
	Fragments     int
	Chars         int
	FirstFragment time.Duration // zero when no fragment arrived
	Duration      time.Duration
	Err           error
}

// Options configures a Session. Every field is optional.
type Options struct {
	Capturer capture.Capturer
	// OnChange receives a snapshot of the log after every change to the
	// log, the busy flag or the recording state.
	OnChange func([]conversation.Message)
	OnTurn   func(TurnReport)
	Logger   *zerolog.Logger
}

// Session is the state behind one conversation view: the log, the draft
// input, the busy flag and the voice capture handle. One turn streams at a
// time.
type Session struct {
	source   Source
	log      *conversation.Log
	capturer capture.Capturer
	onChange func([]conversation.Message)
	onTurn   func(TurnReport)
	logger   zerolog.Logger

	busy      atomic.Bool
	recording atomic.Bool
	disposed  atomic.Bool

	mu       sync.Mutex
	draft    string
	cancel   context.CancelFunc
	turnDone chan struct{} // closed when the in-flight Submit finishes
}

// NewSession creates a session answering from source. A nil source means
// no model is configured: the log opens with the setup notice and every
// submission is rejected with ErrNotReady.
func NewSession(source Source, opts Options) *Session {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s := &Session{
		source:   source,
		capturer: opts.Capturer,
		onChange: opts.OnChange,
		onTurn:   opts.OnTurn,
		logger:   logger.With().Str("component", "chat-session").Logger(),
	}

	if source == nil {
		s.logger.Error().Msg("no completion source configured")
		s.log = conversation.NewLog(conversation.Message{Author: conversation.RoleAI, Text: SetupNoticeText})
	} else {
		s.log = conversation.NewLog(conversation.Message{Author: conversation.RoleAI, Text: GreetingText})
	}

	if s.capturer != nil {
		s.capturer.OnResult(func(transcript string) {
			s.SetDraft(transcript)
			s.changed()
		})
		s.capturer.OnError(func(err error) {
			s.logger.Warn().Err(err).Msg("voice capture failed")
			s.recording.Store(false)
			s.changed()
		})
		s.capturer.OnEnd(func() {
			s.recording.Store(false)
			s.changed()
		})
	}
	return s
}

// Submit sends text as the next user turn and blocks until its answer has
// finished streaming. Rejected submissions leave the log untouched and
// return OutcomeNone with one of the Err* sentinels. A failed stream is not
// an error here: it is reported as OutcomeFailed and shown to the user as
// ApologyText.
func (s *Session) Submit(ctx context.Context, text string) (Outcome, error) {
	if s.disposed.Load() {
		return OutcomeNone, ErrDisposed
	}
	if s.source == nil {
		return OutcomeNone, ErrNotReady
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return OutcomeNone, ErrEmptyInput
	}
	if !s.busy.CompareAndSwap(false, true) {
		return OutcomeNone, ErrBusy
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		cancel()
		s.busy.Store(false)
		return OutcomeNone, ErrDisposed
	}
	turnDone := make(chan struct{})
	s.cancel = cancel
	s.turnDone = turnDone
	s.draft = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.turnDone = nil
		s.mu.Unlock()
		cancel()
		s.busy.Store(false)
		s.changed()
		close(turnDone)
	}()

	s.log.Append(conversation.Message{Author: conversation.RoleUser, Text: text})
	s.log.Append(conversation.Message{Author: conversation.RoleAI})
	s.changed()

	start := time.Now()
	report := TurnReport{}
	notify := func() {
		report.Fragments++
		if report.Fragments == 1 {
			report.FirstFragment = time.Since(start)
		}
		s.changed()
	}

	fragments, err := s.source.Open(ctx, text)
	if err != nil {
		fragments = failed(err)
	}

	outcome, err := Stream(ctx, s.log, fragments, notify)
	report.Outcome = outcome
	report.Duration = time.Since(start)

	switch outcome {
	case OutcomeCompleted:
		if last, ok := s.log.Last(); ok {
			report.Chars = utf8.RuneCountInString(last.Text)
		}
		s.logger.Debug().
			Int("fragments", report.Fragments).
			Dur("duration", report.Duration).
			Msg("turn completed")
	case OutcomeFailed:
		report.Err = err
		s.logger.Error().Err(err).Msg("completion stream failed")
	case OutcomeCanceled:
		report.Err = err
		s.logger.Debug().Msg("turn canceled")
	}

	if s.onTurn != nil {
		s.onTurn(report)
	}
	return outcome, nil
}

// failed returns a stream that fails before producing any fragment.
func failed(err error) <-chan ai.Fragment {
	ch := make(chan ai.Fragment, 1)
	ch <- ai.Fragment{Err: fmt.Errorf("open completion stream: %w", err)}
	close(ch)
	return ch
}

// ToggleCapture starts voice capture, or stops it when already recording.
// Starting clears the draft; results then overwrite it.
func (s *Session) ToggleCapture(ctx context.Context) error {
	if s.disposed.Load() {
		return ErrDisposed
	}
	if s.capturer == nil {
		return ErrNoCapture
	}
	if s.busy.Load() {
		return ErrBusy
	}

	if s.recording.Load() {
		s.capturer.Stop()
		s.recording.Store(false)
		s.changed()
		return nil
	}

	s.SetDraft("")
	s.recording.Store(true)
	if err := s.capturer.Start(ctx); err != nil {
		s.recording.Store(false)
		s.logger.Warn().Err(err).Msg("voice capture did not start")
		return fmt.Errorf("start voice capture: %w", err)
	}
	s.changed()
	return nil
}

// Dispose cancels the in-flight turn, waits for it to finish and stops
// capture. The log is not modified and OnChange is not called after
// Dispose returns. Calling it more than once is safe. It must not be
// called from OnChange or OnTurn, which run on the submitting goroutine.
func (s *Session) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	turnDone := s.turnDone
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if turnDone != nil {
		<-turnDone
	}
	if s.capturer != nil && s.recording.Swap(false) {
		s.capturer.Stop()
	}
}

func (s *Session) Busy() bool      { return s.busy.Load() }
func (s *Session) Recording() bool { return s.recording.Load() }

// Ready reports whether the session can submit turns.
func (s *Session) Ready() bool { return s.source != nil && !s.disposed.Load() }

// CanCapture reports whether a voice capturer is attached.
func (s *Session) CanCapture() bool { return s.capturer != nil }

// Snapshot returns a copy of the log, placeholder included. Renderers
// should pass it through conversation.Visible.
func (s *Session) Snapshot() []conversation.Message { return s.log.Snapshot() }

// Draft returns the pending input text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the pending input text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

func (s *Session) changed() {
	if s.onChange == nil || s.disposed.Load() {
		return
	}
	s.onChange(s.log.Snapshot())
}
