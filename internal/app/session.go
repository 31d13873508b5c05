package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prepsnap-quiz/internal/domain"
)

// State is a quiz session lifecycle state.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSubmitting
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateLoading:    "loading",
	StateReady:      "ready",
	StateSubmitting: "submitting",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is one learner's pass through today's quiz. Every event (input,
// tick, finished network call) runs to completion under mu.
type Session struct {
	id        string
	remote    Remote
	now       func() time.Time
	newTicker func(d time.Duration) Ticker
	interval  time.Duration
	observe   func(from, to State)

	mu           sync.Mutex
	state        State
	err          error
	submitFailed bool
	closed       bool

	attemptID  int64
	questions  []domain.Question
	answers    []domain.AnswerRecord
	current    int
	duration   int
	remaining  int
	startedAt  time.Time
	lastMark   time.Time
	finishedAt time.Time
	result     *domain.SubmitResult

	stopCountdown context.CancelFunc
	subscribers   map[chan View]struct{}
}

func newSession(id string, c Config) *Session {
	return &Session{
		id:          id,
		remote:      c.Remote,
		now:         c.Clock,
		newTicker:   c.NewTickerFunc,
		interval:    c.TickInterval,
		observe:     c.OnTransition,
		state:       StateLoading,
		duration:    int(c.Duration / time.Second),
		remaining:   int(c.Duration / time.Second),
		subscribers: make(map[chan View]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// load performs the fetch step and leaves the session in Ready or Failed.
func (s *Session) load(ctx context.Context) {
	quiz, err := s.remote.FetchToday(ctx)
	if err == nil {
		err = validateQuiz(quiz.Questions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "session: load quiz failed", "session", s.id, "error", err)
		s.failLocked(err, false)
		return
	}

	s.attemptID = quiz.AttemptID
	s.questions = quiz.Questions
	s.answers = make([]domain.AnswerRecord, len(quiz.Questions))
	for i := range s.answers {
		s.answers[i].Selected = domain.Unanswered
	}
	s.current = 0
	s.startedAt = s.now()
	s.lastMark = s.startedAt
	s.setStateLocked(StateReady)
}

// SelectOption records idx as the answer for the current question. A later
// selection overwrites an earlier one.
func (s *Session) SelectOption(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.answerableLocked(); err != nil {
		return err
	}
	if idx < 0 || idx >= len(s.questions[s.current].Options) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidOption, idx)
	}

	s.answers[s.current].Selected = idx
	s.broadcastLocked()
	return nil
}

// Previous moves back one question. It is a no-op on the first question.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.answerableLocked(); err != nil {
		return err
	}
	if s.current == 0 {
		return nil
	}

	s.flushLocked(s.now())
	s.current--
	s.broadcastLocked()
	return nil
}

// Next advances to the following question, or submits the quiz when called
// on the last one. The last question may be finished without a selection.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	if err := s.answerableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.now()
	if s.current < len(s.questions)-1 {
		defer s.mu.Unlock()
		if !s.answers[s.current].Answered() {
			return domain.ErrSelectionRequired
		}
		s.flushLocked(now)
		s.current++
		s.broadcastLocked()
		return nil
	}

	s.flushLocked(now)
	s.finishedAt = now
	submission := s.beginSubmitLocked()
	s.mu.Unlock()

	return s.submit(ctx, submission)
}

// RetrySubmit resubmits the recorded answers after a failed submission.
func (s *Session) RetrySubmit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state != StateFailed || !s.submitFailed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot retry submission while %s", domain.ErrInvalidState, state)
	}
	submission := s.beginSubmitLocked()
	s.mu.Unlock()

	return s.submit(ctx, submission)
}

func (s *Session) beginSubmitLocked() domain.Submission {
	s.err = nil
	s.submitFailed = false
	s.setStateLocked(StateSubmitting)
	return BuildSubmission(s.attemptID, s.questions, s.answers, s.finishedAt)
}

func (s *Session) submit(ctx context.Context, submission domain.Submission) error {
	res, err := s.remote.Submit(ctx, submission)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if err != nil {
			return err
		}
		return domain.ErrSessionClosed
	}
	if err != nil {
		slog.ErrorContext(ctx, "session: submit quiz failed", "session", s.id, "attempt", s.attemptID, "error", err)
		s.failLocked(err, true)
		return err
	}

	slog.InfoContext(ctx, "session: quiz submitted", "session", s.id, "attempt", s.attemptID, "score", res.Score)
	s.result = &res
	s.setStateLocked(StateCompleted)
	return nil
}

// Tick recomputes the countdown from the whole seconds elapsed since the quiz
// became ready and charges the time since the previous mark to the active
// question. The tick interval only sets how often this happens.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state != StateReady || len(s.questions) == 0 {
		return
	}

	now := s.now()
	s.flushLocked(now)
	elapsed := int(now.Sub(s.startedAt) / time.Second)
	if left := s.duration - elapsed; left < s.remaining {
		s.remaining = max(left, 0)
	}
	s.broadcastLocked()
}

// StartCountdown runs the countdown until ctx is done, the session leaves
// Ready, or the session is closed. Calling it again while running is a no-op.
func (s *Session) StartCountdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.answerableLocked(); err != nil {
		return err
	}
	if s.stopCountdown != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.stopCountdown = cancel
	ticker := s.newTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.Tick()
			}
		}
	}()
	return nil
}

// Close stops the countdown and every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancelCountdownLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// View returns a snapshot of the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel that receives a view after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	ch <- s.viewLocked()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) answerableLocked() error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.state != StateReady {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidState, s.state)
	}
	if len(s.questions) == 0 {
		return fmt.Errorf("%w: no quiz available", domain.ErrInvalidState)
	}
	return nil
}

// flushLocked charges the time since the last mark to the current question.
func (s *Session) flushLocked(now time.Time) {
	if len(s.answers) == 0 {
		return
	}
	if d := now.Sub(s.lastMark); d > 0 {
		s.answers[s.current].TimeSpent += d
	}
	s.lastMark = now
}

func (s *Session) failLocked(err error, fromSubmit bool) {
	s.err = err
	s.submitFailed = fromSubmit
	s.setStateLocked(StateFailed)
}

func (s *Session) setStateLocked(to State) {
	from := s.state
	s.state = to
	if to != StateReady {
		s.cancelCountdownLocked()
	}
	slog.Info("session: state changed", "session", s.id, "from", from.String(), "to", to.String())
	if s.observe != nil {
		s.observe(from, to)
	}
	s.broadcastLocked()
}

func (s *Session) cancelCountdownLocked() {
	if s.stopCountdown != nil {
		s.stopCountdown()
		s.stopCountdown = nil
	}
}

func (s *Session) broadcastLocked() {
	v := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			// drop the stale view so a slow reader sees the latest one
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func failureMessage(err error) string {
	var se *domain.StatusError
	if errors.Is(err, domain.ErrAuthenticationMissing) && errors.As(err, &se) {
		return "not signed in: " + err.Error()
	}
	return err.Error()
}

func validateQuiz(questions []domain.Question) error {
	for _, q := range questions {
		if len(q.Options) != len(domain.OptionKeys) {
			return fmt.Errorf("%w: question %d has %d options", domain.ErrMalformedQuiz, q.ID, len(q.Options))
		}
		for i, opt := range q.Options {
			if opt.Key != domain.OptionKeys[i] {
				return fmt.Errorf("%w: question %d option %d is %q", domain.ErrMalformedQuiz, q.ID, i, opt.Key)
			}
		}
	}
	return nil
}
