package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prepsnap-quiz/internal/domain"
)

const (
	DefaultDuration     = 600 * time.Second
	DefaultTickInterval = time.Second
)

// Remote abstracts the quiz service: fetch today's quiz, submit a finished one.
type Remote interface {
	FetchToday(ctx context.Context) (domain.DailyQuiz, error)
	Submit(ctx context.Context, submission domain.Submission) (domain.SubmitResult, error)
}

// Ticker drives the countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	Remote        Remote
	Duration      time.Duration
	TickInterval  time.Duration
	Clock         func() time.Time
	NewTickerFunc func(d time.Duration) Ticker
	// OnTransition is called under the session lock on every state change.
	OnTransition func(from, to State)
}

// QuizService creates quiz sessions against a remote.
type QuizService struct {
	c Config
}

func NewQuizService(c Config) *QuizService {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = newRealTicker
	}
	return &QuizService{c: c}
}

// Start creates a session and fetches today's quiz. The returned session is
// Ready or Failed; a failed load is recovered only by starting a new session.
func (s *QuizService) Start(ctx context.Context) *Session {
	session := newSession(uuid.NewString(), s.c)
	session.load(ctx)
	return session
}

type realTicker struct {
	t *time.Ticker
}

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
