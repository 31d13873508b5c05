// Package stub is a local stand-in for the remote quiz service, used for
// development and integration tests. Quiz clients never import it.
package stub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prepsnap-quiz/internal/domain"
	"prepsnap-quiz/internal/telemetry"
)

// PerfectScoreCredit is earned when every answer matches.
const PerfectScoreCredit = 3

const (
	FlagPerfectScore = "perfect_score"
	FlagOvertime     = "overtime"
)

// BankRepository returns the question bank for a day.
type BankRepository interface {
	GetBank(ctx context.Context, day string) (domain.QuestionBank, error)
}

// AttemptStore keeps grading state per attempt.
type AttemptStore interface {
	Open(ctx context.Context, a domain.Attempt) (domain.Attempt, error)
	Get(ctx context.Context, id int64) (domain.Attempt, error)
	MarkSubmitted(ctx context.Context, id int64) (bool, error)
}

type Config struct {
	Banks    BankRepository
	Attempts AttemptStore
	// Duration is the quiz time limit used for the overtime flag.
	Duration time.Duration
	Clock    func() time.Time
}

type Service struct {
	banks    BankRepository
	attempts AttemptStore
	duration time.Duration
	now      func() time.Time
}

func NewService(c Config) *Service {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return &Service{
		banks:    c.Banks,
		attempts: c.Attempts,
		duration: c.Duration,
		now:      c.Clock,
	}
}

// Today opens (or reopens) the subject's attempt for the current UTC day.
func (s *Service) Today(ctx context.Context, subject string) (domain.DailyQuiz, error) {
	now := s.now().UTC()
	day := now.Format(time.DateOnly)

	bank, err := s.banks.GetBank(ctx, day)
	if errors.Is(err, domain.ErrQuizNotFound) {
		bank, err = s.banks.GetBank(ctx, domain.DefaultBankDay)
	}
	if err != nil {
		return domain.DailyQuiz{}, fmt.Errorf("today: %w", err)
	}

	key := make([]domain.AnswerKey, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		key = append(key, domain.AnswerKey{QuestionID: q.ID, Answer: q.Answer})
	}

	attempt, err := s.attempts.Open(ctx, domain.Attempt{
		Subject:   subject,
		Day:       day,
		StartedAt: now,
		Key:       key,
	})
	if err != nil {
		return domain.DailyQuiz{}, fmt.Errorf("today: %w", err)
	}

	slog.InfoContext(ctx, "stub: quiz served", "subject", subject, "attempt", attempt.ID, "questions", len(bank.Questions))
	return domain.DailyQuiz{
		AttemptID: attempt.ID,
		Questions: bank.Public(),
	}, nil
}

// Grade scores a submission by comparing each choice with the answer key.
func (s *Service) Grade(ctx context.Context, subject string, sub domain.Submission) (domain.SubmitResult, error) {
	attempt, err := s.attempts.Get(ctx, sub.AttemptID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if attempt.Subject != subject {
		return domain.SubmitResult{}, domain.ErrAttemptNotFound
	}

	ok, err := s.attempts.MarkSubmitted(ctx, attempt.ID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !ok {
		telemetry.ObserveSubmission("duplicate")
		return domain.SubmitResult{}, domain.ErrAlreadySubmitted
	}

	choices := make(map[int64]domain.OptionKey, len(sub.Items))
	for _, item := range sub.Items {
		choices[item.QuestionID] = item.Choice
	}

	var score int
	for _, k := range attempt.Key {
		if choices[k.QuestionID] == k.Answer {
			score++
		}
	}

	res := domain.SubmitResult{Score: float64(score), Flags: []string{}}
	if len(attempt.Key) > 0 && score == len(attempt.Key) {
		res.Earned = PerfectScoreCredit
		res.Flags = append(res.Flags, FlagPerfectScore)
	}
	if s.overtime(attempt, sub.FinishedAtISO) {
		res.Flags = append(res.Flags, FlagOvertime)
	}

	if res.Earned > 0 {
		telemetry.ObserveSubmission("perfect")
	} else {
		telemetry.ObserveSubmission("graded")
	}
	slog.InfoContext(ctx, "stub: attempt graded", "subject", subject, "attempt", attempt.ID, "score", score, "of", len(attempt.Key))
	return res, nil
}

func (s *Service) overtime(a domain.Attempt, finishedAtISO string) bool {
	if s.duration <= 0 || a.StartedAt.IsZero() {
		return false
	}
	finished := s.now()
	if finishedAtISO != "" {
		if t, err := time.Parse(time.RFC3339Nano, finishedAtISO); err == nil {
			finished = t
		}
	}
	return finished.After(a.StartedAt.Add(s.duration))
}
