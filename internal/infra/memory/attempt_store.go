package memory

import (
	"context"
	"sync"

	"prepsnap-quiz/internal/domain"
)

// AttemptStore keeps stub attempts in process memory.
type AttemptStore struct {
	mu      sync.Mutex
	seq     int64
	byID    map[int64]*domain.Attempt
	byOwner map[string]int64
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		byID:    make(map[int64]*domain.Attempt),
		byOwner: make(map[string]int64),
	}
}

// Open returns the subject's attempt for the day, creating it from a when absent.
func (s *AttemptStore) Open(_ context.Context, a domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := a.Subject + ":" + a.Day
	if id, ok := s.byOwner[owner]; ok {
		return copyAttempt(s.byID[id]), nil
	}

	s.seq++
	a.ID = s.seq
	a.Submitted = false
	a.Key = append([]domain.AnswerKey(nil), a.Key...)
	s.byID[a.ID] = &a
	s.byOwner[owner] = a.ID
	return copyAttempt(&a), nil
}

func (s *AttemptStore) Get(_ context.Context, id int64) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return copyAttempt(a), nil
}

// MarkSubmitted flags the attempt as graded; it reports false when it already was.
func (s *AttemptStore) MarkSubmitted(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return false, domain.ErrAttemptNotFound
	}
	if a.Submitted {
		return false, nil
	}
	a.Submitted = true
	return true, nil
}

func copyAttempt(a *domain.Attempt) domain.Attempt {
	out := *a
	out.Key = append([]domain.AnswerKey(nil), a.Key...)
	return out
}
