package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"prepsnap-quiz/internal/domain"
)

// AttemptStore keeps stub attempts in Redis.
// Layout:
//
//	INCR quiz:attempt:seq                       attempt id sequence
//	SET  quiz:attempt:owner:{subject}:{day} id  one attempt per learner and day
//	HSET quiz:attempt:{id} subject day started key
//	SET  quiz:attempt:{id}:submitted 1 NX       submit guard
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

// Open returns the subject's attempt for the day, creating it from a when absent.
func (s *AttemptStore) Open(ctx context.Context, a domain.Attempt) (domain.Attempt, error) {
	ownerKey := s.ownerKey(a.Subject, a.Day)

	existing, err := s.client.Get(ctx, ownerKey).Int64()
	switch {
	case err == nil:
		found, err := s.Get(ctx, existing)
		if !errors.Is(err, domain.ErrAttemptNotFound) {
			return found, err
		}
		// the hash expired before the owner key; start over
		if err := s.client.Del(ctx, ownerKey).Err(); err != nil {
			return domain.Attempt{}, fmt.Errorf("drop stale owner: %w", err)
		}
	case !errors.Is(err, redis.Nil):
		return domain.Attempt{}, fmt.Errorf("lookup attempt: %w", err)
	}

	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("allocate attempt: %w", err)
	}

	key, err := json.Marshal(a.Key)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal answer key: %w", err)
	}

	// The hash is written before the owner key so a claimed id is always readable.
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.attemptKey(id),
		"subject", a.Subject,
		"day", a.Day,
		"started", a.StartedAt.UnixMilli(),
		"key", key,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.attemptKey(id), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("store attempt: %w", err)
	}

	ok, err := s.client.SetNX(ctx, ownerKey, id, s.ttl).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("claim attempt: %w", err)
	}
	if !ok {
		// another request opened the attempt first
		if err := s.client.Del(ctx, s.attemptKey(id)).Err(); err != nil {
			slog.WarnContext(ctx, "redis: drop unclaimed attempt", "attempt", id, "err", err)
		}
		existing, err := s.client.Get(ctx, ownerKey).Int64()
		if err != nil {
			return domain.Attempt{}, fmt.Errorf("lookup attempt: %w", err)
		}
		return s.Get(ctx, existing)
	}

	a.ID = id
	a.Submitted = false
	return a, nil
}

func (s *AttemptStore) Get(ctx context.Context, id int64) (domain.Attempt, error) {
	fields, err := s.client.HGetAll(ctx, s.attemptKey(id)).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	if len(fields) == 0 {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}

	a := domain.Attempt{
		ID:      id,
		Subject: fields["subject"],
		Day:     fields["day"],
	}
	if ms, err := strconv.ParseInt(fields["started"], 10, 64); err == nil {
		a.StartedAt = time.UnixMilli(ms).UTC()
	}
	if raw := fields["key"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Key); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answer key: %w", err)
		}
	}

	n, err := s.client.Exists(ctx, s.submittedKey(id)).Result()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	a.Submitted = n > 0
	return a, nil
}

// MarkSubmitted flags the attempt as graded; it reports false when it already was.
func (s *AttemptStore) MarkSubmitted(ctx context.Context, id int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.attemptKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	if n == 0 {
		return false, domain.ErrAttemptNotFound
	}

	ok, err := s.client.SetNX(ctx, s.submittedKey(id), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	return ok, nil
}

func (s *AttemptStore) seqKey() string {
	return "quiz:attempt:seq"
}

func (s *AttemptStore) ownerKey(subject, day string) string {
	return "quiz:attempt:owner:" + subject + ":" + day
}

func (s *AttemptStore) attemptKey(id int64) string {
	return "quiz:attempt:" + strconv.FormatInt(id, 10)
}

func (s *AttemptStore) submittedKey(id int64) string {
	return s.attemptKey(id) + ":submitted"
}
