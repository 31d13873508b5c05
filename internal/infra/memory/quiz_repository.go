package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"prepsnap-quiz/internal/domain"
)

// BankLoader fetches a day's question bank from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, day string) (domain.QuestionBank, error)
}

// BankRepository caches question banks with TTL to avoid repeated DB hits.
// A dated bank never outlives its UTC day.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, day string) (domain.QuestionBank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[day]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(day, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[day]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		bank, err := r.loader.LoadBank(ctx, day)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.mu.Lock()
		r.cache[day] = cachedBank{
			bank:      bank,
			expiresAt: r.expiry(day, now),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// StaticBankLoader serves banks from memory, e.g. the banks listed in config.
type StaticBankLoader struct {
	banks map[string]domain.QuestionBank
}

func NewStaticBankLoader(banks []domain.QuestionBank) *StaticBankLoader {
	m := make(map[string]domain.QuestionBank, len(banks))
	for _, b := range banks {
		m[b.Day] = b
	}
	return &StaticBankLoader{banks: m}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, day string) (domain.QuestionBank, error) {
	if bank, ok := l.banks[day]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrQuizNotFound
}

// expiry caps the jittered TTL at the end of the bank's day. Undated banks,
// such as the default one, only use the TTL.
func (r *BankRepository) expiry(day string, now time.Time) time.Time {
	expiresAt := now.Add(r.ttlWithJitter())
	date, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return expiresAt
	}
	if end := date.AddDate(0, 0, 1); expiresAt.After(end) {
		return end
	}
	return expiresAt
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
