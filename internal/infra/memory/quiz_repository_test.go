package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepsnap-quiz/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader([]domain.QuestionBank{sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), domain.DefaultBankDay); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	bank, err := repo.GetBank(context.Background(), domain.DefaultBankDay)
	if err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if len(bank.Public()) != 1 || bank.Public()[0].Stem != "What is 2 + 2?" {
		t.Fatalf("unexpected bank %+v", bank)
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader([]domain.QuestionBank{sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetBank(context.Background(), domain.DefaultBankDay)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetBank(context.Background(), domain.DefaultBankDay)
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls)
	}
}

func TestBankRepositoryExpiresAtEndOfDay(t *testing.T) {
	dated := sampleBank()
	dated.Day = "2025-09-01"
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader([]domain.QuestionBank{dated, sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Hour)
	now := time.Date(2025, 9, 1, 23, 59, 30, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetBank(context.Background(), "2025-09-01")
	_, _ = repo.GetBank(context.Background(), domain.DefaultBankDay)
	now = now.Add(time.Minute)
	_, _ = repo.GetBank(context.Background(), "2025-09-01")
	if loader.calls != 3 {
		t.Fatalf("expected the dated bank to reload after midnight, loader calls %d", loader.calls)
	}

	_, _ = repo.GetBank(context.Background(), domain.DefaultBankDay)
	if loader.calls != 3 {
		t.Fatalf("expected the default bank to stay cached for its TTL, loader calls %d", loader.calls)
	}
}

func TestStaticBankLoaderUnknownDay(t *testing.T) {
	_, err := NewStaticBankLoader(nil).LoadBank(context.Background(), "2025-09-01")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, day string) (domain.QuestionBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, day)
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		Day: domain.DefaultBankDay,
		Questions: []domain.BankQuestion{
			{
				Question: domain.Question{
					ID:   1,
					Stem: "What is 2 + 2?",
					Options: []domain.Option{
						{Key: domain.OptionA, Text: "3"},
						{Key: domain.OptionB, Text: "4"},
						{Key: domain.OptionC, Text: "5"},
						{Key: domain.OptionD, Text: "22"},
					},
				},
				Answer: domain.OptionB,
			},
		},
	}
}
