package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"prepsnap-quiz/internal/domain"
)

// BankLoader loads a day's questions from the questions table.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, day string) (domain.QuestionBank, error) {
	const stmt = `
SELECT id, stem, options, topic, answer, explanation
FROM questions
WHERE quiz_day = $1
ORDER BY position, id;`

	rows, err := l.pool.Query(ctx, stmt, day)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	bank := domain.QuestionBank{Day: day}
	for rows.Next() {
		var (
			q       domain.BankQuestion
			options []byte
			answer  string
		)
		if err := rows.Scan(&q.ID, &q.Stem, &options, &q.Topic, &answer, &q.Explanation); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("unmarshal options of question %d: %w", q.ID, err)
		}
		q.Answer = domain.OptionKey(answer)
		bank.Questions = append(bank.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}

	if len(bank.Questions) == 0 {
		return domain.QuestionBank{}, domain.ErrQuizNotFound
	}
	return bank, nil
}
