package app

import (
	"time"

	"prepsnap-quiz/internal/domain"
)

// ISOLayout matches the millisecond UTC timestamps the quiz service expects.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// BuildSubmission maps answer records to the submit-quiz payload. Unanswered
// questions are sent as domain.DefaultChoice; the remote cannot tell them
// apart from a real "A".
func BuildSubmission(attemptID int64, questions []domain.Question, answers []domain.AnswerRecord, finishedAt time.Time) domain.Submission {
	items := make([]domain.SubmissionItem, 0, len(questions))
	for idx, q := range questions {
		choice := domain.DefaultChoice
		var ms int64
		if idx < len(answers) {
			if key, ok := domain.KeyForIndex(answers[idx].Selected); ok {
				choice = key
			}
			ms = answers[idx].TimeSpent.Milliseconds()
		}
		i := idx
		items = append(items, domain.SubmissionItem{
			QuestionID: q.ID,
			Choice:     choice,
			TimeMs:     &ms,
			Idx:        &i,
		})
	}

	sub := domain.Submission{
		AttemptID: attemptID,
		Items:     items,
	}
	if !finishedAt.IsZero() {
		sub.FinishedAtISO = finishedAt.UTC().Format(ISOLayout)
	}
	return sub
}
