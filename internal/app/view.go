package app

import (
	"fmt"

	"prepsnap-quiz/internal/domain"
)

// View is an immutable snapshot of a session, shaped for the quiz screen.
type View struct {
	SessionID string `json:"sessionId"`
	State     State  `json:"state"`
	Message   string `json:"message,omitempty"`
	AttemptID int64  `json:"attemptId,omitempty"`

	// Empty is set when today's quiz has no questions.
	Empty    bool             `json:"empty"`
	Index    int              `json:"index"`
	Total    int              `json:"total"`
	Question *domain.Question `json:"question,omitempty"`
	Selected int              `json:"selected"`
	Progress float64          `json:"progress"`

	Remaining     int    `json:"remaining"`
	RemainingText string `json:"remainingText"`
	Expired       bool   `json:"expired"`

	IsLast      bool `json:"isLast"`
	CanPrevious bool `json:"canPrevious"`
	CanNext     bool `json:"canNext"`
	CanRetry    bool `json:"canRetry"`

	Records []domain.AnswerRecord `json:"records,omitempty"`
	Result  *domain.SubmitResult  `json:"result,omitempty"`
	// Answers holds the raw selected indexes for the review screen.
	Answers []int `json:"answers,omitempty"`
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:     s.id,
		State:         s.state,
		AttemptID:     s.attemptID,
		Index:         s.current,
		Total:         len(s.questions),
		Selected:      domain.Unanswered,
		Remaining:     s.remaining,
		RemainingText: FormatRemaining(s.remaining),
		Expired:       s.remaining == 0,
		Result:        s.result,
	}
	if s.err != nil {
		v.Message = failureMessage(s.err)
	}
	v.CanRetry = s.state == StateFailed && s.submitFailed && !s.closed

	if len(s.questions) == 0 {
		v.Empty = s.state == StateReady
		if v.Empty {
			v.Message = "No quiz available today."
		}
		return v
	}

	q := s.questions[s.current]
	v.Question = &q
	v.Selected = s.answers[s.current].Selected
	v.Progress = float64(s.current+1) / float64(len(s.questions)) * 100
	v.IsLast = s.current == len(s.questions)-1

	ready := s.state == StateReady && !s.closed
	v.CanPrevious = ready && s.current > 0
	v.CanNext = ready && (v.IsLast || v.Selected != domain.Unanswered)

	v.Records = append([]domain.AnswerRecord(nil), s.answers...)
	if s.state == StateCompleted {
		v.Answers = make([]int, len(s.answers))
		for i, a := range s.answers {
			v.Answers[i] = a.Selected
		}
	}
	return v
}

// FormatRemaining renders seconds as m:ss.
func FormatRemaining(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
