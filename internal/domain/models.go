package domain

import (
	"encoding/json"
	"time"
)

// OptionKey labels one of the four answer options.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the labels in display order. The index of a key is the
// option index used by sessions.
var OptionKeys = [4]OptionKey{OptionA, OptionB, OptionC, OptionD}

// KeyForIndex maps an option index to its label.
func KeyForIndex(idx int) (OptionKey, bool) {
	if idx < 0 || idx >= len(OptionKeys) {
		return "", false
	}
	return OptionKeys[idx], true
}

// Unanswered marks an AnswerRecord with no selection.
const Unanswered = -1

// DefaultChoice is submitted for unanswered questions. The remote grades it
// like any other choice, so unanswered slots may score.
const DefaultChoice = OptionA

// Option is one labelled answer for a question.
type Option struct {
	Key  OptionKey `json:"key" yaml:"key"`
	Text string    `json:"text" yaml:"text"`
}

// Question is an MCQ question as served to learners. It never carries the answer.
type Question struct {
	ID      int64    `json:"id" yaml:"id"`
	Stem    string   `json:"stem" yaml:"stem"`
	Options []Option `json:"options" yaml:"options"`
	Topic   *string  `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// DailyQuiz is the fetch-today response: an attempt and its questions.
type DailyQuiz struct {
	AttemptID int64      `json:"attemptId"`
	Questions []Question `json:"questions"`
}

// AnswerRecord is the learner's choice and viewing time for one question.
type AnswerRecord struct {
	Selected  int
	TimeSpent time.Duration
}

// MarshalJSON reports the time spent in whole milliseconds, like submission items.
func (r AnswerRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Selected int   `json:"selected"`
		TimeMs   int64 `json:"timeMs"`
	}{r.Selected, r.TimeSpent.Milliseconds()})
}

// Answered reports whether an option was selected.
func (r AnswerRecord) Answered() bool {
	return r.Selected != Unanswered
}

// SubmissionItem is one graded answer in a submission.
type SubmissionItem struct {
	QuestionID int64     `json:"questionId"`
	Choice     OptionKey `json:"choice"`
	TimeMs     *int64    `json:"timeMs,omitempty"`
	Idx        *int      `json:"idx,omitempty"`
}

// Submission is the submit-quiz request body.
type Submission struct {
	AttemptID     int64            `json:"attemptId"`
	FinishedAtISO string           `json:"finishedAtISO,omitempty"`
	Items         []SubmissionItem `json:"items"`
}

// SubmitResult is the graded outcome reported by the remote.
type SubmitResult struct {
	Score  float64  `json:"score"`
	Earned float64  `json:"earned"`
	Flags  []string `json:"flags"`
}

// BankQuestion is a question with its answer key, as held by a question bank.
type BankQuestion struct {
	Question    `yaml:",inline"`
	Answer      OptionKey `json:"answer" yaml:"answer"`
	Explanation string    `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// QuestionBank is the set of questions served on a given day.
type QuestionBank struct {
	Day       string         `json:"day" yaml:"day"`
	Questions []BankQuestion `json:"questions" yaml:"questions"`
}

// Public strips the answer keys.
func (b QuestionBank) Public() []Question {
	out := make([]Question, 0, len(b.Questions))
	for _, q := range b.Questions {
		out = append(out, q.Question)
	}
	return out
}

// DefaultBankDay names the bank served when a day has none of its own.
const DefaultBankDay = "default"

// AnswerKey is the graded answer for one question of an attempt.
type AnswerKey struct {
	QuestionID int64     `json:"questionId"`
	Answer     OptionKey `json:"answer"`
}

// Attempt is the grading state the quiz service keeps behind an attempt id.
type Attempt struct {
	ID        int64
	Subject   string
	Day       string
	StartedAt time.Time
	Key       []AnswerKey
	Submitted bool
}

// Theme selects the presentation palette.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme returns the theme for raw, or ThemeSystem when raw is unknown.
func ParseTheme(raw string) Theme {
	switch Theme(raw) {
	case ThemeLight, ThemeDark:
		return Theme(raw)
	default:
		return ThemeSystem
	}
}
