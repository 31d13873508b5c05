package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/domain"
)

func TestPlaySessionFinishesQuiz(t *testing.T) {
	remote := &playRemote{result: domain.SubmitResult{Score: 1, Earned: 3, Flags: []string{"perfect_score"}}}
	session := app.NewQuizService(app.Config{Remote: remote, TickInterval: time.Hour}).Start(context.Background())
	defer session.Close()

	var out bytes.Buffer
	in := strings.NewReader("x\nc\n\nn\nq\n")
	if err := playSession(context.Background(), session, in, &out); err != nil {
		t.Fatalf("play: %v", err)
	}

	if len(remote.submitted) != 1 || remote.submitted[0].Items[0].Choice != domain.OptionC {
		t.Fatalf("unexpected submissions %+v", remote.submitted)
	}
	text := out.String()
	for _, want := range []string{
		"Question 1/1  [10:00]",
		`unknown command "x"`,
		" * C) three",
		"Score: 1  Earned: 3  Flags: perfect_score",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestPlaySessionStopsOnFailedLoad(t *testing.T) {
	remote := &playRemote{fetchErr: domain.ErrAuthenticationMissing}
	session := app.NewQuizService(app.Config{Remote: remote}).Start(context.Background())
	defer session.Close()

	var out bytes.Buffer
	if err := playSession(context.Background(), session, strings.NewReader("n\n"), &out); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.Contains(out.String(), "Failed: not signed in") {
		t.Fatalf("expected failure to be rendered, got:\n%s", out.String())
	}
}

func TestOptionIndex(t *testing.T) {
	cases := map[string]int{"a": 0, "d": 3, "1": 0, "4": 3}
	for cmd, want := range cases {
		if got, ok := optionIndex(cmd); !ok || got != want {
			t.Fatalf("optionIndex(%q) = %d, %v", cmd, got, ok)
		}
	}
	for _, cmd := range []string{"e", "5", "0", "ab"} {
		if _, ok := optionIndex(cmd); ok {
			t.Fatalf("optionIndex(%q) should be rejected", cmd)
		}
	}
}

func TestResolvePort(t *testing.T) {
	if got := resolvePort("9000", "8000", "8080"); got != "9000" {
		t.Fatalf("flag should win, got %s", got)
	}
	if got := resolvePort("", "8000", "8080"); got != "8000" {
		t.Fatalf("config should win over fallback, got %s", got)
	}
	if got := resolvePort("", "", "8080"); got != "8080" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

type playRemote struct {
	fetchErr  error
	result    domain.SubmitResult
	submitted []domain.Submission
}

func (r *playRemote) FetchToday(context.Context) (domain.DailyQuiz, error) {
	if r.fetchErr != nil {
		return domain.DailyQuiz{}, r.fetchErr
	}
	return domain.DailyQuiz{
		AttemptID: 1,
		Questions: []domain.Question{{
			ID:   10,
			Stem: "Pick three",
			Options: []domain.Option{
				{Key: domain.OptionA, Text: "one"},
				{Key: domain.OptionB, Text: "two"},
				{Key: domain.OptionC, Text: "three"},
				{Key: domain.OptionD, Text: "four"},
			},
		}},
	}, nil
}

func (r *playRemote) Submit(_ context.Context, s domain.Submission) (domain.SubmitResult, error) {
	r.submitted = append(r.submitted, s)
	return r.result, nil
}
