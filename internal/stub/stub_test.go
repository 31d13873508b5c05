package stub_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/auth"
	"prepsnap-quiz/internal/domain"
	"prepsnap-quiz/internal/infra/memory"
	"prepsnap-quiz/internal/infra/remote"
	"prepsnap-quiz/internal/stub"
)

var testNow = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

func TestTodayFallsBackToDefaultBank(t *testing.T) {
	svc := newService(time.Now, bank(domain.DefaultBankDay, domain.OptionA))

	quiz, err := svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	require.NotZero(t, quiz.AttemptID)
	require.Len(t, quiz.Questions, 1)

	again, err := svc.Today(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, quiz.AttemptID, again.AttemptID)
}

func TestTodayWithoutBanks(t *testing.T) {
	svc := newService(time.Now)

	_, err := svc.Today(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestGrade(t *testing.T) {
	clock := testNow
	svc := newService(func() time.Time { return clock },
		bank("2025-09-01", domain.OptionB, domain.OptionD),
	)
	ctx := context.Background()

	quiz, err := svc.Today(ctx, "u1")
	require.NoError(t, err)

	t.Run("wrong subject", func(t *testing.T) {
		_, err := svc.Grade(ctx, "u2", submission(quiz.AttemptID, "", domain.OptionB, domain.OptionD))
		require.ErrorIs(t, err, domain.ErrAttemptNotFound)
	})

	t.Run("perfect score", func(t *testing.T) {
		res, err := svc.Grade(ctx, "u1", submission(quiz.AttemptID, "2025-09-01T08:05:00.000Z", domain.OptionB, domain.OptionD))
		require.NoError(t, err)
		require.Equal(t, float64(2), res.Score)
		require.Equal(t, float64(stub.PerfectScoreCredit), res.Earned)
		require.Equal(t, []string{stub.FlagPerfectScore}, res.Flags)
	})

	t.Run("second submit rejected", func(t *testing.T) {
		_, err := svc.Grade(ctx, "u1", submission(quiz.AttemptID, "", domain.OptionB, domain.OptionD))
		require.ErrorIs(t, err, domain.ErrAlreadySubmitted)
	})

	t.Run("partial and overtime", func(t *testing.T) {
		second, err := svc.Today(ctx, "u3")
		require.NoError(t, err)

		res, err := svc.Grade(ctx, "u3", submission(second.AttemptID, "2025-09-01T08:10:00.001Z", domain.OptionB, domain.OptionA))
		require.NoError(t, err)
		require.Equal(t, float64(1), res.Score)
		require.Zero(t, res.Earned)
		require.Equal(t, []string{stub.FlagOvertime}, res.Flags)
	})
}

func TestRouter(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	svc := newService(time.Now, bank(domain.DefaultBankDay, domain.OptionC))
	srv := httptest.NewServer(stub.NewRouter(svc, issuer))
	defer srv.Close()

	token, err := issuer.Mint("u1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   []byte
		status int
	}{
		{name: "healthz is public", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "quiz needs a token", method: http.MethodGet, path: "/get-quiz-today", status: http.StatusUnauthorized},
		{name: "quiz rejects a bad token", method: http.MethodGet, path: "/get-quiz-today", token: "nope", status: http.StatusUnauthorized},
		{name: "quiz", method: http.MethodGet, path: "/get-quiz-today", token: token, status: http.StatusOK},
		{name: "submit needs a body", method: http.MethodPost, path: "/submit-quiz", token: token, body: []byte("{"), status: http.StatusBadRequest},
		{name: "submit needs an attempt", method: http.MethodPost, path: "/submit-quiz", token: token, body: []byte(`{"items":[]}`), status: http.StatusBadRequest},
		{name: "submit unknown attempt", method: http.MethodPost, path: "/submit-quiz", token: token, body: []byte(`{"attemptId":99,"items":[]}`), status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, bytes.NewReader(tt.body))
			require.NoError(t, err)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("quiz hides the answer key", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/get-quiz-today", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var raw map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		questions := raw["questions"].([]any)
		require.Len(t, questions, 1)
		require.NotContains(t, questions[0].(map[string]any), "answer")
	})
}

func TestClientSessionAgainstStub(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	svc := newService(time.Now, bank(domain.DefaultBankDay, domain.OptionB, domain.OptionA))
	srv := httptest.NewServer(stub.NewRouter(svc, issuer))
	defer srv.Close()

	token, err := issuer.Mint("player")
	require.NoError(t, err)
	client := remote.NewClient(srv.URL, auth.NewStaticProvider(token), 5*time.Second)
	ctx := context.Background()

	session := app.NewQuizService(app.Config{Remote: client}).Start(ctx)
	require.Equal(t, app.StateReady, session.View().State)

	require.NoError(t, session.SelectOption(1))
	require.NoError(t, session.Next(ctx))
	require.NoError(t, session.SelectOption(0))
	require.NoError(t, session.Next(ctx))

	view := session.View()
	require.Equal(t, app.StateCompleted, view.State)
	require.NotNil(t, view.Result)
	require.Equal(t, float64(2), view.Result.Score)
	require.Equal(t, float64(stub.PerfectScoreCredit), view.Result.Earned)
	require.Contains(t, view.Result.Flags, stub.FlagPerfectScore)

	// A second session gets the same attempt, which the stub refuses to grade twice.
	replay := app.NewQuizService(app.Config{Remote: client}).Start(ctx)
	require.NoError(t, replay.SelectOption(1))
	require.NoError(t, replay.Next(ctx))
	require.NoError(t, replay.SelectOption(0))
	err = replay.Next(ctx)
	require.Error(t, err)

	var se *domain.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusConflict, se.StatusCode)
	require.Equal(t, app.StateFailed, replay.View().State)
	require.True(t, replay.View().CanRetry)
}

func newService(clock func() time.Time, banks ...domain.QuestionBank) *stub.Service {
	return stub.NewService(stub.Config{
		Banks:    memory.NewBankRepository(memory.NewStaticBankLoader(banks), time.Minute),
		Attempts: memory.NewAttemptStore(),
		Duration: app.DefaultDuration,
		Clock:    clock,
	})
}

func bank(day string, answers ...domain.OptionKey) domain.QuestionBank {
	b := domain.QuestionBank{Day: day}
	for i, answer := range answers {
		b.Questions = append(b.Questions, domain.BankQuestion{
			Question: domain.Question{
				ID:   int64(i + 1),
				Stem: "Question",
				Options: []domain.Option{
					{Key: domain.OptionA, Text: "a"},
					{Key: domain.OptionB, Text: "b"},
					{Key: domain.OptionC, Text: "c"},
					{Key: domain.OptionD, Text: "d"},
				},
			},
			Answer: answer,
		})
	}
	return b
}

func submission(attemptID int64, finishedAt string, choices ...domain.OptionKey) domain.Submission {
	sub := domain.Submission{AttemptID: attemptID, FinishedAtISO: finishedAt}
	for i, c := range choices {
		sub.Items = append(sub.Items, domain.SubmissionItem{QuestionID: int64(i + 1), Choice: c})
	}
	return sub
}
