package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"prepsnap-quiz/internal/auth"
	"prepsnap-quiz/internal/domain"
)

const (
	opFetchToday = "get-quiz-today"
	opSubmit     = "submit-quiz"

	maxErrorBody = 4 << 10
)

// Client calls the quiz service over HTTP. It implements app.Remote.
type Client struct {
	base   string
	tokens auth.Provider
	http   *http.Client
}

// NewClient returns a client for baseURL. A zero timeout keeps the transport default.
func NewClient(baseURL string, tokens auth.Provider, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		http:   &http.Client{Timeout: timeout},
	}
}

// FetchToday returns today's attempt and questions.
func (c *Client) FetchToday(ctx context.Context) (domain.DailyQuiz, error) {
	var quiz domain.DailyQuiz
	if err := c.do(ctx, http.MethodGet, opFetchToday, nil, &quiz); err != nil {
		return domain.DailyQuiz{}, err
	}
	return quiz, nil
}

// Submit sends the finished attempt for grading.
func (c *Client) Submit(ctx context.Context, submission domain.Submission) (domain.SubmitResult, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("%s: marshal: %w", opSubmit, err)
	}

	var res domain.SubmitResult
	if err := c.do(ctx, http.MethodPost, opSubmit, body, &res); err != nil {
		return domain.SubmitResult{}, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, op string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+op, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "remote: call finished",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &domain.StatusError{Op: op, StatusCode: resp.StatusCode}
		if method == http.MethodPost {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			se.Body = strings.TrimSpace(string(text))
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", op, domain.ErrNetworkFailure, err)
	}
	return nil
}
