package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/config"
)

const playHelp = "a-d or 1-4 select, n next/finish, p previous, r retry, q quit"

// NewPlayCmd builds the subcommand that plays today's quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play today's quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			session := newQuizService(cfg).Start(ctx)
			defer session.Close()
			return playSession(ctx, session, os.Stdin, cmd.OutOrStdout())
		},
	}
}

// playSession reads commands from in until quit, end of input, or the
// session can make no further progress, rendering every view to out.
func playSession(ctx context.Context, session *app.Session, in io.Reader, out io.Writer) error {
	p := &player{out: out}
	p.printf("%s\n", playHelp)

	views, cancel := session.Subscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for v := range views {
			p.render(v)
		}
	}()
	defer func() {
		cancel()
		<-rendered
	}()

	if v := session.View(); v.State == app.StateReady && !v.Empty {
		if err := session.StartCountdown(ctx); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for !finished(session.View()) && scanner.Scan() {
		cmd := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if cmd == "" {
			continue
		}
		if cmd == "q" {
			return nil
		}
		if err := runCommand(ctx, session, cmd); err != nil {
			p.printf("! %v\n", err)
		}
	}
	return scanner.Err()
}

func runCommand(ctx context.Context, session *app.Session, cmd string) error {
	switch cmd {
	case "n":
		return session.Next(ctx)
	case "p":
		return session.Previous()
	case "r":
		return session.RetrySubmit(ctx)
	}
	if idx, ok := optionIndex(cmd); ok {
		return session.SelectOption(idx)
	}
	return fmt.Errorf("unknown command %q (%s)", cmd, playHelp)
}

func optionIndex(cmd string) (int, bool) {
	if len(cmd) != 1 {
		return 0, false
	}
	switch c := cmd[0]; {
	case c >= 'a' && c <= 'd':
		return int(c - 'a'), true
	case c >= '1' && c <= '4':
		return int(c - '1'), true
	}
	return 0, false
}

// finished reports whether no command can change the session any more.
func finished(v app.View) bool {
	switch v.State {
	case app.StateCompleted:
		return true
	case app.StateFailed:
		return !v.CanRetry
	case app.StateReady:
		return v.Empty
	}
	return false
}

type player struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (p *player) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// render prints the full screen when something other than the clock changed,
// and only the clock line otherwise.
func (p *player) render(v app.View) {
	key := fmt.Sprintf("%s/%d/%d/%s", v.State, v.Index, v.Selected, v.Message)
	p.mu.Lock()
	defer p.mu.Unlock()

	if key == p.last && v.State == app.StateReady {
		fmt.Fprintf(p.out, "  [%s]\n", v.RemainingText)
		return
	}
	p.last = key

	switch v.State {
	case app.StateLoading:
		fmt.Fprintln(p.out, "Loading today's quiz...")
	case app.StateSubmitting:
		fmt.Fprintln(p.out, "Submitting...")
	case app.StateFailed:
		fmt.Fprintf(p.out, "Failed: %s\n", v.Message)
		if v.CanRetry {
			fmt.Fprintln(p.out, "Press r to retry the submission.")
		}
	case app.StateCompleted:
		if v.Result != nil {
			fmt.Fprintf(p.out, "Score: %g  Earned: %g", v.Result.Score, v.Result.Earned)
			if len(v.Result.Flags) > 0 {
				fmt.Fprintf(p.out, "  Flags: %s", strings.Join(v.Result.Flags, ", "))
			}
			fmt.Fprintln(p.out)
		}
	case app.StateReady:
		if v.Empty {
			fmt.Fprintln(p.out, v.Message)
			return
		}
		q := v.Question
		fmt.Fprintf(p.out, "\nQuestion %d/%d  [%s]\n", v.Index+1, v.Total, v.RemainingText)
		if q.Topic != nil {
			fmt.Fprintf(p.out, "(%s)\n", *q.Topic)
		}
		fmt.Fprintln(p.out, q.Stem)
		for i, opt := range q.Options {
			mark := " "
			if i == v.Selected {
				mark = "*"
			}
			fmt.Fprintf(p.out, " %s %s) %s\n", mark, opt.Key, opt.Text)
		}
		if v.IsLast {
			fmt.Fprintln(p.out, "n to finish")
		}
		if v.Expired {
			fmt.Fprintln(p.out, "Time is up.")
		}
	}
}
