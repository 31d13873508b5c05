package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prepsnap-quiz/internal/app"
	"prepsnap-quiz/internal/auth"
	"prepsnap-quiz/internal/config"
	"prepsnap-quiz/internal/infra/memory"
	"prepsnap-quiz/internal/infra/remote"
	"prepsnap-quiz/internal/telemetry"
	transport "prepsnap-quiz/internal/transport/http"
)

const (
	defaultServePort = "8080"
	defaultBaseURL   = "http://localhost:8081"
)

// NewServeCmd builds the subcommand that serves quiz sessions over websockets.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve quiz sessions to websocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *port)
		},
	}
}

func runServe(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	registry := memory.NewSessionRegistry()
	service := newQuizService(cfg)
	wsHandler := transport.NewWSHandler(service, registry, cfg.Theme())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	return serveHTTP(ctx, "quiz server", resolvePort(portFlag, cfg.Server.Port, defaultServePort), mux, registry.CloseAll)
}

// newQuizService wires a quiz service to the configured remote.
func newQuizService(cfg config.Config) *app.QuizService {
	baseURL := cfg.Remote.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	token := cfg.Remote.Token
	if env := os.Getenv("PREPSNAP_TOKEN"); env != "" {
		token = env
	}

	client := remote.NewClient(baseURL, auth.NewStaticProvider(token), config.TTLDuration(cfg.Remote.Timeout, 0))
	return app.NewQuizService(app.Config{
		Remote:       client,
		Duration:     config.TTLDuration(cfg.Quiz.Duration, app.DefaultDuration),
		TickInterval: config.TTLDuration(cfg.Quiz.Tick, app.DefaultTickInterval),
		OnTransition: func(_, to app.State) {
			telemetry.ObserveTransition(to.String())
		},
	})
}

func resolvePort(flag, configured, fallback string) string {
	if flag != "" {
		return flag
	}
	if configured != "" {
		return configured
	}
	return fallback
}

// serveHTTP runs handler until SIGINT, SIGTERM or ctx cancellation, then
// shuts down gracefully and runs cleanup.
func serveHTTP(ctx context.Context, name, port string, handler http.Handler, cleanup func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.InfoContext(ctx, "starting "+name, "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down " + name)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if cleanup != nil {
			cleanup()
		}
		return err
	})
	return eg.Wait()
}
