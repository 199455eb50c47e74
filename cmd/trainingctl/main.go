package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/config"
	"github.com/example/training-scheduler/internal/credential"
	"github.com/example/training-scheduler/internal/gateway"
	"github.com/example/training-scheduler/internal/logging"
	"github.com/example/training-scheduler/internal/shell"
	"github.com/example/training-scheduler/internal/store"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "configuration error:", err)
		return exitError
	}
	logger := logging.New(stderr, cfg.LogFormat, cfg.LogLevel)
	ctx = logging.ContextWithLogger(ctx, logger)

	a, err := newApp(ctx, cfg, logger, stdout, stderr)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return exitError
	}
	defer a.close()

	if err := a.dispatch(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintln(stderr, err)
			}
			printUsage(stderr)
			return exitUsage
		}
		fmt.Fprintln(stderr, "error:", describe(err))
		return exitError
	}
	return exitOK
}

// app is the wired command context of one invocation.
type app struct {
	cfg         config.Config
	shell       *shell.Shell
	credentials credential.Store
	logger      *slog.Logger
	stdout      io.Writer
	stderr      io.Writer
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) (*app, error) {
	creds, err := credential.Open(ctx, credential.Options{
		Backend: cfg.CredentialBackend,
		SQLite:  credential.DefaultSQLiteConfig(cfg.CredentialDSN),
		Redis: credential.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		Secret: cfg.CredentialSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	var sh *shell.Shell
	tokens := gateway.TokenFunc(func() string {
		if sh == nil {
			return ""
		}
		return sh.Auth().AuthToken()
	})
	client := gateway.NewClient(cfg.APIBaseURL,
		gateway.WithHTTPClient(gateway.DefaultHTTPClient(cfg.APITimeout)),
		gateway.WithTokenSource(tokens),
		gateway.WithLogger(logger),
	)

	sh, err = shell.New(shell.Dependencies{
		Gateway:     client,
		Credentials: creds,
		Logger:      logger,
		Now:         time.Now,
		Sink:        store.SinkFunc(func(n application.Notification) { printNotification(stderr, n) }),
		PageSize:    cfg.PageSize,
	})
	if err != nil {
		creds.Close()
		return nil, err
	}

	if err := sh.Start(ctx); err != nil {
		// The stored identity was discarded; the user has to log in again.
		fmt.Fprintln(stderr, "warning:", describe(err))
	}

	return &app{cfg: cfg, shell: sh, credentials: creds, logger: logger, stdout: stdout, stderr: stderr}, nil
}

func (a *app) close() {
	a.shell.Close()
	if err := a.credentials.Close(); err != nil {
		a.logger.Warn("failed to close credential store", "error", err)
	}
}

// await waits for a dispatched task, passing through an immediate rejection.
// Gateway calls honour the command context, so the task always settles.
func await[T any](task *store.Task[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	<-task.Done()
	return task.Result()
}

// describe renders an error for the terminal, expanding field errors.
func describe(err error) string {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		msg := "invalid input"
		for _, field := range sortedKeys(vErr.FieldErrors) {
			msg += fmt.Sprintf("\n  %s: %s", field, vErr.FieldErrors[field])
		}
		return msg
	}
	switch {
	case errors.Is(err, application.ErrNotAuthenticated):
		return "not logged in; run `trainingctl login` first"
	case errors.Is(err, application.ErrSessionExpired):
		return "stored session expired; please log in again"
	case errors.Is(err, application.ErrUnknownRole):
		return "stored account has an unknown role; please log in again"
	}
	return err.Error()
}
