package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/gateway"
)

// ScheduleGateway is the remote surface the schedule store needs.
type ScheduleGateway interface {
	ListSchedules(ctx context.Context) ([]application.Schedule, error)
	CreateSchedule(ctx context.Context, input application.ScheduleInput) (application.Schedule, error)
	UpdateSchedule(ctx context.Context, id string, schedule application.Schedule) (application.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// SessionGateway is the remote surface the session store needs.
type SessionGateway interface {
	ListSessions(ctx context.Context, scheduleID string, page, pageSize int) (gateway.SessionPage, error)
	CreateSession(ctx context.Context, session application.Session) (application.Session, error)
	UpdateSession(ctx context.Context, session application.Session) (application.Session, error)
	DeleteSession(ctx context.Context, scheduleID, sessionID string) error
	ListAvailableSessions(ctx context.Context) ([]application.Session, error)
	ListApplications(ctx context.Context) ([]application.InstructorApplication, error)
	ApplyForSession(ctx context.Context, sessionID string) (application.InstructorApplication, error)
	CancelApplication(ctx context.Context, applicationID string) error
}

// AuthGateway is the remote surface the auth store needs.
type AuthGateway interface {
	Login(ctx context.Context, creds application.LoginCredentials) (application.AuthResult, error)
}

// base carries the mutex, detach flag and logger shared by the entity stores.
type base struct {
	mu     sync.Mutex
	closed bool
	// lastErr is the message of the most recent failure of any operation.
	lastErr   string
	component string
	logger    *slog.Logger
}

func newBase(component string, logger *slog.Logger) base {
	return base{component: component, logger: application.DefaultLogger(logger)}
}

// Close detaches the store. Results that complete afterwards are discarded and
// their tasks settle with application.ErrDetached.
func (b *base) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Closed reports whether Close has been called.
func (b *base) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// op describes one dispatched store operation.
type op[T any] struct {
	name      string
	lifecycle *Lifecycle
	call      func(context.Context) (T, error)
	// apply runs under the store mutex after a successful call.
	apply func(T)
	attrs []any
}

// dispatch runs o.call on its own goroutine and applies the outcome under the
// store mutex in completion order.
func dispatch[T any](ctx context.Context, b *base, o op[T]) *Task[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	var zero T

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return settledTask(zero, application.ErrDetached)
	}
	o.lifecycle.begin()
	b.mu.Unlock()

	logger := application.ComponentLogger(ctx, b.logger, b.component, o.name, o.attrs...)
	task := newTask[T]()
	start := time.Now()

	go func() {
		value, err := o.call(ctx)

		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			logger.DebugContext(ctx, "discarding result of detached store", "error_kind", application.ErrorKind(err))
			task.settle(zero, application.ErrDetached)
			return
		}
		o.lifecycle.end(err)
		if err != nil {
			b.lastErr = errorMessage(err)
		}
		if err == nil && o.apply != nil {
			o.apply(value)
		}
		b.mu.Unlock()

		if err != nil {
			logger.WarnContext(ctx, "store operation failed", "error", err, "error_kind", application.ErrorKind(err), "duration", time.Since(start))
			task.settle(zero, err)
			return
		}
		logger.DebugContext(ctx, "store operation applied", "duration", time.Since(start))
		task.settle(value, nil)
	}()

	return task
}

// IsDetached reports whether err came from a store closed mid-flight.
func IsDetached(err error) bool {
	return errors.Is(err, application.ErrDetached)
}
