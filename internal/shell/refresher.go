package shell

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/store"
)

// DefaultRefreshSchedule re-fetches schedules once a minute.
const DefaultRefreshSchedule = "@every 1m"

// Refresher re-fetches the schedule collection on a cron schedule.
type Refresher struct {
	shell  *Shell
	cron   *cron.Cron
	entry  cron.EntryID
	logger *slog.Logger

	// OnRefresh, when set, receives the store state after every attempt.
	OnRefresh func(store.ScheduleState, error)

	mu  sync.Mutex
	ctx context.Context
}

// NewRefresher parses spec (standard five-field cron or a descriptor such as
// "@every 30s") and prepares a stopped refresher.
func NewRefresher(sh *Shell, spec string) (*Refresher, error) {
	if sh == nil {
		return nil, fmt.Errorf("shell: refresher needs a shell")
	}
	if spec == "" {
		spec = DefaultRefreshSchedule
	}
	r := &Refresher{
		shell:  sh,
		cron:   cron.New(),
		logger: sh.logger,
		ctx:    context.Background(),
	}
	entry, err := r.cron.AddFunc(spec, func() { r.RefreshNow(r.context()) })
	if err != nil {
		return nil, fmt.Errorf("shell: invalid refresh schedule %q: %w", spec, err)
	}
	r.entry = entry
	return r, nil
}

func (r *Refresher) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}

// Start runs the schedule in the background. Scheduled refreshes use ctx.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	r.cron.Start()
	application.ComponentLogger(ctx, r.logger, "refresher", "start").InfoContext(ctx, "schedule refresher started", "next", r.cron.Entry(r.entry).Next)
}

// Stop halts the schedule and waits for a running refresh or ctx, whichever
// ends first.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RefreshNow performs one refresh synchronously.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	logger := application.ComponentLogger(ctx, r.logger, "refresher", "refresh")

	task, err := r.shell.LoadSchedules(ctx)
	if err == nil {
		_, err = task.Wait(ctx)
	}
	state := r.shell.schedules.Snapshot()
	if err != nil {
		logger.WarnContext(ctx, "schedule refresh failed", "error", err, "error_kind", application.ErrorKind(err))
	} else {
		logger.DebugContext(ctx, "schedules refreshed", "count", len(state.Items))
	}
	if r.OnRefresh != nil {
		r.OnRefresh(state, err)
	}
	return err
}
