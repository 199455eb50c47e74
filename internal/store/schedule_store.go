package store

import (
	"context"
	"log/slog"

	"github.com/example/training-scheduler/internal/application"
)

// ScheduleState is a point in time copy of the schedule store.
type ScheduleState struct {
	Items  []application.Schedule
	Fetch  Lifecycle
	Add    Lifecycle
	Update Lifecycle
	Delete Lifecycle
	// Error is the message of the most recent failure of any kind.
	Error string
}

// Status reports the fetch lifecycle status.
func (s ScheduleState) Status() Status {
	return s.Fetch.Status
}

// ScheduleStore owns the schedule collection.
type ScheduleStore struct {
	base
	gateway ScheduleGateway

	items  collection[application.Schedule]
	fetch  Lifecycle
	add    Lifecycle
	update Lifecycle
	delete Lifecycle
}

// NewScheduleStore builds an empty, idle schedule store.
func NewScheduleStore(gw ScheduleGateway, logger *slog.Logger) *ScheduleStore {
	return &ScheduleStore{
		base:    newBase("schedule_store", logger),
		gateway: gw,
		items:   newCollection[application.Schedule](nil),
		fetch:   idleLifecycle(),
		add:     idleLifecycle(),
		update:  idleLifecycle(),
		delete:  idleLifecycle(),
	}
}

// Fetch replaces the collection with the server's schedules. A failure keeps
// the last known collection.
func (s *ScheduleStore) Fetch(ctx context.Context) *Task[[]application.Schedule] {
	return dispatch(ctx, &s.base, op[[]application.Schedule]{
		name:      "fetch",
		lifecycle: &s.fetch,
		call: func(ctx context.Context) ([]application.Schedule, error) {
			return s.gateway.ListSchedules(ctx)
		},
		apply: func(items []application.Schedule) {
			s.items.replaceAll(items)
			s.lastErr = ""
		},
	})
}

// Add creates a schedule and appends the server's entity on success.
func (s *ScheduleStore) Add(ctx context.Context, input application.ScheduleInput) *Task[application.Schedule] {
	return dispatch(ctx, &s.base, op[application.Schedule]{
		name:      "add",
		lifecycle: &s.add,
		call: func(ctx context.Context) (application.Schedule, error) {
			return s.gateway.CreateSchedule(ctx, input)
		},
		apply: func(created application.Schedule) {
			s.items.append(created)
		},
	})
}

// Update sends schedule and replaces the stored entity with the server's
// version in place. An id that is no longer held locally is ignored.
func (s *ScheduleStore) Update(ctx context.Context, schedule application.Schedule) *Task[application.Schedule] {
	return dispatch(ctx, &s.base, op[application.Schedule]{
		name:      "update",
		lifecycle: &s.update,
		attrs:     []any{"schedule_id", schedule.ID},
		call: func(ctx context.Context) (application.Schedule, error) {
			return s.gateway.UpdateSchedule(ctx, schedule.ID, schedule)
		},
		apply: func(updated application.Schedule) {
			s.items.replace(updated)
		},
	})
}

// Delete removes the schedule with id. Deleting an id that is not held locally
// leaves the collection as it is.
func (s *ScheduleStore) Delete(ctx context.Context, id string) *Task[string] {
	return dispatch(ctx, &s.base, op[string]{
		name:      "delete",
		lifecycle: &s.delete,
		attrs:     []any{"schedule_id", id},
		call: func(ctx context.Context) (string, error) {
			return id, s.gateway.DeleteSchedule(ctx, id)
		},
		apply: func(deleted string) {
			s.items.remove(deleted)
		},
	})
}

// Snapshot copies the current state.
func (s *ScheduleStore) Snapshot() ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScheduleState{
		Items:  s.items.snapshot(),
		Fetch:  s.fetch,
		Add:    s.add,
		Update: s.update,
		Delete: s.delete,
		Error:  s.lastErr,
	}
}

// Items copies the current collection.
func (s *ScheduleStore) Items() []application.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.snapshot()
}

// Find returns the schedule with id when it is held locally.
func (s *ScheduleStore) Find(id string) (application.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.find(id)
}
