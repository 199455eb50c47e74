package store

import (
	"context"
	"log/slog"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/gateway"
)

// SessionState is a point in time copy of the session store.
type SessionState struct {
	// ScheduleID is the schedule whose sessions were fetched last.
	ScheduleID string
	Items      []application.Session
	Meta       *application.PageMeta
	Fetch      Lifecycle
	Add        Lifecycle
	Update     Lifecycle
	Delete     Lifecycle

	AvailableSessions []application.Session
	FetchAvailable    Lifecycle

	Applications      []application.InstructorApplication
	FetchApplications Lifecycle
	Apply             Lifecycle
	Cancel            Lifecycle

	Error string
}

// Status reports the session fetch lifecycle status.
func (s SessionState) Status() Status {
	return s.Fetch.Status
}

// SessionStore owns the sessions of one schedule plus the instructor
// application collections.
type SessionStore struct {
	base
	gateway SessionGateway

	scheduleID string
	items      collection[application.Session]
	meta       *application.PageMeta
	fetch      Lifecycle
	add        Lifecycle
	update     Lifecycle
	delete     Lifecycle

	available      collection[application.Session]
	fetchAvailable Lifecycle

	applications      collection[application.InstructorApplication]
	fetchApplications Lifecycle
	apply             Lifecycle
	cancel            Lifecycle
}

// NewSessionStore builds an empty, idle session store.
func NewSessionStore(gw SessionGateway, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		base:              newBase("session_store", logger),
		gateway:           gw,
		items:             newCollection(application.Session.Clone),
		fetch:             idleLifecycle(),
		add:               idleLifecycle(),
		update:            idleLifecycle(),
		delete:            idleLifecycle(),
		available:         newCollection(application.Session.Clone),
		fetchAvailable:    idleLifecycle(),
		applications:      newCollection(cloneApplication),
		fetchApplications: idleLifecycle(),
		apply:             idleLifecycle(),
		cancel:            idleLifecycle(),
	}
}

func cloneApplication(a application.InstructorApplication) application.InstructorApplication {
	out := a
	out.Session = a.Session.Clone()
	return out
}

// Fetch replaces the held sessions with one page of scheduleID's sessions.
// Non-positive page values let the service choose.
func (s *SessionStore) Fetch(ctx context.Context, scheduleID string, page, pageSize int) *Task[gateway.SessionPage] {
	return dispatch(ctx, &s.base, op[gateway.SessionPage]{
		name:      "fetch",
		lifecycle: &s.fetch,
		attrs:     []any{"schedule_id", scheduleID, "page", page, "page_size", pageSize},
		call: func(ctx context.Context) (gateway.SessionPage, error) {
			return s.gateway.ListSessions(ctx, scheduleID, page, pageSize)
		},
		apply: func(result gateway.SessionPage) {
			s.scheduleID = scheduleID
			s.items.replaceAll(result.Data)
			s.meta = copyMeta(result.Meta)
			s.lastErr = ""
		},
	})
}

// Add creates a session and appends the server's entity on success.
func (s *SessionStore) Add(ctx context.Context, session application.Session) *Task[application.Session] {
	return dispatch(ctx, &s.base, op[application.Session]{
		name:      "add",
		lifecycle: &s.add,
		attrs:     []any{"schedule_id", session.ScheduleID},
		call: func(ctx context.Context) (application.Session, error) {
			return s.gateway.CreateSession(ctx, session)
		},
		apply: func(created application.Session) {
			s.items.append(created)
		},
	})
}

// Update replaces the stored session in place with the server's version. An id
// that is no longer held locally is ignored.
func (s *SessionStore) Update(ctx context.Context, session application.Session) *Task[application.Session] {
	return dispatch(ctx, &s.base, op[application.Session]{
		name:      "update",
		lifecycle: &s.update,
		attrs:     []any{"schedule_id", session.ScheduleID, "session_id", session.ID},
		call: func(ctx context.Context) (application.Session, error) {
			return s.gateway.UpdateSession(ctx, session)
		},
		apply: func(updated application.Session) {
			s.items.replace(updated)
			s.available.replace(updated)
		},
	})
}

// Delete removes a session of scheduleID.
func (s *SessionStore) Delete(ctx context.Context, scheduleID, sessionID string) *Task[string] {
	return dispatch(ctx, &s.base, op[string]{
		name:      "delete",
		lifecycle: &s.delete,
		attrs:     []any{"schedule_id", scheduleID, "session_id", sessionID},
		call: func(ctx context.Context) (string, error) {
			return sessionID, s.gateway.DeleteSession(ctx, scheduleID, sessionID)
		},
		apply: func(deleted string) {
			s.items.remove(deleted)
			s.available.remove(deleted)
		},
	})
}

// FetchAvailable replaces the sessions that still have no instructor.
func (s *SessionStore) FetchAvailable(ctx context.Context) *Task[[]application.Session] {
	return dispatch(ctx, &s.base, op[[]application.Session]{
		name:      "fetch_available",
		lifecycle: &s.fetchAvailable,
		call: func(ctx context.Context) ([]application.Session, error) {
			return s.gateway.ListAvailableSessions(ctx)
		},
		apply: func(sessions []application.Session) {
			s.available.replaceAll(sessions)
		},
	})
}

// FetchApplications replaces the caller's applications.
func (s *SessionStore) FetchApplications(ctx context.Context) *Task[[]application.InstructorApplication] {
	return dispatch(ctx, &s.base, op[[]application.InstructorApplication]{
		name:      "fetch_applications",
		lifecycle: &s.fetchApplications,
		call: func(ctx context.Context) ([]application.InstructorApplication, error) {
			return s.gateway.ListApplications(ctx)
		},
		apply: func(apps []application.InstructorApplication) {
			s.applications.replaceAll(apps)
		},
	})
}

// Apply files an application for sessionID. Whether the session is still free
// is decided by the service; a late rejection surfaces as the task error.
func (s *SessionStore) Apply(ctx context.Context, sessionID string) *Task[application.InstructorApplication] {
	return dispatch(ctx, &s.base, op[application.InstructorApplication]{
		name:      "apply",
		lifecycle: &s.apply,
		attrs:     []any{"session_id", sessionID},
		call: func(ctx context.Context) (application.InstructorApplication, error) {
			return s.gateway.ApplyForSession(ctx, sessionID)
		},
		apply: func(app application.InstructorApplication) {
			if app.Status == "" {
				app.Status = application.ApplicationPending
			}
			s.applications.append(app)
			s.available.remove(sessionID)
		},
	})
}

// Cancel withdraws an application and removes it locally on success. The
// service refuses applications that are no longer pending.
func (s *SessionStore) Cancel(ctx context.Context, applicationID string) *Task[string] {
	return dispatch(ctx, &s.base, op[string]{
		name:      "cancel",
		lifecycle: &s.cancel,
		attrs:     []any{"application_id", applicationID},
		call: func(ctx context.Context) (string, error) {
			return applicationID, s.gateway.CancelApplication(ctx, applicationID)
		},
		apply: func(cancelled string) {
			s.applications.remove(cancelled)
		},
	})
}

// InvalidateSchedule drops every locally held session of scheduleID. The
// remote service owns the actual cascade.
func (s *SessionStore) InvalidateSchedule(scheduleID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	belongs := func(session application.Session) bool { return session.ScheduleID == scheduleID }
	removed := s.items.removeWhere(belongs)
	removed += s.available.removeWhere(belongs)
	if s.scheduleID == scheduleID {
		s.meta = nil
	}
	return removed
}

// Snapshot copies the current state.
func (s *SessionStore) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ScheduleID:        s.scheduleID,
		Items:             s.items.snapshot(),
		Meta:              copyMeta(s.meta),
		Fetch:             s.fetch,
		Add:               s.add,
		Update:            s.update,
		Delete:            s.delete,
		AvailableSessions: s.available.snapshot(),
		FetchAvailable:    s.fetchAvailable,
		Applications:      s.applications.snapshot(),
		FetchApplications: s.fetchApplications,
		Apply:             s.apply,
		Cancel:            s.cancel,
		Error:             s.lastErr,
	}
}

// Find returns the session with id from the current schedule's sessions.
func (s *SessionStore) Find(id string) (application.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.find(id)
}

// FindApplication returns the caller's application with id.
func (s *SessionStore) FindApplication(id string) (application.InstructorApplication, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applications.find(id)
}

func copyMeta(meta *application.PageMeta) *application.PageMeta {
	if meta == nil {
		return nil
	}
	out := *meta
	return &out
}
