package testfixtures

import (
	"context"
	"sync"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/gateway"
)

// Operation names recorded by FakeGateway. They match the operation names the
// real gateway uses in its failure messages.
const (
	OpLogin             = "log in"
	OpListSchedules     = "fetch schedules"
	OpCreateSchedule    = "create schedule"
	OpUpdateSchedule    = "update schedule"
	OpDeleteSchedule    = "delete schedule"
	OpListSessions      = "fetch sessions"
	OpCreateSession     = "add session"
	OpUpdateSession     = "update session"
	OpDeleteSession     = "delete session"
	OpListAvailable     = "fetch available sessions"
	OpListApplications  = "fetch applications"
	OpApplyForSession   = "apply for session"
	OpCancelApplication = "cancel application"
)

// HeldCall is a gateway call paused until the test releases it.
type HeldCall struct {
	Op      string
	release chan struct{}
	once    sync.Once
}

// Release lets the call complete.
func (h *HeldCall) Release() {
	h.once.Do(func() { close(h.release) })
}

// FakeGateway is an in-memory remote service. Calls can be failed or held so
// tests control completion order.
type FakeGateway struct {
	mu           sync.Mutex
	schedules    []application.Schedule
	sessions     []application.Session
	applications []application.InstructorApplication
	users        map[string]application.AuthResult
	failures     map[string]error
	held         map[string]bool
	calls        map[string]int
	ids          *IDGenerator
	creator      string

	heldCalls chan *HeldCall
}

// NewFakeGateway returns an empty fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		users:     make(map[string]application.AuthResult),
		failures:  make(map[string]error),
		held:      make(map[string]bool),
		calls:     make(map[string]int),
		ids:       NewIDGenerator("srv"),
		creator:   "user-admin",
		heldCalls: make(chan *HeldCall, 64),
	}
}

// SeedSchedules replaces the remote schedules.
func (f *FakeGateway) SeedSchedules(schedules ...application.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules = append([]application.Schedule(nil), schedules...)
}

// SeedSessions replaces the remote sessions.
func (f *FakeGateway) SeedSessions(sessions ...application.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = nil
	for _, s := range sessions {
		f.sessions = append(f.sessions, s.Clone())
	}
}

// SeedApplications replaces the remote applications.
func (f *FakeGateway) SeedApplications(apps ...application.InstructorApplication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applications = append([]application.InstructorApplication(nil), apps...)
}

// AddUser registers credentials accepted by Login.
func (f *FakeGateway) AddUser(password string, result application.AuthResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[result.User.Username+"\x00"+password] = result
}

// Fail makes every call to op return err until cleared with a nil err.
func (f *FakeGateway) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Hold pauses subsequent calls to op; each paused call is delivered on Held.
func (f *FakeGateway) Hold(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[op] = true
}

// Held delivers calls paused by Hold in the order they arrived.
func (f *FakeGateway) Held() <-chan *HeldCall {
	return f.heldCalls
}

// Calls reports how many times op was invoked.
func (f *FakeGateway) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls reports how many calls of any kind were made.
func (f *FakeGateway) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// enter records the call, waits while it is held and returns the injected
// failure, if any.
func (f *FakeGateway) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	held := f.held[op]
	f.mu.Unlock()

	if held {
		call := &HeldCall{Op: op, release: make(chan struct{})}
		f.heldCalls <- call
		select {
		case <-call.release:
		case <-ctx.Done():
			return &gateway.Error{Code: gateway.CodeCanceled, Message: "Failed to " + op + ": request canceled", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[op]
}

func notFound(op string) error {
	return &gateway.Error{Code: "HTTP_404", Message: "Failed to " + op + " (404 Not Found)", Status: 404}
}

// Login implements the gateway login.
func (f *FakeGateway) Login(ctx context.Context, creds application.LoginCredentials) (application.AuthResult, error) {
	if err := f.enter(ctx, OpLogin); err != nil {
		return application.AuthResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.users[creds.Username+"\x00"+creds.Password]
	if !ok {
		return application.AuthResult{}, &gateway.Error{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", Status: 401}
	}
	return result, nil
}

// ListSchedules implements the gateway call.
func (f *FakeGateway) ListSchedules(ctx context.Context) ([]application.Schedule, error) {
	if err := f.enter(ctx, OpListSchedules); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]application.Schedule(nil), f.schedules...), nil
}

// CreateSchedule implements the gateway call.
func (f *FakeGateway) CreateSchedule(ctx context.Context, input application.ScheduleInput) (application.Schedule, error) {
	if err := f.enter(ctx, OpCreateSchedule); err != nil {
		return application.Schedule{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := application.Schedule{
		ID:              f.ids.Next(),
		Date:            input.Date,
		InstitutionID:   input.InstitutionID,
		InstitutionName: input.InstitutionName,
		Region:          input.Region,
		Capacity:        input.Capacity,
		TrainingType:    input.TrainingType,
		Status:          input.Status,
		CreatedBy:       f.creator,
	}
	f.schedules = append(f.schedules, created)
	return created, nil
}

// UpdateSchedule implements the gateway call. The creator stays server owned.
func (f *FakeGateway) UpdateSchedule(ctx context.Context, id string, schedule application.Schedule) (application.Schedule, error) {
	if err := f.enter(ctx, OpUpdateSchedule); err != nil {
		return application.Schedule{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.schedules {
		if f.schedules[i].ID == id {
			schedule.ID = id
			schedule.CreatedBy = f.schedules[i].CreatedBy
			f.schedules[i] = schedule
			return schedule, nil
		}
	}
	return application.Schedule{}, notFound(OpUpdateSchedule)
}

// DeleteSchedule implements the gateway call and cascades to sessions.
func (f *FakeGateway) DeleteSchedule(ctx context.Context, id string) error {
	if err := f.enter(ctx, OpDeleteSchedule); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.schedules[:0]
	for _, s := range f.schedules {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.schedules = kept
	sessions := f.sessions[:0]
	for _, s := range f.sessions {
		if s.ScheduleID != id {
			sessions = append(sessions, s)
		}
	}
	f.sessions = sessions
	return nil
}

// ListSessions implements the gateway call with 1-based paging.
func (f *FakeGateway) ListSessions(ctx context.Context, scheduleID string, page, pageSize int) (gateway.SessionPage, error) {
	if err := f.enter(ctx, OpListSessions); err != nil {
		return gateway.SessionPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []application.Session
	for _, s := range f.sessions {
		if s.ScheduleID == scheduleID {
			all = append(all, s.Clone())
		}
	}
	if page <= 0 || pageSize <= 0 {
		return gateway.SessionPage{Data: all}, nil
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return gateway.SessionPage{
		Data: all[start:end],
		Meta: &application.PageMeta{Page: page, PageSize: pageSize, TotalCount: len(all)},
	}, nil
}

// CreateSession implements the gateway call.
func (f *FakeGateway) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := f.enter(ctx, OpCreateSession); err != nil {
		return application.Session{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	created := session.Clone()
	created.ID = f.ids.Next()
	f.sessions = append(f.sessions, created)
	return created.Clone(), nil
}

// UpdateSession implements the gateway call.
func (f *FakeGateway) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := f.enter(ctx, OpUpdateSession); err != nil {
		return application.Session{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == session.ID {
			f.sessions[i] = session.Clone()
			return session.Clone(), nil
		}
	}
	return application.Session{}, notFound(OpUpdateSession)
}

// DeleteSession implements the gateway call.
func (f *FakeGateway) DeleteSession(ctx context.Context, scheduleID, sessionID string) error {
	if err := f.enter(ctx, OpDeleteSession); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if !(s.ScheduleID == scheduleID && s.ID == sessionID) {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

// ListAvailableSessions returns sessions without an instructor.
func (f *FakeGateway) ListAvailableSessions(ctx context.Context) ([]application.Session, error) {
	if err := f.enter(ctx, OpListAvailable); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []application.Session
	for _, s := range f.sessions {
		if !s.Assigned() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// ListApplications implements the gateway call.
func (f *FakeGateway) ListApplications(ctx context.Context) ([]application.InstructorApplication, error) {
	if err := f.enter(ctx, OpListApplications); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]application.InstructorApplication(nil), f.applications...), nil
}

// ApplyForSession rejects sessions that already have an instructor.
func (f *FakeGateway) ApplyForSession(ctx context.Context, sessionID string) (application.InstructorApplication, error) {
	if err := f.enter(ctx, OpApplyForSession); err != nil {
		return application.InstructorApplication{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID != sessionID {
			continue
		}
		if s.Assigned() {
			return application.InstructorApplication{}, &gateway.Error{Code: "SESSION_ASSIGNED", Message: "Session already has an instructor", Status: 409}
		}
		app := application.InstructorApplication{
			ID:           f.ids.Next(),
			SessionID:    sessionID,
			InstructorID: "user-instructor",
			Status:       application.ApplicationPending,
			Session:      s.Clone(),
		}
		f.applications = append(f.applications, app)
		return app, nil
	}
	return application.InstructorApplication{}, notFound(OpApplyForSession)
}

// CancelApplication refuses applications that are no longer pending.
func (f *FakeGateway) CancelApplication(ctx context.Context, applicationID string) error {
	if err := f.enter(ctx, OpCancelApplication); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, app := range f.applications {
		if app.ID != applicationID {
			continue
		}
		if app.Status != application.ApplicationPending {
			return &gateway.Error{Code: "NOT_PENDING", Message: "Only pending applications can be cancelled", Status: 409}
		}
		f.applications = append(f.applications[:i], f.applications[i+1:]...)
		return nil
	}
	return notFound(OpCancelApplication)
}
