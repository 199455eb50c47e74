// Package shell is the explicit application context: it owns the auth,
// entity and notification stores, checks capabilities before any remote call
// and turns store outcomes into notifications.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/gateway"
	"github.com/example/training-scheduler/internal/permission"
	"github.com/example/training-scheduler/internal/store"
	"github.com/example/training-scheduler/internal/view"
)

// Gateway is the full remote surface used by the shell's stores.
type Gateway interface {
	store.AuthGateway
	store.ScheduleGateway
	store.SessionGateway
}

// Dependencies configures New. Gateway and Credentials are required.
type Dependencies struct {
	Gateway     Gateway
	Credentials store.CredentialStore
	Logger      *slog.Logger
	Now         func() time.Time
	IDGenerator func() string
	Sink        store.Sink
	PageSize    int
}

// Shell routes user actions to the stores.
type Shell struct {
	auth          *store.AuthStore
	schedules     *store.ScheduleStore
	sessions      *store.SessionStore
	notifications *store.NotificationStore
	logger        *slog.Logger
	now           func() time.Time
	pageSize      int
}

// New builds a signed-out shell. Call Start to restore persisted credentials.
func New(deps Dependencies) (*Shell, error) {
	if deps.Gateway == nil {
		return nil, errors.New("shell: gateway is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("shell: credential store is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PageSize <= 0 {
		deps.PageSize = view.DefaultPageSize
	}
	logger := application.DefaultLogger(deps.Logger)

	return &Shell{
		auth:          store.NewAuthStore(deps.Gateway, deps.Credentials, logger, deps.Now),
		schedules:     store.NewScheduleStore(deps.Gateway, logger),
		sessions:      store.NewSessionStore(deps.Gateway, logger),
		notifications: store.NewNotificationStore(deps.IDGenerator, deps.Now, deps.Sink),
		logger:        logger,
		now:           deps.Now,
		pageSize:      deps.PageSize,
	}, nil
}

// Auth returns the identity store.
func (s *Shell) Auth() *store.AuthStore { return s.auth }

// Schedules returns the schedule store.
func (s *Shell) Schedules() *store.ScheduleStore { return s.schedules }

// Sessions returns the session store, which also holds the caller's
// applications and the available sessions.
func (s *Shell) Sessions() *store.SessionStore { return s.sessions }

// Notifications returns the store that collects action outcomes.
func (s *Shell) Notifications() *store.NotificationStore { return s.notifications }

// PageSize returns the page size used for session listings and schedule lists.
func (s *Shell) PageSize() int { return s.pageSize }

func (s *Shell) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return application.ComponentLogger(ctx, s.logger, "shell", operation, attrs...)
}

// Start restores the persisted identity. An unknown role or an expired token
// leaves the shell signed out and is returned to the caller.
func (s *Shell) Start(ctx context.Context) error {
	return s.auth.Hydrate(ctx)
}

// Close detaches the entity stores; late results are discarded.
func (s *Shell) Close() {
	s.schedules.Close()
	s.sessions.Close()
}

// Login authenticates and persists the identity.
func (s *Shell) Login(ctx context.Context, creds application.LoginCredentials) (*store.Task[application.User], error) {
	logger := s.loggerWith(ctx, "login", "username", creds.Username)

	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	if strings.TrimSpace(creds.Username) == "" {
		vErr.FieldErrors["username"] = "Username is required"
	}
	if creds.Password == "" {
		vErr.FieldErrors["password"] = "Password is required"
	}
	if vErr.HasErrors() {
		return nil, s.reject(ctx, logger, vErr)
	}
	return s.auth.Login(ctx, creds), nil
}

// Logout clears the identity and its persisted credentials.
func (s *Shell) Logout(ctx context.Context) error {
	return s.auth.Logout(ctx)
}

// CurrentUser returns the signed-in user.
func (s *Shell) CurrentUser() (application.User, bool) {
	return s.auth.CurrentUser()
}

// authorize checks capability c for the signed-in user. A denial posts an
// error notification naming action.
func (s *Shell) authorize(c permission.Capability, action string) error {
	perms, err := s.auth.Permissions()
	if err != nil {
		return err
	}
	if !perms.Allows(c) {
		s.notifications.Add("You do not have permission to "+action, application.SeverityError)
		return fmt.Errorf("%w: %s", application.ErrForbidden, action)
	}
	return nil
}

func (s *Shell) reject(ctx context.Context, logger *slog.Logger, err error) error {
	logger.InfoContext(ctx, "action rejected", "error", err, "error_kind", application.ErrorKind(err))
	return err
}

// outcome names the notifications posted when a task settles. An empty
// failure message reports the error itself.
type outcome struct {
	success string
	failure string
}

// settle posts the outcome notification once task completes and runs after on
// success. Detached results post nothing.
func settle[T any](s *Shell, task *store.Task[T], o outcome, after func(T)) *store.Task[T] {
	return store.Then(task, func(value T, err error) {
		switch {
		case err == nil:
			if after != nil {
				after(value)
			}
			if o.success != "" {
				s.notifications.Add(o.success, application.SeveritySuccess)
			}
		case store.IsDetached(err):
		default:
			msg := o.failure
			if msg == "" {
				msg = err.Error()
			}
			s.notifications.Add(msg, application.SeverityError)
		}
	})
}

// LoadSchedules fetches the schedule collection.
func (s *Shell) LoadSchedules(ctx context.Context) (*store.Task[[]application.Schedule], error) {
	logger := s.loggerWith(ctx, "load_schedules")
	if err := s.authorize(permission.ViewSchedules, "view schedules"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return s.schedules.Fetch(ctx), nil
}

// CreateSchedule validates input and adds a schedule.
func (s *Shell) CreateSchedule(ctx context.Context, input application.ScheduleInput) (*store.Task[application.Schedule], error) {
	logger := s.loggerWith(ctx, "create_schedule", "institution", input.InstitutionName)
	if err := s.authorize(permission.EditSchedules, "add schedules"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if err := application.ValidateScheduleInput(input); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return settle(s, s.schedules.Add(ctx, input), outcome{
		success: "Schedule created successfully",
		failure: "An error occurred while saving the schedule",
	}, nil), nil
}

// UpdateSchedule validates and submits an edited schedule.
func (s *Shell) UpdateSchedule(ctx context.Context, schedule application.Schedule) (*store.Task[application.Schedule], error) {
	logger := s.loggerWith(ctx, "update_schedule", "schedule_id", schedule.ID)
	if err := s.authorize(permission.EditSchedules, "edit schedules"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if err := application.ValidateSchedule(schedule); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return settle(s, s.schedules.Update(ctx, schedule), outcome{
		success: "Schedule updated successfully",
		failure: "An error occurred while saving the schedule",
	}, nil), nil
}

// DeleteSchedule removes a schedule and, on success, the sessions held for it.
func (s *Shell) DeleteSchedule(ctx context.Context, id string) (*store.Task[string], error) {
	logger := s.loggerWith(ctx, "delete_schedule", "schedule_id", id)
	if err := s.authorize(permission.DeleteSchedules, "delete schedules"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(id) == "" {
		return nil, s.reject(ctx, logger, requiredField("id", "Schedule id is required"))
	}
	return settle(s, s.schedules.Delete(ctx, id), outcome{
		success: "Schedule deleted successfully",
		failure: "Failed to delete schedule",
	}, func(deleted string) {
		if n := s.sessions.InvalidateSchedule(deleted); n > 0 {
			logger.DebugContext(ctx, "sessions invalidated", "count", n)
		}
	}), nil
}

// Calendar lays out one month of the loaded schedules for the current user.
func (s *Shell) Calendar(year int, month time.Month) (view.MonthView, error) {
	if err := s.authorize(permission.ViewSchedules, "view schedules"); err != nil {
		return view.MonthView{}, err
	}
	perms, _ := s.auth.Permissions()
	return view.BuildMonth(year, month, s.schedules.Items(), s.now(), perms.ViewTeamLeaderSchedules), nil
}

// ScheduleList applies list to the loaded schedules.
func (s *Shell) ScheduleList(list *view.ListState) (view.SchedulePage, error) {
	if err := s.authorize(permission.ViewSchedules, "view schedules"); err != nil {
		return view.SchedulePage{}, err
	}
	return list.Apply(s.schedules.Items()), nil
}

// LoadSessions fetches one page of a schedule's sessions.
func (s *Shell) LoadSessions(ctx context.Context, scheduleID string, page int) (*store.Task[gateway.SessionPage], error) {
	logger := s.loggerWith(ctx, "load_sessions", "schedule_id", scheduleID, "page", page)
	if err := s.authorize(permission.ViewSessions, "view sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(scheduleID) == "" {
		return nil, s.reject(ctx, logger, requiredField("scheduleId", "schedule is required"))
	}
	if page < 1 {
		page = 1
	}
	return s.sessions.Fetch(ctx, scheduleID, page, s.pageSize), nil
}

// AddSession validates and adds a session.
func (s *Shell) AddSession(ctx context.Context, session application.Session) (*store.Task[application.Session], error) {
	logger := s.loggerWith(ctx, "add_session", "schedule_id", session.ScheduleID)
	if err := s.authorize(permission.EditSessions, "add sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if err := application.ValidateSession(session); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return settle(s, s.sessions.Add(ctx, session), outcome{success: "Session added successfully"}, nil), nil
}

// UpdateSession validates and submits an edited session.
func (s *Shell) UpdateSession(ctx context.Context, session application.Session) (*store.Task[application.Session], error) {
	logger := s.loggerWith(ctx, "update_session", "session_id", session.ID)
	if err := s.authorize(permission.EditSessions, "edit sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, s.reject(ctx, logger, requiredField("id", "Session id is required"))
	}
	if err := application.ValidateSession(session); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return settle(s, s.sessions.Update(ctx, session), outcome{success: "Session updated successfully"}, nil), nil
}

// DeleteSession removes a session of a schedule.
func (s *Shell) DeleteSession(ctx context.Context, scheduleID, sessionID string) (*store.Task[string], error) {
	logger := s.loggerWith(ctx, "delete_session", "schedule_id", scheduleID, "session_id", sessionID)
	if err := s.authorize(permission.DeleteSessions, "delete sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, s.reject(ctx, logger, requiredField("id", "Session id is required"))
	}
	return settle(s, s.sessions.Delete(ctx, scheduleID, sessionID), outcome{
		success: "Session deleted successfully",
		failure: "Failed to delete session",
	}, nil), nil
}

// LoadAvailableSessions fetches the sessions open for application.
func (s *Shell) LoadAvailableSessions(ctx context.Context) (*store.Task[[]application.Session], error) {
	logger := s.loggerWith(ctx, "load_available_sessions")
	if err := s.authorize(permission.ApplyToSessions, "apply to sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return s.sessions.FetchAvailable(ctx), nil
}

// LoadApplications fetches the signed-in instructor's applications.
func (s *Shell) LoadApplications(ctx context.Context) (*store.Task[[]application.InstructorApplication], error) {
	logger := s.loggerWith(ctx, "load_applications")
	if err := s.authorize(permission.ApplyToSessions, "apply to sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	return s.sessions.FetchApplications(ctx), nil
}

// Apply files an application for sessionID.
func (s *Shell) Apply(ctx context.Context, sessionID string) (*store.Task[application.InstructorApplication], error) {
	logger := s.loggerWith(ctx, "apply", "session_id", sessionID)
	if err := s.authorize(permission.ApplyToSessions, "apply to sessions"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, s.reject(ctx, logger, requiredField("sessionId", "Session id is required"))
	}
	return settle(s, s.sessions.Apply(ctx, sessionID), outcome{
		success: "Application submitted successfully",
		failure: "Failed to submit application",
	}, nil), nil
}

// Cancel withdraws an application. Applications known locally to be decided
// are refused without a remote call.
func (s *Shell) Cancel(ctx context.Context, applicationID string) (*store.Task[string], error) {
	logger := s.loggerWith(ctx, "cancel", "application_id", applicationID)
	if err := s.authorize(permission.ApplyToSessions, "cancel applications"); err != nil {
		return nil, s.reject(ctx, logger, err)
	}
	if strings.TrimSpace(applicationID) == "" {
		return nil, s.reject(ctx, logger, requiredField("id", "Application id is required"))
	}
	if app, ok := s.sessions.FindApplication(applicationID); ok && !app.Cancellable() {
		return nil, s.reject(ctx, logger, fmt.Errorf("%w: %s is %s", application.ErrNotCancellable, applicationID, app.Status))
	}
	return settle(s, s.sessions.Cancel(ctx, applicationID), outcome{
		success: "Application cancelled successfully",
		failure: "Failed to cancel application",
	}, nil), nil
}

func requiredField(field, message string) error {
	return &application.ValidationError{FieldErrors: map[string]string{field: message}}
}
