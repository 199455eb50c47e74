package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/training-scheduler/internal/application"
)

// SessionPage is one server side page of sessions.
type SessionPage struct {
	Data []application.Session
	Meta *application.PageMeta
}

// Login authenticates against the remote service.
func (c *Client) Login(ctx context.Context, creds application.LoginCredentials) (application.AuthResult, error) {
	const op = "log in"
	res, err := c.do(ctx, call{operation: op, method: http.MethodPost, path: "/auth/login", body: creds, wantData: true})
	if err != nil {
		return application.AuthResult{}, err
	}
	auth, err := decodeInto[application.AuthResult](op, res)
	if err != nil {
		return application.AuthResult{}, err
	}
	if auth.Token == "" || auth.User.ID == "" {
		return application.AuthResult{}, malformedError(op, res.status, errors.New("missing user or token"))
	}
	return auth, nil
}

// ListSchedules returns every schedule visible to the caller.
func (c *Client) ListSchedules(ctx context.Context) ([]application.Schedule, error) {
	const op = "fetch schedules"
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: "/schedules", wantData: true})
	if err != nil {
		return nil, err
	}
	return decodeInto[[]application.Schedule](op, res)
}

// GetSchedule returns a single schedule.
func (c *Client) GetSchedule(ctx context.Context, id string) (application.Schedule, error) {
	const op = "fetch schedule"
	if err := requireID(op, "schedule id", id); err != nil {
		return application.Schedule{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: "/schedules/" + escape(id), wantData: true})
	if err != nil {
		return application.Schedule{}, err
	}
	return decodeEntity[application.Schedule](op, res)
}

// CreateSchedule stores a new schedule; the server assigns id and creator.
func (c *Client) CreateSchedule(ctx context.Context, input application.ScheduleInput) (application.Schedule, error) {
	const op = "create schedule"
	res, err := c.do(ctx, call{operation: op, method: http.MethodPost, path: "/schedules", body: input, wantData: true})
	if err != nil {
		return application.Schedule{}, err
	}
	return decodeEntity[application.Schedule](op, res)
}

// UpdateSchedule replaces the editable fields of schedule id.
func (c *Client) UpdateSchedule(ctx context.Context, id string, schedule application.Schedule) (application.Schedule, error) {
	const op = "update schedule"
	if err := requireID(op, "schedule id", id); err != nil {
		return application.Schedule{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodPut, path: "/schedules/" + escape(id), body: schedule, wantData: true})
	if err != nil {
		return application.Schedule{}, err
	}
	return decodeEntity[application.Schedule](op, res)
}

// DeleteSchedule removes a schedule. Cascading to its sessions is the
// service's responsibility.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	const op = "delete schedule"
	if err := requireID(op, "schedule id", id); err != nil {
		return err
	}
	_, err := c.do(ctx, call{operation: op, method: http.MethodDelete, path: "/schedules/" + escape(id)})
	return err
}

// ListSessions returns one page of the sessions of a schedule. Non-positive
// page or pageSize values are omitted so the service applies its defaults.
func (c *Client) ListSessions(ctx context.Context, scheduleID string, page, pageSize int) (SessionPage, error) {
	const op = "fetch sessions"
	if err := requireID(op, "schedule id", scheduleID); err != nil {
		return SessionPage{}, err
	}
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: sessionsPath(scheduleID), query: query, wantData: true})
	if err != nil {
		return SessionPage{}, err
	}
	sessions, err := decodeInto[[]application.Session](op, res)
	if err != nil {
		return SessionPage{}, err
	}
	return SessionPage{Data: sessions, Meta: res.meta}, nil
}

// GetSession returns a single session of a schedule.
func (c *Client) GetSession(ctx context.Context, scheduleID, sessionID string) (application.Session, error) {
	const op = "fetch session"
	if err := requireID(op, "schedule id", scheduleID); err != nil {
		return application.Session{}, err
	}
	if err := requireID(op, "session id", sessionID); err != nil {
		return application.Session{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: sessionsPath(scheduleID) + "/" + escape(sessionID), wantData: true})
	if err != nil {
		return application.Session{}, err
	}
	return decodeEntity[application.Session](op, res)
}

// CreateSession stores a new session under session.ScheduleID.
func (c *Client) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	const op = "add session"
	if err := requireID(op, "schedule id", session.ScheduleID); err != nil {
		return application.Session{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodPost, path: sessionsPath(session.ScheduleID), body: session, wantData: true})
	if err != nil {
		return application.Session{}, err
	}
	return decodeEntity[application.Session](op, res)
}

// UpdateSession replaces a session.
func (c *Client) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	const op = "update session"
	if err := requireID(op, "schedule id", session.ScheduleID); err != nil {
		return application.Session{}, err
	}
	if err := requireID(op, "session id", session.ID); err != nil {
		return application.Session{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodPut, path: sessionsPath(session.ScheduleID) + "/" + escape(session.ID), body: session, wantData: true})
	if err != nil {
		return application.Session{}, err
	}
	return decodeEntity[application.Session](op, res)
}

// DeleteSession removes a session from its schedule.
func (c *Client) DeleteSession(ctx context.Context, scheduleID, sessionID string) error {
	const op = "delete session"
	if err := requireID(op, "schedule id", scheduleID); err != nil {
		return err
	}
	if err := requireID(op, "session id", sessionID); err != nil {
		return err
	}
	_, err := c.do(ctx, call{operation: op, method: http.MethodDelete, path: sessionsPath(scheduleID) + "/" + escape(sessionID)})
	return err
}

// ListAvailableSessions returns sessions that have no assigned instructor.
func (c *Client) ListAvailableSessions(ctx context.Context) ([]application.Session, error) {
	const op = "fetch available sessions"
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: "/sessions/available", wantData: true})
	if err != nil {
		return nil, err
	}
	return decodeInto[[]application.Session](op, res)
}

// ListApplications returns the calling instructor's applications.
func (c *Client) ListApplications(ctx context.Context) ([]application.InstructorApplication, error) {
	const op = "fetch applications"
	res, err := c.do(ctx, call{operation: op, method: http.MethodGet, path: "/applications", wantData: true})
	if err != nil {
		return nil, err
	}
	return decodeInto[[]application.InstructorApplication](op, res)
}

// ApplyForSession files an application. The service rejects it when the
// session already has an instructor.
func (c *Client) ApplyForSession(ctx context.Context, sessionID string) (application.InstructorApplication, error) {
	const op = "apply for session"
	if err := requireID(op, "session id", sessionID); err != nil {
		return application.InstructorApplication{}, err
	}
	res, err := c.do(ctx, call{operation: op, method: http.MethodPost, path: "/sessions/" + escape(sessionID) + "/apply", wantData: true})
	if err != nil {
		return application.InstructorApplication{}, err
	}
	return decodeEntity[application.InstructorApplication](op, res)
}

// CancelApplication withdraws a pending application.
func (c *Client) CancelApplication(ctx context.Context, applicationID string) error {
	const op = "cancel application"
	if err := requireID(op, "application id", applicationID); err != nil {
		return err
	}
	_, err := c.do(ctx, call{operation: op, method: http.MethodDelete, path: "/applications/" + escape(applicationID)})
	return err
}

func sessionsPath(scheduleID string) string {
	return "/schedules/" + escape(scheduleID) + "/sessions"
}
