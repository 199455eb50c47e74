package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/training-scheduler/internal/application"
)

var (
	scheduleCounter    uint64
	sessionCounter     uint64
	applicationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar day of ReferenceTime.
func ReferenceDate() application.Date {
	return application.DateOf(referenceTime)
}

// ----------------------------- User fixtures -----------------------------

// User returns a user with the given role. The id and username derive from
// the role so fixtures stay readable in failure messages.
func User(role application.Role) application.User {
	return application.User{
		ID:       "user-" + string(role),
		Username: string(role),
		Email:    string(role) + "@example.com",
		Role:     role,
	}
}

// --------------------------- Schedule fixtures ---------------------------

// ScheduleOption configures the generated schedule fixture.
type ScheduleOption func(*application.Schedule)

// NewSchedule returns a valid open class schedule with optional overrides.
func NewSchedule(opts ...ScheduleOption) application.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	schedule := application.Schedule{
		ID:              fmt.Sprintf("schedule-%03d", idx),
		Date:            ReferenceDate(),
		InstitutionID:   fmt.Sprintf("inst-%03d", idx),
		InstitutionName: fmt.Sprintf("Institution %03d", idx),
		Region:          "North",
		Capacity:        30,
		TrainingType:    application.TrainingClass,
		Status:          application.ScheduleOpen,
		CreatedBy:       "user-admin",
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// WithScheduleID overrides the generated id.
func WithScheduleID(id string) ScheduleOption {
	return func(s *application.Schedule) { s.ID = id }
}

// WithRegion overrides the region.
func WithRegion(region string) ScheduleOption {
	return func(s *application.Schedule) { s.Region = region }
}

// WithInstitutionName overrides the institution name.
func WithInstitutionName(name string) ScheduleOption {
	return func(s *application.Schedule) { s.InstitutionName = name }
}

// WithDate overrides the calendar day.
func WithDate(date application.Date) ScheduleOption {
	return func(s *application.Schedule) { s.Date = date }
}

// WithTrainingType overrides the training type.
func WithTrainingType(t application.TrainingType) ScheduleOption {
	return func(s *application.Schedule) { s.TrainingType = t }
}

// WithCapacity overrides the capacity.
func WithCapacity(capacity int) ScheduleOption {
	return func(s *application.Schedule) { s.Capacity = capacity }
}

// WithStatus overrides the status.
func WithStatus(status application.ScheduleStatus) ScheduleOption {
	return func(s *application.Schedule) { s.Status = status }
}

// ---------------------------- Session fixtures ----------------------------

// SessionOption configures the generated session fixture.
type SessionOption func(*application.Session)

// NewSession returns an unassigned 09:00-10:30 class session of scheduleID.
func NewSession(scheduleID string, opts ...SessionOption) application.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	session := application.Session{
		ID:            fmt.Sprintf("session-%03d", idx),
		ScheduleID:    scheduleID,
		StartTime:     application.MustTimeOfDay(9, 0),
		EndTime:       application.MustTimeOfDay(10, 30),
		TrainingType:  application.TrainingClass,
		Compensation:  5000,
		PaymentMethod: application.PaymentCompany,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionID overrides the generated id.
func WithSessionID(id string) SessionOption {
	return func(s *application.Session) { s.ID = id }
}

// WithTimes overrides start and end time.
func WithTimes(start, end application.TimeOfDay) SessionOption {
	return func(s *application.Session) {
		s.StartTime = start
		s.EndTime = end
	}
}

// WithInstructor assigns an instructor.
func WithInstructor(id string) SessionOption {
	return func(s *application.Session) { s.InstructorID = &id }
}

// -------------------------- Application fixtures --------------------------

// NewApplication returns an application for session with the given status.
func NewApplication(session application.Session, status application.ApplicationStatus) application.InstructorApplication {
	idx := atomic.AddUint64(&applicationCounter, 1)
	return application.InstructorApplication{
		ID:           fmt.Sprintf("application-%03d", idx),
		SessionID:    session.ID,
		InstructorID: "user-instructor",
		Status:       status,
		Session:      session.Clone(),
	}
}
