package application

import (
	"fmt"
	"time"
)

// Role identifies the kind of account an authenticated user holds.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
	RoleTeamLeader Role = "team_leader"
	RoleRegular    Role = "regular"
	RoleNew        Role = "new"
)

// AllRoles lists every member of the closed role enumeration.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleInstructor, RoleStudent, RoleTeamLeader, RoleRegular, RoleNew}
}

// ParseRole converts a raw role string into a Role, rejecting unknown values.
func ParseRole(value string) (Role, error) {
	for _, role := range AllRoles() {
		if string(role) == value {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
}

// User represents the authenticated account issued by the remote service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

// TrainingType classifies the audience of a schedule or session.
type TrainingType string

const (
	TrainingClass    TrainingType = "class"
	TrainingTeacher  TrainingType = "teacher"
	TrainingAllStaff TrainingType = "all_staff"
	TrainingRemote   TrainingType = "remote"
	TrainingOther    TrainingType = "other"
)

// TrainingTypes lists the accepted training types in display order.
func TrainingTypes() []TrainingType {
	return []TrainingType{TrainingClass, TrainingTeacher, TrainingAllStaff, TrainingRemote, TrainingOther}
}

// Valid reports whether t is a known training type.
func (t TrainingType) Valid() bool {
	switch t {
	case TrainingClass, TrainingTeacher, TrainingAllStaff, TrainingRemote, TrainingOther:
		return true
	}
	return false
}

// ScheduleStatus is set by operators; no transition logic exists client side.
type ScheduleStatus string

const (
	ScheduleOpen     ScheduleStatus = "open"
	ScheduleClosed   ScheduleStatus = "closed"
	ScheduleAdjusted ScheduleStatus = "adjusted"
)

// Valid reports whether s is a known schedule status.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleOpen, ScheduleClosed, ScheduleAdjusted:
		return true
	}
	return false
}

// PaymentMethod identifies who pays the instructor for a session.
type PaymentMethod string

const (
	PaymentCompany PaymentMethod = "company"
	PaymentSchool  PaymentMethod = "school"
	PaymentBranch  PaymentMethod = "branch"
)

// Valid reports whether p is a known payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCompany, PaymentSchool, PaymentBranch:
		return true
	}
	return false
}

// ScheduleInput captures caller provided schedule fields.
type ScheduleInput struct {
	Date            Date           `json:"date"`
	InstitutionID   string         `json:"institutionId,omitempty"`
	InstitutionName string         `json:"institutionName,omitempty"`
	Region          string         `json:"region"`
	Capacity        int            `json:"capacity"`
	TrainingType    TrainingType   `json:"trainingType"`
	Status          ScheduleStatus `json:"status"`
}

// Schedule represents an institution visit day.
type Schedule struct {
	ID              string         `json:"id"`
	Date            Date           `json:"date"`
	InstitutionID   string         `json:"institutionId,omitempty"`
	InstitutionName string         `json:"institutionName,omitempty"`
	Region          string         `json:"region"`
	Capacity        int            `json:"capacity"`
	TrainingType    TrainingType   `json:"trainingType"`
	Status          ScheduleStatus `json:"status"`
	CreatedBy       string         `json:"createdBy"`
}

// EntityID returns the schedule identifier.
func (s Schedule) EntityID() string { return s.ID }

// Input returns the caller editable fields of the schedule.
func (s Schedule) Input() ScheduleInput {
	return ScheduleInput{
		Date:            s.Date,
		InstitutionID:   s.InstitutionID,
		InstitutionName: s.InstitutionName,
		Region:          s.Region,
		Capacity:        s.Capacity,
		TrainingType:    s.TrainingType,
		Status:          s.Status,
	}
}

// Session is a single teaching slot within a schedule.
type Session struct {
	ID            string        `json:"id"`
	ScheduleID    string        `json:"scheduleId"`
	StartTime     TimeOfDay     `json:"startTime"`
	EndTime       TimeOfDay     `json:"endTime"`
	InstructorID  *string       `json:"assignedInstructorId"`
	TrainingType  TrainingType  `json:"trainingType"`
	Compensation  int           `json:"compensation"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	TestName      string        `json:"testName,omitempty"`
	Grade         *int          `json:"grade,omitempty"`
	ClassCount    int           `json:"classCount,omitempty"`
	StudentCount  int           `json:"studentCount,omitempty"`
	Region        string        `json:"region,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// EntityID returns the session identifier.
func (s Session) EntityID() string { return s.ID }

// Assigned reports whether an instructor has been matched to the session.
func (s Session) Assigned() bool {
	return s.InstructorID != nil && *s.InstructorID != ""
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	out := s
	if s.InstructorID != nil {
		id := *s.InstructorID
		out.InstructorID = &id
	}
	if s.Grade != nil {
		grade := *s.Grade
		out.Grade = &grade
	}
	return out
}

// ApplicationStatus is decided by the remote service.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// InstructorApplication is an instructor's request to teach a session. Session
// is a snapshot taken when the application was filed.
type InstructorApplication struct {
	ID           string            `json:"id"`
	SessionID    string            `json:"sessionId"`
	InstructorID string            `json:"instructorId"`
	Status       ApplicationStatus `json:"status"`
	Session      Session           `json:"session"`
}

// EntityID returns the application identifier.
func (a InstructorApplication) EntityID() string { return a.ID }

// Cancellable reports whether the applicant may still withdraw.
func (a InstructorApplication) Cancellable() bool {
	return a.Status == ApplicationPending
}

// Severity ranks a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a process-local message produced by store outcomes.
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	IsRead    bool
	CreatedAt time.Time
}

// PageMeta describes a server side page of results.
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// LoginCredentials captures the data required to authenticate.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult captures the outcome of a successful login.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
