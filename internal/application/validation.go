package application

import "strings"

// ValidateScheduleInput applies the local business rules for a schedule
// before any remote call is attempted.
func ValidateScheduleInput(input ScheduleInput) error {
	vErr := &ValidationError{}
	validateScheduleCore(input, vErr)
	return vErr.errOrNil()
}

// ValidateSchedule validates an existing schedule submitted for update.
func ValidateSchedule(schedule Schedule) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(schedule.ID) == "" {
		vErr.add("id", "id is required")
	}
	validateScheduleCore(schedule.Input(), vErr)
	return vErr.errOrNil()
}

// ValidateSession applies the local business rules for a session.
func ValidateSession(session Session) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(session.ScheduleID) == "" {
		vErr.add("scheduleId", "schedule is required")
	}
	if session.StartTime.IsZero() {
		vErr.add("startTime", "Start time is required")
	}
	if session.EndTime.IsZero() {
		vErr.add("endTime", "End time is required")
	}
	if !session.StartTime.IsZero() && !session.EndTime.IsZero() && !session.EndTime.After(session.StartTime) {
		vErr.add("endTime", "End time must be after start time")
	}
	if session.TrainingType == "" {
		vErr.add("trainingType", "Training type is required")
	} else if !session.TrainingType.Valid() {
		vErr.add("trainingType", "Invalid training type")
	}
	if session.Compensation < 0 {
		vErr.add("compensation", "Compensation cannot be negative")
	}
	if session.PaymentMethod != "" && !session.PaymentMethod.Valid() {
		vErr.add("paymentMethod", "Invalid payment method")
	}
	if session.ClassCount < 0 {
		vErr.add("classCount", "Class count cannot be negative")
	}
	if session.StudentCount < 0 {
		vErr.add("studentCount", "Student count cannot be negative")
	}

	return vErr.errOrNil()
}

func validateScheduleCore(input ScheduleInput, vErr *ValidationError) {
	if input.Date.IsZero() {
		vErr.add("date", "Date is required")
	}
	if strings.TrimSpace(input.InstitutionID) == "" && strings.TrimSpace(input.InstitutionName) == "" {
		vErr.add("institution", "Institution is required")
	}
	if strings.TrimSpace(input.Region) == "" {
		vErr.add("region", "Region is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "Capacity must be positive")
	}
	if input.TrainingType == "" {
		vErr.add("trainingType", "Training type is required")
	} else if !input.TrainingType.Valid() {
		vErr.add("trainingType", "Invalid training type")
	}
	if input.Status == "" {
		vErr.add("status", "Status is required")
	} else if !input.Status.Valid() {
		vErr.add("status", "Invalid status")
	}
}
