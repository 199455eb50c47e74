// Package view derives list pages and calendar grids from store snapshots.
// Everything here is a pure function of its inputs.
package view

import (
	"slices"
	"strings"

	"github.com/example/training-scheduler/internal/application"
)

// ScheduleFilter is the UI-local narrowing of the schedule list. Zero fields
// match everything.
type ScheduleFilter struct {
	// Search matches the institution name or the region, case-insensitively.
	Search string
	// TrainingTypes is a multi-select; empty selects every type.
	TrainingTypes []application.TrainingType
	// Region matches when the schedule's region contains it, case-insensitively.
	Region string
	// Date selects one calendar day.
	Date application.Date
}

// IsZero reports whether the filter matches every schedule.
func (f ScheduleFilter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" &&
		len(f.TrainingTypes) == 0 &&
		strings.TrimSpace(f.Region) == "" &&
		f.Date.IsZero()
}

// Equal reports whether f and other select the same schedules.
func (f ScheduleFilter) Equal(other ScheduleFilter) bool {
	if f.Search != other.Search || f.Region != other.Region || f.Date != other.Date {
		return false
	}
	return sameTypes(f.TrainingTypes, other.TrainingTypes) && sameTypes(other.TrainingTypes, f.TrainingTypes)
}

// sameTypes reports whether every member of a is selected in b.
func sameTypes(a, b []application.TrainingType) bool {
	for _, t := range a {
		if !slices.Contains(b, t) {
			return false
		}
	}
	return true
}

// uniqueTypes drops repeated selections, keeping first-seen order.
func uniqueTypes(types []application.TrainingType) []application.TrainingType {
	out := make([]application.TrainingType, 0, len(types))
	for _, t := range types {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether schedule passes every criterion.
func (f ScheduleFilter) Matches(schedule application.Schedule) bool {
	if search := strings.TrimSpace(f.Search); search != "" {
		if !containsFold(schedule.InstitutionName, search) && !containsFold(schedule.Region, search) {
			return false
		}
	}
	if len(f.TrainingTypes) > 0 && !slices.Contains(f.TrainingTypes, schedule.TrainingType) {
		return false
	}
	if region := strings.TrimSpace(f.Region); region != "" && !containsFold(schedule.Region, region) {
		return false
	}
	if !f.Date.IsZero() && schedule.Date != f.Date {
		return false
	}
	return true
}

// FilterSchedules returns the schedules matching f in their original order.
func FilterSchedules(schedules []application.Schedule, f ScheduleFilter) []application.Schedule {
	out := make([]application.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

func containsFold(value, substr string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(substr))
}
