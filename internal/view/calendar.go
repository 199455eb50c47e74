package view

import (
	"time"

	"github.com/example/training-scheduler/internal/application"
)

// CalendarIndex answers day membership questions for a schedule collection.
type CalendarIndex struct {
	byDay map[application.Date][]application.Schedule
}

// NewCalendarIndex buckets schedules by calendar day, keeping collection order
// within a day.
func NewCalendarIndex(schedules []application.Schedule) CalendarIndex {
	idx := CalendarIndex{byDay: make(map[application.Date][]application.Schedule)}
	for _, s := range schedules {
		idx.byDay[s.Date] = append(idx.byDay[s.Date], s)
	}
	return idx
}

// Has reports whether any schedule falls on day.
func (c CalendarIndex) Has(day application.Date) bool {
	return len(c.byDay[day]) > 0
}

// SchedulesOn returns the schedules of day.
func (c CalendarIndex) SchedulesOn(day application.Date) []application.Schedule {
	src := c.byDay[day]
	out := make([]application.Schedule, len(src))
	copy(out, src)
	return out
}

// Marker is one schedule shown on a calendar day.
type Marker struct {
	ScheduleID      string
	InstitutionName string
	TrainingType    application.TrainingType
	// Restricted marks a schedule shown as team-leader only: the viewer lacks
	// the capability and the day is not over yet.
	Restricted bool
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date        application.Date
	IsToday     bool
	HasSchedule bool
	Markers     []Marker
}

// MonthView is a month grid starting on Sunday.
type MonthView struct {
	Year  int
	Month time.Month
	// LeadingBlanks is the number of empty cells before the first day.
	LeadingBlanks int
	Days          []CalendarDay
}

// BuildMonth lays out year/month. now decides the today flag and whether a
// day is over; canViewTeamLeader lifts every restriction.
func BuildMonth(year int, month time.Month, schedules []application.Schedule, now time.Time, canViewTeamLeader bool) MonthView {
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()
	today := application.DateOf(now)
	index := NewCalendarIndex(schedules)

	view := MonthView{
		Year:          first.Year(),
		Month:         first.Month(),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]CalendarDay, 0, daysInMonth),
	}
	for d := 1; d <= daysInMonth; d++ {
		date := application.NewDate(view.Year, view.Month, d)
		over := now.After(date.Time(now.Location()).Add(24 * time.Hour))
		day := CalendarDay{
			Date:        date,
			IsToday:     date == today,
			HasSchedule: index.Has(date),
		}
		for _, s := range index.byDay[date] {
			day.Markers = append(day.Markers, Marker{
				ScheduleID:      s.ID,
				InstitutionName: s.InstitutionName,
				TrainingType:    s.TrainingType,
				Restricted:      !canViewTeamLeader && !over,
			})
		}
		view.Days = append(view.Days, day)
	}
	return view
}

// Weeks splits the grid into rows of seven; blank cells are nil.
func (m MonthView) Weeks() [][]*CalendarDay {
	cells := make([]*CalendarDay, m.LeadingBlanks, m.LeadingBlanks+len(m.Days))
	for i := range m.Days {
		cells = append(cells, &m.Days[i])
	}
	for len(cells)%7 != 0 {
		cells = append(cells, nil)
	}
	weeks := make([][]*CalendarDay, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}

// ShiftMonth moves year/month by delta months.
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}
