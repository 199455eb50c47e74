package view

import (
	"slices"

	"github.com/example/training-scheduler/internal/application"
)

// ListState holds the filter and current page of the schedule list. Any
// filter change sends the list back to page 1.
type ListState struct {
	filter   ScheduleFilter
	page     int
	pageSize int
}

// SchedulePage is one rendered page of the filtered schedule list.
type SchedulePage struct {
	Items []application.Schedule
	PageInfo
}

// NewListState starts on page 1 with no filter.
func NewListState(pageSize int) *ListState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListState{page: 1, pageSize: pageSize}
}

// Filter returns a copy of the active filter.
func (l *ListState) Filter() ScheduleFilter {
	f := l.filter
	f.TrainingTypes = slices.Clone(l.filter.TrainingTypes)
	return f
}

// Page returns the requested page.
func (l *ListState) Page() int { return l.page }

// PageSize returns the fixed page size.
func (l *ListState) PageSize() int { return l.pageSize }

// SetFilter replaces the whole filter.
func (l *ListState) SetFilter(f ScheduleFilter) {
	f.TrainingTypes = uniqueTypes(f.TrainingTypes)
	if l.filter.Equal(f) {
		return
	}
	l.filter = f
	l.page = 1
}

// SetSearch changes the search text.
func (l *ListState) SetSearch(search string) {
	f := l.Filter()
	f.Search = search
	l.SetFilter(f)
}

// SetRegion changes the region text.
func (l *ListState) SetRegion(region string) {
	f := l.Filter()
	f.Region = region
	l.SetFilter(f)
}

// SetDate selects a calendar day; the zero Date clears it.
func (l *ListState) SetDate(date application.Date) {
	f := l.Filter()
	f.Date = date
	l.SetFilter(f)
}

// SetTrainingTypes replaces the training type selection.
func (l *ListState) SetTrainingTypes(types ...application.TrainingType) {
	f := l.Filter()
	f.TrainingTypes = types
	l.SetFilter(f)
}

// ToggleTrainingType adds t to the selection or removes it.
func (l *ListState) ToggleTrainingType(t application.TrainingType) {
	f := l.Filter()
	if idx := slices.Index(f.TrainingTypes, t); idx >= 0 {
		f.TrainingTypes = slices.Delete(f.TrainingTypes, idx, idx+1)
	} else {
		f.TrainingTypes = append(f.TrainingTypes, t)
	}
	l.SetFilter(f)
}

// SetPage requests page; values below 1 select page 1. Apply clamps pages
// past the end.
func (l *ListState) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	l.page = page
}

// Apply filters schedules and cuts out the current page. A requested page
// past the last one is clamped to the last page.
func (l *ListState) Apply(schedules []application.Schedule) SchedulePage {
	filtered := FilterSchedules(schedules, l.filter)
	pages := PageCount(len(filtered), l.pageSize)
	page := l.page
	if pages > 0 && page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return SchedulePage{
		Items:    Paginate(filtered, page, l.pageSize),
		PageInfo: NewPageInfo(page, l.pageSize, len(filtered)),
	}
}
