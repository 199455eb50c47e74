package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/view"
)

const usage = `usage: trainingctl <command> [arguments]

commands:
  login -u <username> -p <password>
  logout
  whoami
  schedules list [-search s] [-region r] [-type t1,t2] [-date YYYY-MM-DD] [-page n]
  schedules add -date YYYY-MM-DD -institution name -region r -capacity n [-type t] [-status s]
  schedules update <schedule-id> [schedule flags]
  schedules delete <schedule-id>
  calendar [-month YYYY-MM]
  sessions list <schedule-id> [-page n]
  sessions add <schedule-id> -start HH:MM -end HH:MM [-type t] [-compensation n] [-payment p]
  sessions update <schedule-id> <session-id> [session flags]
  sessions delete <schedule-id> <session-id>
  available
  applications
  apply <session-id>
  cancel <application-id>
  watch [-schedule "@every 1m"]
`

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

func printNotification(w io.Writer, n application.Notification) {
	fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderSchedules(w io.Writer, page view.SchedulePage) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tINSTITUTION\tREGION\tTYPE\tCAPACITY\tSTATUS")
	for _, s := range page.Items {
		institution := s.InstitutionName
		if institution == "" {
			institution = s.InstitutionID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", s.ID, s.Date, institution, s.Region, s.TrainingType, s.Capacity, s.Status)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d/%d (%d schedules)\n", page.Page, max(page.TotalPages, 1), page.TotalCount)
}

func renderSessions(w io.Writer, sessions []application.Session) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSCHEDULE\tSTART\tEND\tTYPE\tCOMPENSATION\tPAYMENT\tINSTRUCTOR")
	for _, s := range sessions {
		instructor := "-"
		if s.Assigned() {
			instructor = *s.InstructorID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n", s.ID, s.ScheduleID, s.StartTime, s.EndTime, s.TrainingType, s.Compensation, s.PaymentMethod, instructor)
	}
	tw.Flush()
}

func renderApplications(w io.Writer, apps []application.InstructorApplication) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSESSION\tSTATUS\tSTART\tEND\tTYPE")
	for _, a := range apps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.SessionID, a.Status, a.Session.StartTime, a.Session.EndTime, a.Session.TrainingType)
	}
	tw.Flush()
}

// renderCalendar prints the month grid with a * on days holding schedules,
// followed by the schedules of each marked day.
func renderCalendar(w io.Writer, month view.MonthView) {
	fmt.Fprintf(w, "%s %d\n", month.Month, month.Year)
	fmt.Fprintln(w, "Su Mo Tu We Th Fr Sa")
	for _, week := range month.Weeks() {
		cells := make([]string, len(week))
		for i, day := range week {
			switch {
			case day == nil:
				cells[i] = "  "
			case day.HasSchedule:
				cells[i] = fmt.Sprintf("%2d*", day.Date.Day)
			default:
				cells[i] = fmt.Sprintf("%2d", day.Date.Day)
			}
			if day != nil && day.IsToday {
				cells[i] = "[" + strings.TrimSpace(cells[i]) + "]"
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}

	for _, day := range month.Days {
		for _, m := range day.Markers {
			label := fmt.Sprintf("%s  %s (%s)", day.Date, m.InstitutionName, m.TrainingType)
			if m.Restricted {
				label += " [team leader only]"
			}
			fmt.Fprintln(w, label)
		}
	}
}
