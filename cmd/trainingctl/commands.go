package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/permission"
	"github.com/example/training-scheduler/internal/shell"
	"github.com/example/training-scheduler/internal/store"
	"github.com/example/training-scheduler/internal/view"
)

func (a *app) dispatch(ctx context.Context, args []string) error {
	rest := args[1:]
	switch args[0] {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "schedules":
		return a.schedules(ctx, rest)
	case "calendar":
		return a.calendar(ctx, rest)
	case "sessions":
		return a.sessions(ctx, rest)
	case "available":
		return a.available(ctx)
	case "applications":
		return a.applications(ctx)
	case "apply":
		return a.apply(ctx, rest)
	case "cancel":
		return a.cancel(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// positional takes n leading arguments before any flags.
func positional(args []string, n int, names ...string) ([]string, []string, error) {
	if len(args) < n {
		return nil, nil, fmt.Errorf("%w: expected %s", errUsage, strings.Join(names, " "))
	}
	for _, arg := range args[:n] {
		if strings.HasPrefix(arg, "-") {
			return nil, nil, fmt.Errorf("%w: expected %s before flags", errUsage, strings.Join(names, " "))
		}
	}
	return args[:n], args[n:], nil
}

func fieldError(field string, err error) error {
	return &application.ValidationError{FieldErrors: map[string]string{field: err.Error()}}
}

// ----------------------------------------------------------------- auth

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	user, err := await(a.shell.Login(ctx, application.LoginCredentials{Username: *username, Password: *password}))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.shell.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoami() error {
	user, ok := a.shell.CurrentUser()
	if !ok {
		return application.ErrNotAuthenticated
	}
	perms, err := a.shell.Auth().Permissions()
	if err != nil {
		return err
	}
	var granted []string
	for _, c := range permission.Capabilities() {
		if perms.Allows(c) {
			granted = append(granted, string(c))
		}
	}
	fmt.Fprintf(a.stdout, "%s <%s> role=%s\n", user.Username, user.Email, user.Role)
	fmt.Fprintf(a.stdout, "capabilities: %s\n", strings.Join(granted, ", "))
	return nil
}

// ------------------------------------------------------------ schedules

func (a *app) schedules(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: schedules needs a subcommand", errUsage)
	}
	switch args[0] {
	case "list":
		return a.listSchedules(ctx, args[1:])
	case "add":
		return a.addSchedule(ctx, args[1:])
	case "update":
		return a.updateSchedule(ctx, args[1:])
	case "delete":
		return a.deleteSchedule(ctx, args[1:])
	}
	return fmt.Errorf("%w: unknown schedules subcommand %q", errUsage, args[0])
}

func (a *app) loadSchedules(ctx context.Context) error {
	_, err := await(a.shell.LoadSchedules(ctx))
	return err
}

func (a *app) listSchedules(ctx context.Context, args []string) error {
	fs := a.flagSet("schedules list")
	search := fs.String("search", "", "match institution name or region")
	region := fs.String("region", "", "region contains")
	types := fs.String("type", "", "comma separated training types")
	date := fs.String("date", "", "exact day (YYYY-MM-DD)")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	list := view.NewListState(a.shell.PageSize())
	list.SetSearch(*search)
	list.SetRegion(*region)
	if *types != "" {
		var selected []application.TrainingType
		for _, t := range strings.Split(*types, ",") {
			selected = append(selected, application.TrainingType(strings.TrimSpace(t)))
		}
		list.SetTrainingTypes(selected...)
	}
	if *date != "" {
		d, err := application.ParseDate(*date)
		if err != nil {
			return fieldError("date", err)
		}
		list.SetDate(d)
	}
	list.SetPage(*page)

	if err := a.loadSchedules(ctx); err != nil {
		return err
	}
	result, err := a.shell.ScheduleList(list)
	if err != nil {
		return err
	}
	renderSchedules(a.stdout, result)
	return nil
}

type scheduleFlags struct {
	date          string
	institution   string
	institutionID string
	region        string
	capacity      int
	trainingType  string
	status        string
}

func bindScheduleFlags(fs *flag.FlagSet) *scheduleFlags {
	f := &scheduleFlags{}
	fs.StringVar(&f.date, "date", "", "visit day (YYYY-MM-DD)")
	fs.StringVar(&f.institution, "institution", "", "institution name")
	fs.StringVar(&f.institutionID, "institution-id", "", "institution id")
	fs.StringVar(&f.region, "region", "", "region")
	fs.IntVar(&f.capacity, "capacity", 0, "capacity")
	fs.StringVar(&f.trainingType, "type", "", "training type")
	fs.StringVar(&f.status, "status", "", "open, closed or adjusted")
	return f
}

// applyTo copies the flags that were set on the command line into input.
func (f *scheduleFlags) applyTo(fs *flag.FlagSet, input *application.ScheduleInput) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "date":
			d, perr := application.ParseDate(f.date)
			if perr != nil {
				err = fieldError("date", perr)
				return
			}
			input.Date = d
		case "institution":
			input.InstitutionName = f.institution
		case "institution-id":
			input.InstitutionID = f.institutionID
		case "region":
			input.Region = f.region
		case "capacity":
			input.Capacity = f.capacity
		case "type":
			input.TrainingType = application.TrainingType(f.trainingType)
		case "status":
			input.Status = application.ScheduleStatus(f.status)
		}
	})
	return err
}

func (a *app) addSchedule(ctx context.Context, args []string) error {
	fs := a.flagSet("schedules add")
	flags := bindScheduleFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	input := application.ScheduleInput{TrainingType: application.TrainingClass, Status: application.ScheduleOpen}
	if err := flags.applyTo(fs, &input); err != nil {
		return err
	}

	created, err := await(a.shell.CreateSchedule(ctx, input))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, created.ID)
	return nil
}

func (a *app) updateSchedule(ctx context.Context, args []string) error {
	ids, rest, err := positional(args, 1, "<schedule-id>")
	if err != nil {
		return err
	}
	fs := a.flagSet("schedules update")
	flags := bindScheduleFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	if err := a.loadSchedules(ctx); err != nil {
		return err
	}
	schedule, ok := a.shell.Schedules().Find(ids[0])
	if !ok {
		return fmt.Errorf("schedule %s not found", ids[0])
	}
	input := schedule.Input()
	if err := flags.applyTo(fs, &input); err != nil {
		return err
	}
	schedule.Date = input.Date
	schedule.InstitutionID = input.InstitutionID
	schedule.InstitutionName = input.InstitutionName
	schedule.Region = input.Region
	schedule.Capacity = input.Capacity
	schedule.TrainingType = input.TrainingType
	schedule.Status = input.Status

	updated, err := await(a.shell.UpdateSchedule(ctx, schedule))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, updated.ID)
	return nil
}

func (a *app) deleteSchedule(ctx context.Context, args []string) error {
	ids, _, err := positional(args, 1, "<schedule-id>")
	if err != nil {
		return err
	}
	_, err = await(a.shell.DeleteSchedule(ctx, ids[0]))
	return err
}

func (a *app) calendar(ctx context.Context, args []string) error {
	fs := a.flagSet("calendar")
	month := fs.String("month", "", "month to show (YYYY-MM), default current")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	now := time.Now()
	year, mon := now.Year(), now.Month()
	if *month != "" {
		t, err := time.Parse("2006-01", *month)
		if err != nil {
			return fieldError("month", err)
		}
		year, mon = t.Year(), t.Month()
	}

	if err := a.loadSchedules(ctx); err != nil {
		return err
	}
	grid, err := a.shell.Calendar(year, mon)
	if err != nil {
		return err
	}
	renderCalendar(a.stdout, grid)
	return nil
}

// ------------------------------------------------------------- sessions

func (a *app) sessions(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: sessions needs a subcommand", errUsage)
	}
	switch args[0] {
	case "list":
		return a.listSessions(ctx, args[1:])
	case "add":
		return a.addSession(ctx, args[1:])
	case "update":
		return a.updateSession(ctx, args[1:])
	case "delete":
		return a.deleteSession(ctx, args[1:])
	}
	return fmt.Errorf("%w: unknown sessions subcommand %q", errUsage, args[0])
}

func (a *app) listSessions(ctx context.Context, args []string) error {
	ids, rest, err := positional(args, 1, "<schedule-id>")
	if err != nil {
		return err
	}
	fs := a.flagSet("sessions list")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	result, err := await(a.shell.LoadSessions(ctx, ids[0], *page))
	if err != nil {
		return err
	}
	renderSessions(a.stdout, result.Data)
	if meta := result.Meta; meta != nil {
		info := view.NewPageInfo(meta.Page, meta.PageSize, meta.TotalCount)
		fmt.Fprintf(a.stdout, "page %d/%d (%d sessions)\n", info.Page, info.TotalPages, info.TotalCount)
	}
	return nil
}

type sessionFlags struct {
	start        string
	end          string
	trainingType string
	compensation int
	payment      string
	testName     string
	grade        int
	classCount   int
	studentCount int
	region       string
	notes        string
}

func bindSessionFlags(fs *flag.FlagSet) *sessionFlags {
	f := &sessionFlags{}
	fs.StringVar(&f.start, "start", "", "start time (HH:MM)")
	fs.StringVar(&f.end, "end", "", "end time (HH:MM)")
	fs.StringVar(&f.trainingType, "type", "", "training type")
	fs.IntVar(&f.compensation, "compensation", 0, "compensation")
	fs.StringVar(&f.payment, "payment", "", "company, school or branch")
	fs.StringVar(&f.testName, "test-name", "", "test name")
	fs.IntVar(&f.grade, "grade", 0, "grade")
	fs.IntVar(&f.classCount, "class-count", 0, "number of classes")
	fs.IntVar(&f.studentCount, "student-count", 0, "number of students")
	fs.StringVar(&f.region, "region", "", "region")
	fs.StringVar(&f.notes, "notes", "", "notes")
	return f
}

func (f *sessionFlags) applyTo(fs *flag.FlagSet, session *application.Session) error {
	var err error
	parseTime := func(field, value string) application.TimeOfDay {
		t, perr := application.ParseTimeOfDay(value)
		if perr != nil && err == nil {
			err = fieldError(field, perr)
		}
		return t
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "start":
			session.StartTime = parseTime("startTime", f.start)
		case "end":
			session.EndTime = parseTime("endTime", f.end)
		case "type":
			session.TrainingType = application.TrainingType(f.trainingType)
		case "compensation":
			session.Compensation = f.compensation
		case "payment":
			session.PaymentMethod = application.PaymentMethod(f.payment)
		case "test-name":
			session.TestName = f.testName
		case "grade":
			grade := f.grade
			session.Grade = &grade
		case "class-count":
			session.ClassCount = f.classCount
		case "student-count":
			session.StudentCount = f.studentCount
		case "region":
			session.Region = f.region
		case "notes":
			session.Notes = f.notes
		}
	})
	return err
}

func (a *app) addSession(ctx context.Context, args []string) error {
	ids, rest, err := positional(args, 1, "<schedule-id>")
	if err != nil {
		return err
	}
	fs := a.flagSet("sessions add")
	flags := bindSessionFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}
	session := application.Session{ScheduleID: ids[0], TrainingType: application.TrainingClass}
	if err := flags.applyTo(fs, &session); err != nil {
		return err
	}

	created, err := await(a.shell.AddSession(ctx, session))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, created.ID)
	return nil
}

// findSession pages through a schedule's sessions until id is loaded.
func (a *app) findSession(ctx context.Context, scheduleID, id string) (application.Session, error) {
	for page := 1; ; page++ {
		result, err := await(a.shell.LoadSessions(ctx, scheduleID, page))
		if err != nil {
			return application.Session{}, err
		}
		if session, ok := a.shell.Sessions().Find(id); ok {
			return session, nil
		}
		if result.Meta == nil || len(result.Data) == 0 || page*result.Meta.PageSize >= result.Meta.TotalCount {
			return application.Session{}, fmt.Errorf("session %s not found in schedule %s", id, scheduleID)
		}
	}
}

func (a *app) updateSession(ctx context.Context, args []string) error {
	ids, rest, err := positional(args, 2, "<schedule-id>", "<session-id>")
	if err != nil {
		return err
	}
	fs := a.flagSet("sessions update")
	flags := bindSessionFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return errUsage
	}

	session, err := a.findSession(ctx, ids[0], ids[1])
	if err != nil {
		return err
	}
	if err := flags.applyTo(fs, &session); err != nil {
		return err
	}
	updated, err := await(a.shell.UpdateSession(ctx, session))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, updated.ID)
	return nil
}

func (a *app) deleteSession(ctx context.Context, args []string) error {
	ids, _, err := positional(args, 2, "<schedule-id>", "<session-id>")
	if err != nil {
		return err
	}
	_, err = await(a.shell.DeleteSession(ctx, ids[0], ids[1]))
	return err
}

// --------------------------------------------------------- applications

func (a *app) available(ctx context.Context) error {
	sessions, err := await(a.shell.LoadAvailableSessions(ctx))
	if err != nil {
		return err
	}
	renderSessions(a.stdout, sessions)
	return nil
}

func (a *app) applications(ctx context.Context) error {
	apps, err := await(a.shell.LoadApplications(ctx))
	if err != nil {
		return err
	}
	renderApplications(a.stdout, apps)
	return nil
}

func (a *app) apply(ctx context.Context, args []string) error {
	ids, _, err := positional(args, 1, "<session-id>")
	if err != nil {
		return err
	}
	filed, err := await(a.shell.Apply(ctx, ids[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, filed.ID)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	ids, _, err := positional(args, 1, "<application-id>")
	if err != nil {
		return err
	}
	// Loading first lets the shell refuse decided applications locally.
	if _, err := await(a.shell.LoadApplications(ctx)); err != nil {
		return err
	}
	_, err = await(a.shell.Cancel(ctx, ids[0]))
	return err
}

// ---------------------------------------------------------------- watch

func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flagSet("watch")
	spec := fs.String("schedule", a.cfg.RefreshSchedule, "cron schedule for refreshes")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	refresher, err := shell.NewRefresher(a.shell, *spec)
	if err != nil {
		return err
	}
	list := view.NewListState(a.shell.PageSize())
	refresher.OnRefresh = func(state store.ScheduleState, err error) {
		fmt.Fprintf(a.stdout, "--- %s ---\n", time.Now().Format(time.RFC3339))
		if err != nil {
			fmt.Fprintln(a.stdout, "refresh failed:", describe(err))
			return
		}
		renderSchedules(a.stdout, list.Apply(state.Items))
	}

	if err := refresher.RefreshNow(ctx); err != nil && errors.Is(err, application.ErrNotAuthenticated) {
		return err
	}
	refresher.Start(ctx)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	refresher.Stop(stopCtx)
	return nil
}
