package shell

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/credential"
	"github.com/example/training-scheduler/internal/gateway"
	"github.com/example/training-scheduler/internal/logging"
	"github.com/example/training-scheduler/internal/store"
	"github.com/example/training-scheduler/internal/testfixtures"
	"github.com/example/training-scheduler/internal/view"
)

type harness struct {
	shell *Shell
	fake  *testfixtures.FakeGateway
	clock *testfixtures.Clock
}

// newHarness returns a shell signed in as role, or signed out when role is empty.
func newHarness(t *testing.T, role application.Role) harness {
	t.Helper()

	fake := testfixtures.NewFakeGateway()
	clock := testfixtures.NewClock(time.Time{})
	creds := credential.NewMemory()
	if role != "" {
		if err := creds.Persist(context.Background(), testfixtures.User(role), "mock-token"); err != nil {
			t.Fatalf("Persist returned error: %v", err)
		}
	}

	sh, err := New(Dependencies{
		Gateway:     fake,
		Credentials: creds,
		Logger:      logging.Discard(),
		Now:         clock.NowFunc(),
		IDGenerator: testfixtures.NewIDGenerator("note").NextFunc(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(sh.Close)
	if err := sh.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	return harness{shell: sh, fake: fake, clock: clock}
}

func wait[T any](t *testing.T, task *store.Task[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, err := task.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("task did not settle in time")
	}
	return value, err
}

func messages(notes []application.Notification) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = string(n.Severity) + ": " + n.Message
	}
	return out
}

func validInput() application.ScheduleInput {
	return testfixtures.NewSchedule().Input()
}

func TestNew_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Dependencies{Credentials: credential.NewMemory()}); err == nil {
		t.Fatalf("expected missing gateway to fail")
	}
	if _, err := New(Dependencies{Gateway: testfixtures.NewFakeGateway()}); err == nil {
		t.Fatalf("expected missing credential store to fail")
	}
}

func TestShell_TeacherRoleCannotEditSchedules(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleInstructor)
	existing := testfixtures.NewSchedule()
	h.fake.SeedSchedules(existing)

	if _, err := h.shell.CreateSchedule(context.Background(), validInput()); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected forbidden create, got %v", err)
	}
	if _, err := h.shell.UpdateSchedule(context.Background(), existing); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected forbidden update, got %v", err)
	}
	if _, err := h.shell.DeleteSchedule(context.Background(), existing.ID); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if h.fake.TotalCalls() != 0 {
		t.Fatalf("expected no gateway calls, got %d", h.fake.TotalCalls())
	}
	if len(h.shell.Schedules().Items()) != 0 {
		t.Fatalf("expected schedule store to stay empty")
	}

	got := messages(h.shell.Notifications().List())
	want := []string{
		"error: You do not have permission to add schedules",
		"error: You do not have permission to edit schedules",
		"error: You do not have permission to delete schedules",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestShell_ManagerRoleCannotApply(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleAdmin)
	if _, err := h.shell.Apply(context.Background(), "session-1"); !errors.Is(err, application.ErrForbidden) {
		t.Fatalf("expected forbidden apply, got %v", err)
	}
	if h.fake.Calls(testfixtures.OpApplyForSession) != 0 {
		t.Fatalf("expected apply to stay local")
	}
}

func TestShell_ValidationFaultStaysLocal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleAdmin)
	input := validInput()
	input.Capacity = 0

	_, err := h.shell.CreateSchedule(context.Background(), input)
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.Field("capacity"); !ok {
		t.Fatalf("expected capacity field error, got %v", vErr.FieldErrors)
	}
	if h.fake.TotalCalls() != 0 {
		t.Fatalf("expected no gateway call")
	}
	state := h.shell.Schedules().Snapshot()
	if len(state.Items) != 0 || state.Add.Status != store.StatusIdle {
		t.Fatalf("expected store untouched, got %+v", state)
	}
	if len(h.shell.Notifications().List()) != 0 {
		t.Fatalf("expected no notification for a validation fault")
	}

	session := testfixtures.NewSession("S1", testfixtures.WithTimes(application.MustTimeOfDay(11, 0), application.MustTimeOfDay(10, 0)))
	if _, err := h.shell.AddSession(context.Background(), session); !errors.As(err, &vErr) {
		t.Fatalf("expected session validation error, got %v", err)
	}
	if msg, _ := vErr.Field("endTime"); msg != "End time must be after start time" {
		t.Fatalf("unexpected endTime message %q", msg)
	}
}

func TestShell_ScheduleOutcomesPostNotifications(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleTeamLeader)
	ctx := context.Background()

	task, err := h.shell.CreateSchedule(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	created, err := wait(t, task)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	h.fake.Fail(testfixtures.OpUpdateSchedule, &gateway.Error{Code: "CONFLICT", Message: "Schedule changed", Status: 409})
	created.Capacity = 12
	task, err = h.shell.UpdateSchedule(ctx, created)
	if err != nil {
		t.Fatalf("UpdateSchedule returned error: %v", err)
	}
	if _, err := wait(t, task); err == nil {
		t.Fatalf("expected update to fail")
	}

	got := messages(h.shell.Notifications().List())
	want := []string{
		"success: Schedule created successfully",
		"error: An error occurred while saving the schedule",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected notifications %v", got)
	}
	if items := h.shell.Schedules().Items(); len(items) != 1 || items[0].Capacity == 12 {
		t.Fatalf("expected failed update to leave the schedule unchanged, got %+v", items)
	}
	if h.shell.Schedules().Snapshot().Error != "Schedule changed" {
		t.Fatalf("expected store error message to be recorded")
	}
}

func TestShell_DeleteScheduleInvalidatesSessions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleAdmin)
	ctx := context.Background()
	doomed := testfixtures.NewSchedule(testfixtures.WithScheduleID("S1"))
	h.fake.SeedSchedules(doomed)
	h.fake.SeedSessions(testfixtures.NewSession("S1"), testfixtures.NewSession("S1"))

	load, err := h.shell.LoadSchedules(ctx)
	if err != nil {
		t.Fatalf("LoadSchedules returned error: %v", err)
	}
	if _, err := wait(t, load); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	sessions, err := h.shell.LoadSessions(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("LoadSessions returned error: %v", err)
	}
	if page, err := wait(t, sessions); err != nil || len(page.Data) != 2 {
		t.Fatalf("unexpected sessions page %+v, %v", page, err)
	}

	del, err := h.shell.DeleteSchedule(ctx, "S1")
	if err != nil {
		t.Fatalf("DeleteSchedule returned error: %v", err)
	}
	if _, err := wait(t, del); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if len(h.shell.Schedules().Items()) != 0 {
		t.Fatalf("expected schedule to be removed")
	}
	if state := h.shell.Sessions().Snapshot(); len(state.Items) != 0 || state.Meta != nil {
		t.Fatalf("expected sessions of the deleted schedule to be dropped, got %+v", state)
	}
}

func TestShell_InstructorApplicationFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleInstructor)
	ctx := context.Background()
	open := testfixtures.NewSession("S1", testfixtures.WithSessionID("open"))
	taken := testfixtures.NewSession("S1", testfixtures.WithSessionID("taken"), testfixtures.WithInstructor("someone"))
	decided := testfixtures.NewApplication(taken, application.ApplicationApproved)
	h.fake.SeedSessions(open, taken)
	h.fake.SeedApplications(decided)

	available, err := h.shell.LoadAvailableSessions(ctx)
	if err != nil {
		t.Fatalf("LoadAvailableSessions returned error: %v", err)
	}
	if _, err := wait(t, available); err != nil {
		t.Fatalf("available load failed: %v", err)
	}
	apps, err := h.shell.LoadApplications(ctx)
	if err != nil {
		t.Fatalf("LoadApplications returned error: %v", err)
	}
	if _, err := wait(t, apps); err != nil {
		t.Fatalf("applications load failed: %v", err)
	}

	apply, err := h.shell.Apply(ctx, "open")
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	filed, err := wait(t, apply)
	if err != nil || filed.Status != application.ApplicationPending {
		t.Fatalf("unexpected application %+v, %v", filed, err)
	}

	rejected, err := h.shell.Apply(ctx, "taken")
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if _, err := wait(t, rejected); err == nil {
		t.Fatalf("expected apply on an assigned session to fail")
	}

	if _, err := h.shell.Cancel(ctx, decided.ID); !errors.Is(err, application.ErrNotCancellable) {
		t.Fatalf("expected decided application to be refused locally, got %v", err)
	}
	if h.fake.Calls(testfixtures.OpCancelApplication) != 0 {
		t.Fatalf("expected no cancel call for a decided application")
	}

	cancel, err := h.shell.Cancel(ctx, filed.ID)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if _, err := wait(t, cancel); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, ok := h.shell.Sessions().FindApplication(filed.ID); ok {
		t.Fatalf("expected cancelled application to be removed")
	}

	got := messages(h.shell.Notifications().List())
	want := []string{
		"success: Application submitted successfully",
		"error: Failed to submit application",
		"success: Application cancelled successfully",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestShell_SignedOutActionsFail(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	if _, err := h.shell.LoadSchedules(context.Background()); !errors.Is(err, application.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := h.shell.Calendar(2024, time.May); !errors.Is(err, application.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated calendar, got %v", err)
	}
	if len(h.shell.Notifications().List()) != 0 || h.fake.TotalCalls() != 0 {
		t.Fatalf("expected signed out actions to stay silent and local")
	}
}

func TestShell_LoginAndLogout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()
	h.fake.AddUser("secret", application.AuthResult{User: testfixtures.User(application.RoleRegular), Token: "mock-token"})

	if _, err := h.shell.Login(ctx, application.LoginCredentials{}); err == nil {
		t.Fatalf("expected empty credentials to be rejected")
	}
	if h.fake.Calls(testfixtures.OpLogin) != 0 {
		t.Fatalf("expected empty credentials to stay local")
	}

	task, err := h.shell.Login(ctx, application.LoginCredentials{Username: string(application.RoleRegular), Password: "secret"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := wait(t, task); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user, ok := h.shell.CurrentUser(); !ok || user.Role != application.RoleRegular {
		t.Fatalf("expected regular user, got %+v", user)
	}

	if err := h.shell.Logout(ctx); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, ok := h.shell.CurrentUser(); ok {
		t.Fatalf("expected logout to clear the user")
	}
}

func TestShell_CloseSuppressesLateNotifications(t *testing.T) {
	t.Parallel()

	h := newHarness(t, application.RoleAdmin)
	h.fake.Hold(testfixtures.OpCreateSchedule)

	task, err := h.shell.CreateSchedule(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateSchedule returned error: %v", err)
	}
	var held *testfixtures.HeldCall
	select {
	case held = <-h.fake.Held():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a held call")
	}

	h.shell.Close()
	held.Release()

	if _, err := wait(t, task); !store.IsDetached(err) {
		t.Fatalf("expected detached result, got %v", err)
	}
	if len(h.shell.Notifications().List()) != 0 {
		t.Fatalf("expected no notification after close")
	}
}

func TestShell_CalendarAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	upcoming := testfixtures.NewSchedule(testfixtures.WithDate(application.NewDate(2024, time.January, 20)))

	for _, tc := range []struct {
		role       application.Role
		restricted bool
	}{
		{role: application.RoleInstructor, restricted: true},
		{role: application.RoleTeamLeader, restricted: false},
	} {
		h := newHarness(t, tc.role)
		h.fake.SeedSchedules(upcoming)
		load, err := h.shell.LoadSchedules(ctx)
		if err != nil {
			t.Fatalf("LoadSchedules returned error: %v", err)
		}
		if _, err := wait(t, load); err != nil {
			t.Fatalf("load failed: %v", err)
		}

		month, err := h.shell.Calendar(2024, time.January)
		if err != nil {
			t.Fatalf("Calendar returned error: %v", err)
		}
		day := month.Days[19]
		if !day.HasSchedule || day.Markers[0].Restricted != tc.restricted {
			t.Fatalf("%s: unexpected marker %+v", tc.role, day)
		}

		page, err := h.shell.ScheduleList(view.NewListState(h.shell.PageSize()))
		if err != nil || page.TotalCount != 1 {
			t.Fatalf("%s: unexpected list page %+v, %v", tc.role, page, err)
		}
	}
}

func TestShell_LogsUnderSnakeCaseLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sh, err := New(Dependencies{
		Gateway:     testfixtures.NewFakeGateway(),
		Credentials: credential.NewMemory(),
		Logger:      logging.New(&buf, "text", slog.LevelDebug),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(sh.Close)

	if sh.Auth() == nil || sh.Schedules() == nil || sh.Sessions() == nil || sh.Notifications() == nil {
		t.Fatalf("expected every store to be wired")
	}
	if sh.PageSize() != view.DefaultPageSize {
		t.Fatalf("expected default page size, got %d", sh.PageSize())
	}

	if _, err := sh.Login(context.Background(), application.LoginCredentials{}); err == nil {
		t.Fatalf("expected empty credentials to be rejected")
	}
	out := buf.String()
	if !strings.Contains(out, "component=shell") || !strings.Contains(out, "operation=login") {
		t.Fatalf("expected snake_case component and operation, got %q", out)
	}
}
