package store

import (
	"testing"
	"time"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/testfixtures"
)

func TestNotificationStore(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("note")
	var delivered []application.Notification
	store := NewNotificationStore(ids.NextFunc(), clock.NowFunc(), SinkFunc(func(n application.Notification) {
		delivered = append(delivered, n)
	}))

	first := store.Add("Schedule added", application.SeveritySuccess)
	clock.Advance(time.Minute)
	second := store.Add("Failed to delete schedule", application.SeverityError)

	if first.ID != "note-1" || second.ID != "note-2" || first.IsRead {
		t.Fatalf("unexpected notifications %+v %+v", first, second)
	}
	if !second.CreatedAt.Equal(testfixtures.ReferenceTime().Add(time.Minute)) {
		t.Fatalf("expected clock timestamp, got %v", second.CreatedAt)
	}
	if len(delivered) != 2 {
		t.Fatalf("expected sink to receive both notifications, got %d", len(delivered))
	}

	if !store.MarkRead(first.ID) || store.MarkRead("missing") {
		t.Fatalf("unexpected MarkRead results")
	}
	if unread := store.Unread(); len(unread) != 1 || unread[0].ID != second.ID {
		t.Fatalf("unexpected unread list %+v", unread)
	}

	if !store.Dismiss(first.ID) {
		t.Fatalf("expected Dismiss to find the notification")
	}
	if list := store.List(); len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	store.MarkAllRead()
	if len(store.Unread()) != 0 {
		t.Fatalf("expected everything to be read")
	}
	store.Clear()
	if len(store.List()) != 0 {
		t.Fatalf("expected empty store after Clear")
	}
}
