package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/training-scheduler/internal/application"
)

// Sink receives every notification as it is added.
type Sink interface {
	Notify(application.Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(application.Notification)

// Notify implements Sink.
func (f SinkFunc) Notify(n application.Notification) {
	if f != nil {
		f(n)
	}
}

// NotificationStore keeps process-local notifications, newest last.
type NotificationStore struct {
	idGenerator func() string
	now         func() time.Time
	sink        Sink

	mu    sync.Mutex
	items []application.Notification
}

// NewNotificationStore builds an empty store. Nil dependencies fall back to
// random ids and the wall clock.
func NewNotificationStore(idGenerator func() string, now func() time.Time, sink Sink) *NotificationStore {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &NotificationStore{idGenerator: idGenerator, now: now, sink: sink}
}

// Add records an unread notification and forwards it to the sink.
func (s *NotificationStore) Add(message string, severity application.Severity) application.Notification {
	n := application.Notification{
		ID:        s.idGenerator(),
		Message:   message,
		Severity:  severity,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.Notify(n)
	}
	return n
}

// MarkRead flags the notification with id as read.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
			return true
		}
	}
	return false
}

// MarkAllRead flags every notification as read.
func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].IsRead = true
	}
}

// Dismiss removes the notification with id.
func (s *NotificationStore) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every notification.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// List copies every notification in insertion order.
func (s *NotificationStore) List() []application.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Unread copies the notifications not yet marked read.
func (s *NotificationStore) Unread() []application.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []application.Notification
	for _, n := range s.items {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}
