// Package credential persists the signed-in user and bearer token between
// runs. Backends are selected by configuration: memory, SQLite or Redis.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/example/training-scheduler/internal/application"
)

// ErrCorruptRecord is returned when a stored record cannot be decoded.
var ErrCorruptRecord = errors.New("credential: corrupt record")

// Store is the credential store contract used to hydrate and tear down the
// signed-in identity.
type Store interface {
	CurrentUser(ctx context.Context) (*application.User, error)
	AuthToken(ctx context.Context) (string, error)
	Persist(ctx context.Context, user application.User, token string) error
	Clear(ctx context.Context) error
	Close() error
}

// record is the serialised form shared by the persistent backends.
type record struct {
	User  application.User `json:"user"`
	Token string           `json:"token"`
}

func encodeRecord(sealer *Sealer, user application.User, token string) ([]byte, error) {
	sealed, err := sealer.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("seal token: %w", err)
	}
	return json.Marshal(record{User: user, Token: sealed})
}

func decodeRecord(sealer *Sealer, raw []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	token, err := sealer.Open(rec.Token)
	if err != nil {
		return record{}, err
	}
	rec.Token = token
	return rec, nil
}

// Memory keeps credentials for the life of the process.
type Memory struct {
	mu    sync.RWMutex
	user  *application.User
	token string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// CurrentUser returns the persisted user, or nil when signed out.
func (m *Memory) CurrentUser(ctx context.Context) (*application.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil, nil
	}
	user := *m.user
	return &user, nil
}

// AuthToken returns the persisted token, or "" when signed out.
func (m *Memory) AuthToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

// Persist stores user and token, replacing any previous values.
func (m *Memory) Persist(ctx context.Context, user application.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	m.token = token
	return nil
}

// Clear forgets the stored credentials.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.token = ""
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
