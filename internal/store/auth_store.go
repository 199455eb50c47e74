package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/training-scheduler/internal/application"
	"github.com/example/training-scheduler/internal/permission"
)

// CredentialStore persists the signed-in identity between runs.
type CredentialStore interface {
	CurrentUser(ctx context.Context) (*application.User, error)
	AuthToken(ctx context.Context) (string, error)
	Persist(ctx context.Context, user application.User, token string) error
	Clear(ctx context.Context) error
}

// AuthState is a point in time copy of the auth store.
type AuthState struct {
	User        *application.User
	Token       string
	Permissions permission.Permission
	Loading     bool
	Error       string
}

// Authenticated reports whether a user is signed in.
func (s AuthState) Authenticated() bool {
	return s.User != nil
}

// AuthStore holds the signed-in user and the capability set derived from its
// role. Only Hydrate, Login and Logout write it.
type AuthStore struct {
	gateway     AuthGateway
	credentials CredentialStore
	logger      *slog.Logger
	now         func() time.Time

	mu          sync.RWMutex
	user        *application.User
	token       string
	permissions permission.Permission
	inFlight    int
	err         string
}

// NewAuthStore builds a signed-out auth store.
func NewAuthStore(gw AuthGateway, credentials CredentialStore, logger *slog.Logger, now func() time.Time) *AuthStore {
	if now == nil {
		now = time.Now
	}
	return &AuthStore{
		gateway:     gw,
		credentials: credentials,
		logger:      application.DefaultLogger(logger),
		now:         now,
	}
}

// Hydrate restores the identity from the credential store. An unknown role or
// an expired token clears the stored credentials and leaves the store signed
// out; both are returned as errors.
func (s *AuthStore) Hydrate(ctx context.Context) (err error) {
	logger := application.ComponentLogger(ctx, s.logger, "auth_store", "hydrate")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "credential hydration failed", "error", err, "error_kind", application.ErrorKind(err))
		}
	}()

	if s.credentials == nil {
		return nil
	}
	user, err := s.credentials.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("read stored user: %w", err)
	}
	token, err := s.credentials.AuthToken(ctx)
	if err != nil {
		return fmt.Errorf("read stored token: %w", err)
	}
	if user == nil || token == "" {
		return nil
	}

	perms, err := permission.Resolve(user.Role)
	if err != nil {
		s.discard(ctx, logger)
		return err
	}
	if expired, expErr := tokenExpired(token, s.now()); expErr != nil || expired {
		s.discard(ctx, logger)
		if expErr != nil {
			return fmt.Errorf("%w: %v", application.ErrSessionExpired, expErr)
		}
		return application.ErrSessionExpired
	}

	s.mu.Lock()
	u := *user
	s.user = &u
	s.token = token
	s.permissions = perms
	s.err = ""
	s.mu.Unlock()

	logger.InfoContext(ctx, "restored signed-in user", "user_id", user.ID, "role", user.Role)
	return nil
}

func (s *AuthStore) discard(ctx context.Context, logger *slog.Logger) {
	if err := s.credentials.Clear(ctx); err != nil {
		logger.WarnContext(ctx, "failed to clear stored credentials", "error", err)
	}
}

// Login authenticates and, on success, replaces the identity and persists it.
// A role outside the closed set fails the login.
func (s *AuthStore) Login(ctx context.Context, creds application.LoginCredentials) *Task[application.User] {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := application.ComponentLogger(ctx, s.logger, "auth_store", "login", "username", creds.Username)

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	task := newTask[application.User]()
	go func() {
		result, err := s.gateway.Login(ctx, creds)
		var perms permission.Permission
		if err == nil {
			perms, err = permission.Resolve(result.User.Role)
		}

		s.mu.Lock()
		s.inFlight--
		if err != nil {
			s.err = errorMessage(err)
			s.mu.Unlock()
			logger.WarnContext(ctx, "login failed", "error", err, "error_kind", application.ErrorKind(err))
			task.settle(application.User{}, err)
			return
		}
		user := result.User
		s.user = &user
		s.token = result.Token
		s.permissions = perms
		s.err = ""
		s.mu.Unlock()

		if s.credentials != nil {
			if pErr := s.credentials.Persist(ctx, user, result.Token); pErr != nil {
				logger.WarnContext(ctx, "failed to persist credentials", "error", pErr)
			}
		}
		logger.InfoContext(ctx, "signed in", "user_id", user.ID, "role", user.Role)
		task.settle(user, nil)
	}()
	return task
}

// Logout clears the identity and the stored credentials.
func (s *AuthStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.permissions = permission.Permission{}
	s.err = ""
	s.mu.Unlock()

	if s.credentials == nil {
		return nil
	}
	if err := s.credentials.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Snapshot copies the current state.
func (s *AuthStore) Snapshot() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := AuthState{
		Token:       s.token,
		Permissions: s.permissions,
		Loading:     s.inFlight > 0,
		Error:       s.err,
	}
	if s.user != nil {
		u := *s.user
		state.User = &u
	}
	return state
}

// CurrentUser returns the signed-in user.
func (s *AuthStore) CurrentUser() (application.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return application.User{}, false
	}
	return *s.user, true
}

// Permissions returns the capability set of the signed-in user. It fails with
// application.ErrNotAuthenticated when signed out.
func (s *AuthStore) Permissions() (permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return permission.Permission{}, application.ErrNotAuthenticated
	}
	return s.permissions, nil
}

// AuthToken lets the store act as the gateway's token source.
func (s *AuthStore) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// tokenExpired inspects the exp claim of a JWT without verifying the
// signature. Tokens that are not JWTs never expire client side.
func tokenExpired(token string, now time.Time) (bool, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return false, nil
		}
		return false, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return false, err
	}
	if exp == nil {
		return false, nil
	}
	return !now.Before(exp.Time), nil
}
