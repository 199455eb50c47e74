package credential

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/training-scheduler/internal/application"
)

var cheapKDF = KDFParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8}

func sampleUser() application.User {
	return application.User{ID: "u-1", Username: "hanako", Email: "hanako@example.com", Role: application.RoleTeamLeader}
}

// exerciseStore runs the shared contract against a backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	user, err := store.CurrentUser(ctx)
	if err != nil || user != nil {
		t.Fatalf("expected empty store, got %+v, %v", user, err)
	}
	token, err := store.AuthToken(ctx)
	if err != nil || token != "" {
		t.Fatalf("expected empty token, got %q, %v", token, err)
	}

	if err := store.Persist(ctx, sampleUser(), "token-1"); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if err := store.Persist(ctx, sampleUser(), "token-2"); err != nil {
		t.Fatalf("second Persist returned error: %v", err)
	}

	user, err = store.CurrentUser(ctx)
	if err != nil || user == nil || *user != sampleUser() {
		t.Fatalf("unexpected user %+v, %v", user, err)
	}
	token, err = store.AuthToken(ctx)
	if err != nil || token != "token-2" {
		t.Fatalf("expected latest token, got %q, %v", token, err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	user, err = store.CurrentUser(ctx)
	if err != nil || user != nil {
		t.Fatalf("expected cleared store, got %+v, %v", user, err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "credentials.db")
	store, err := OpenSQLite(context.Background(), DefaultSQLiteConfig(dsn), NewSealerWithParams("secret", cheapKDF))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStore_SurvivesReopenAndSealsToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "credentials.db")
	sealer := NewSealerWithParams("secret", cheapKDF)

	first, err := OpenSQLite(ctx, DefaultSQLiteConfig(dsn), sealer)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	if err := first.Persist(ctx, sampleUser(), "plain-token"); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}

	var payload string
	if err := first.db.QueryRowContext(ctx, `SELECT payload FROM credentials`).Scan(&payload); err != nil {
		t.Fatalf("failed to read raw payload: %v", err)
	}
	if strings.Contains(payload, "plain-token") {
		t.Fatalf("expected token to be sealed at rest, got %s", payload)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := OpenSQLite(ctx, DefaultSQLiteConfig(dsn), sealer)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	token, err := second.AuthToken(ctx)
	if err != nil || token != "plain-token" {
		t.Fatalf("expected token after reopen, got %q, %v", token, err)
	}

	wrong, err := OpenSQLite(ctx, DefaultSQLiteConfig(dsn), NewSealerWithParams("other", cheapKDF))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = wrong.Close() })
	if _, err := wrong.AuthToken(ctx); !errors.Is(err, ErrSealMismatch) {
		t.Fatalf("expected ErrSealMismatch, got %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TRAINING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRAINING_TEST_REDIS_ADDR not set")
	}

	store, err := OpenRedis(context.Background(), RedisConfig{Addr: addr, Key: "trainingctl:test:" + t.Name()}, NewSealerWithParams("secret", cheapKDF))
	if err != nil {
		t.Fatalf("OpenRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)
}

func TestSealer(t *testing.T) {
	t.Parallel()

	sealer := NewSealerWithParams("passphrase", cheapKDF)
	sealed, err := sealer.Seal("header.payload.signature")
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if !strings.HasPrefix(sealed, "$sealed$v=1$") {
		t.Fatalf("unexpected sealed format %q", sealed)
	}

	opened, err := sealer.Open(sealed)
	if err != nil || opened != "header.payload.signature" {
		t.Fatalf("expected round trip, got %q, %v", opened, err)
	}

	again, err := sealer.Seal("header.payload.signature")
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}
	if again == sealed {
		t.Fatalf("expected a fresh salt and nonce per seal")
	}

	tests := []struct {
		name  string
		value string
		want  error
	}{
		{name: "plain value with sealer", value: "plain", want: ErrInvalidSealedToken},
		{name: "wrong part count", value: "$sealed$v=1$broken", want: ErrInvalidSealedToken},
		{name: "future version", value: strings.Replace(sealed, "v=1", "v=9", 1), want: ErrIncompatibleSealVersion},
	}
	for _, tc := range tests {
		if _, err := sealer.Open(tc.value); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestNilSealerPassesThrough(t *testing.T) {
	t.Parallel()

	var sealer *Sealer
	if NewSealer("") != nil {
		t.Fatalf("expected nil sealer for empty passphrase")
	}
	sealed, err := sealer.Seal("token")
	if err != nil || sealed != "token" {
		t.Fatalf("expected passthrough, got %q, %v", sealed, err)
	}
	opened, err := sealer.Open("token")
	if err != nil || opened != "token" {
		t.Fatalf("expected passthrough, got %q, %v", opened, err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	store, err := Open(context.Background(), Options{Backend: "Memory"})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, ok := store.(*Memory); !ok {
		t.Fatalf("expected memory backend, got %T", store)
	}

	if _, err := Open(context.Background(), Options{Backend: "etcd"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
