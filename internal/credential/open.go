package credential

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	SQLite  SQLiteConfig
	Redis   RedisConfig
	// Secret seals tokens at rest when non-empty.
	Secret string
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	sealer := NewSealer(opts.Secret)
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		return OpenSQLite(ctx, opts.SQLite, sealer)
	case BackendRedis:
		return OpenRedis(ctx, opts.Redis, sealer)
	default:
		return nil, fmt.Errorf("credential: unknown backend %q", opts.Backend)
	}
}
