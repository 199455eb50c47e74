package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config captures environment driven configuration values for trainingctl.
type Config struct {
	APIBaseURL string
	// APITimeout bounds each gateway request; zero means no client timeout.
	APITimeout time.Duration

	CredentialBackend string
	CredentialDSN     string
	CredentialSecret  string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	PageSize        int
	RefreshSchedule string
	LogFormat       string
	LogLevel        slog.Level
}

const (
	defaultAPIBaseURL      = "http://localhost:3000/api"
	defaultCredentialDSN   = "file:trainingctl.db"
	defaultRedisAddr       = "localhost:6379"
	defaultPageSize        = 10
	defaultRefreshSchedule = "@every 1m"
	defaultEnvFile         = ".env"
)

// LoadEnvFile merges path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("環境ファイルを読み込めません: %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment,
// after merging the file named by TRAINING_ENV_FILE (default .env).
//
// The loader applies defaults for optional fields while validating the
// supplied values and reporting localized error messages for bad entries.
func Load() (Config, error) {
	if err := LoadEnvFile(os.Getenv("TRAINING_ENV_FILE")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL:        defaultAPIBaseURL,
		CredentialBackend: "sqlite",
		CredentialDSN:     defaultCredentialDSN,
		RedisAddr:         defaultRedisAddr,
		PageSize:          defaultPageSize,
		RefreshSchedule:   defaultRefreshSchedule,
		LogFormat:         "text",
		LogLevel:          slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if baseURL := strings.TrimSpace(os.Getenv("TRAINING_API_BASE_URL")); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			invalid = append(invalid, "TRAINING_API_BASE_URL")
		} else {
			cfg.APIBaseURL = baseURL
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("TRAINING_API_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, "TRAINING_API_TIMEOUT")
		} else {
			cfg.APITimeout = timeout
		}
	}

	if backend := strings.ToLower(strings.TrimSpace(os.Getenv("TRAINING_CREDENTIAL_BACKEND"))); backend != "" {
		switch backend {
		case "sqlite", "redis", "memory":
			cfg.CredentialBackend = backend
		default:
			invalid = append(invalid, "TRAINING_CREDENTIAL_BACKEND")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("TRAINING_CREDENTIAL_DSN")); dsn != "" {
		cfg.CredentialDSN = dsn
	}
	cfg.CredentialSecret = os.Getenv("TRAINING_CREDENTIAL_SECRET")

	if addr, ok := os.LookupEnv("TRAINING_REDIS_ADDR"); ok {
		addr = strings.TrimSpace(addr)
		if addr == "" && cfg.CredentialBackend == "redis" {
			missing = append(missing, "TRAINING_REDIS_ADDR")
		} else if addr != "" {
			cfg.RedisAddr = addr
		}
	}
	cfg.RedisPassword = os.Getenv("TRAINING_REDIS_PASSWORD")

	if dbValue := strings.TrimSpace(os.Getenv("TRAINING_REDIS_DB")); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "TRAINING_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("TRAINING_PAGE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "TRAINING_PAGE_SIZE")
		} else {
			cfg.PageSize = size
		}
	}

	if spec := strings.TrimSpace(os.Getenv("TRAINING_REFRESH_SCHEDULE")); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, "TRAINING_REFRESH_SCHEDULE")
		} else {
			cfg.RefreshSchedule = spec
		}
	}

	if format := strings.ToLower(strings.TrimSpace(os.Getenv("TRAINING_LOG_FORMAT"))); format != "" {
		if format != "text" && format != "json" {
			invalid = append(invalid, "TRAINING_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if levelValue := strings.TrimSpace(os.Getenv("TRAINING_LOG_LEVEL")); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "TRAINING_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
