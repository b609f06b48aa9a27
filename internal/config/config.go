package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
	"github.com/sushantshinde2401/bookkeeper/internal/view"
)

// Signal backends the server can keep sync signals in.
const (
	SignalBackendSQLite = "sqlite"
	SignalBackendMemory = "memory"
	SignalBackendKafka  = "kafka"
)

// Config holds the settings shared by every command. Flags override it.
type Config struct {
	// ServerURL is where clients find the REST API.
	ServerURL string
	// ListenAddr is where serve listens.
	ListenAddr string
	// WebAddr is where the web terminal listens.
	WebAddr string
	DBPath  string

	// SignalBackend is one of sqlite, memory or kafka.
	SignalBackend string
	KafkaBrokers  []string
	KafkaTopic    string

	PollInterval    time.Duration
	RefreshInterval time.Duration
	PageSize        int
	Currency        string

	LogLevel string
	// LogFile receives TUI logs; the terminal is busy drawing.
	LogFile string
}

// LoadFromEnv reads .env (when present) and then the environment. Values
// already set in the environment win over .env.
func LoadFromEnv(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	cfg.ServerURL = getenv("BOOKKEEPER_SERVER", "http://localhost:8888")
	cfg.ListenAddr = getenv("BOOKKEEPER_ADDR", ":8888")
	cfg.WebAddr = getenv("BOOKKEEPER_WEB_ADDR", ":8080")
	cfg.DBPath = getenv("BOOKKEEPER_DB", "bookkeeper.db")

	cfg.SignalBackend = strings.ToLower(getenv("BOOKKEEPER_SIGNAL_BACKEND", SignalBackendSQLite))
	switch cfg.SignalBackend {
	case SignalBackendSQLite, SignalBackendMemory, SignalBackendKafka:
	default:
		return nil, fmt.Errorf("BOOKKEEPER_SIGNAL_BACKEND: unknown backend %q", cfg.SignalBackend)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaTopic = getenv("KAFKA_SIGNAL_TOPIC", "ledger_sync_signals")
	if cfg.SignalBackend == SignalBackendKafka && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS environment variable is required for the kafka signal backend")
	}

	var err error
	if cfg.PollInterval, err = durationEnv("BOOKKEEPER_POLL_INTERVAL", syncsignal.DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = durationEnv("BOOKKEEPER_REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = intEnv("BOOKKEEPER_PAGE_SIZE", view.DefaultPageSize); err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("BOOKKEEPER_PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}

	cfg.Currency = strings.ToUpper(getenv("BOOKKEEPER_CURRENCY", ledger.DefaultCurrency))
	cfg.LogLevel = getenv("LOG_LEVEL", "info")
	cfg.LogFile = getenv("BOOKKEEPER_LOG_FILE", "bookkeeper-tui.log")

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
