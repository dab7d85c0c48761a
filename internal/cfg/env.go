package cfg

import (
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type GAS struct {
	URL            string        `env:"GAS_URL"`
	AttemptTimeout time.Duration `env:"GAS_TIMEOUT" env-default:"30s"`
	// RateLimit caps outbound calls per second; 0 disables the limiter.
	RateLimit float64 `env:"GAS_RATE_LIMIT" env-default:"0"`
	RateBurst int     `env:"GAS_RATE_BURST" env-default:"5"`
}

type Retry struct {
	MaxRetries int           `env:"RETRY_MAX" env-default:"3"`
	BaseDelay  time.Duration `env:"RETRY_BASE_DELAY" env-default:"1s"`
	Multiplier float64       `env:"RETRY_MULTIPLIER" env-default:"2"`
	MaxDelay   time.Duration `env:"RETRY_MAX_DELAY" env-default:"10s"`
}

type Cache struct {
	DefaultTTL    time.Duration `env:"CACHE_DEFAULT_TTL" env-default:"5m"`
	ComplaintsTTL time.Duration `env:"CACHE_COMPLAINTS_TTL" env-default:"2m"`
	UsersTTL      time.Duration `env:"CACHE_USERS_TTL" env-default:"10m"`
	AnalyticsTTL  time.Duration `env:"CACHE_ANALYTICS_TTL" env-default:"10m"`
}

type Queue struct {
	Store         string        `env:"QUEUE_STORE" env-default:"sqlite"`
	Key           string        `env:"QUEUE_KEY" env-default:"eeu_offline_queue"`
	SQLitePath    string        `env:"QUEUE_SQLITE_PATH" env-default:"eeudesk.db"`
	CacheAddr     string        `env:"CACHE_ADDR" env-default:"localhost:6379"`
	DbConn        string        `env:"DB_CONNECTION_STRING" env-default:"mongodb://localhost:27017"`
	DrainInterval time.Duration `env:"QUEUE_DRAIN_INTERVAL" env-default:"30s"`
}

type Connectivity struct {
	// ProbeURL is checked periodically; empty means "always online".
	ProbeURL      string        `env:"CONNECTIVITY_PROBE_URL"`
	ProbeInterval time.Duration `env:"CONNECTIVITY_PROBE_INTERVAL" env-default:"15s"`
	ProbeTimeout  time.Duration `env:"CONNECTIVITY_PROBE_TIMEOUT" env-default:"5s"`
}

type Server struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// Users enables basic auth on the agent API, as "name:password,name2:password2".
	Users map[string]string `env:"AGENT_USERS"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `env:"LOG_JSON" env-default:"true"`
}

type Config struct {
	GAS          GAS
	Retry        Retry
	Cache        Cache
	Queue        Queue
	Connectivity Connectivity
	Server       Server
	Log          Log
}

var (
	cfg    Config
	loaded bool
	mu     sync.Mutex
)

// Get reads the environment once and returns the resulting config.
// A config installed with SetConfig wins over the environment.
func Get() Config {
	mu.Lock()
	defer mu.Unlock()

	if loaded {
		return cfg
	}

	c, err := Load()
	if err != nil {
		panic(err)
	}
	cfg = c
	loaded = true

	return cfg
}

// Load reads a fresh Config from the environment.
func Load() (Config, error) {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return c, nil
}

func SetConfig(c Config) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

// Validate reports settings the agent cannot start without.
func (c Config) Validate() error {
	if c.GAS.URL == "" {
		return fmt.Errorf("GAS_URL is required")
	}

	switch c.Queue.Store {
	case "sqlite", "redis", "mongo", "memory":
	default:
		return fmt.Errorf("unknown QUEUE_STORE %q", c.Queue.Store)
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX must not be negative")
	}

	return nil
}

// Usage describes every supported environment variable.
func Usage() string {
	var c Config
	s, err := cleanenv.GetDescription(&c, nil)
	if err != nil {
		return err.Error()
	}
	return s
}
