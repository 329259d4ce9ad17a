package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures the workout client.
type ClientConfig struct {
	Timer TimerConfig `yaml:"timer"`
	Store StoreConfig `yaml:"store"`
	Push  PushConfig  `yaml:"push"`
	User  UserConfig  `yaml:"user"`
}

// TimerConfig holds the session clock durations and tick settings.
// A zero workout duration makes the workout clock count up without limit.
type TimerConfig struct {
	Preparation  time.Duration `yaml:"preparation"`
	Workout      time.Duration `yaml:"workout"`
	Rest         time.Duration `yaml:"rest"`
	TickInterval time.Duration `yaml:"tick_interval"`
	TickWorkers  int           `yaml:"tick_workers"`
}

// StoreConfig selects where session records are kept.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // sqlite, redis or memory
	Dir    string      `yaml:"dir"`
	Redis  RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// PushConfig points at the session history server. An empty ServerURL
// disables pushing.
type PushConfig struct {
	ServerURL string        `yaml:"server_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

type UserConfig struct {
	Bodyweight     float64 `yaml:"bodyweight_kg"`
	LoadPercentage float64 `yaml:"load_percentage"`
}

// DefaultClient returns the client configuration used when no file exists.
func DefaultClient() *ClientConfig {
	dir := ".repclock"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".repclock")
	}
	return &ClientConfig{
		Timer: TimerConfig{
			Preparation:  10 * time.Second,
			Workout:      60 * time.Minute,
			Rest:         90 * time.Second,
			TickInterval: 100 * time.Millisecond,
			TickWorkers:  4,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Dir:    dir,
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "repclock:"},
		},
		Push: PushConfig{Timeout: 10 * time.Second},
		User: UserConfig{LoadPercentage: 100},
	}
}

// LoadClient reads the client config from a YAML file on top of the
// defaults, then applies environment overrides. A missing file is not an
// error.
//
//	REPCLOCK_STORE_DRIVER, REPCLOCK_STORE_DIR, REPCLOCK_REDIS_ADDR,
//	REPCLOCK_PUSH_URL, REPCLOCK_PUSH_API_KEY, REPCLOCK_BODYWEIGHT_KG
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading client config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing client config file: %w", err)
			}
		}
	}

	applyClientEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("client config validation: %w", err)
	}
	return cfg, nil
}

func applyClientEnvOverrides(cfg *ClientConfig) {
	if v := os.Getenv("REPCLOCK_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("REPCLOCK_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("REPCLOCK_REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("REPCLOCK_PUSH_URL"); v != "" {
		cfg.Push.ServerURL = v
	}
	if v := os.Getenv("REPCLOCK_PUSH_API_KEY"); v != "" {
		cfg.Push.APIKey = v
	}
	if v := os.Getenv("REPCLOCK_BODYWEIGHT_KG"); v != "" {
		if bw, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.User.Bodyweight = bw
		}
	}
}

func (c *ClientConfig) validate() error {
	if c.Timer.Preparation < 0 || c.Timer.Workout < 0 || c.Timer.Rest < 0 {
		return fmt.Errorf("timer durations must not be negative")
	}
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the sqlite driver")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, redis, memory", c.Store.Driver)
	}
	if c.Push.ServerURL != "" && c.Push.APIKey == "" {
		return fmt.Errorf("push.api_key is required when push.server_url is set")
	}
	if c.User.Bodyweight < 0 || c.User.LoadPercentage < 0 {
		return fmt.Errorf("user bodyweight and load percentage must not be negative")
	}
	return nil
}
