package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ProdSchedule runs every three hours.
	ProdSchedule = "0 */3 * * *"
	// TestSchedule runs every minute.
	TestSchedule = "* * * * *"

	DefaultBlueskyService = "https://bsky.social"
	DefaultStabilityURL   = "https://api.stability.ai"
)

// Config represents the bot configuration, read from the environment.
type Config struct {
	Bluesky   BlueskyConfig
	Stability StabilityConfig
	Schedule  ScheduleConfig
	Log       LogConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig

	HTTPTimeout time.Duration
	DryRun      bool
}

type BlueskyConfig struct {
	Service  string
	Username string
	Password string
}

type StabilityConfig struct {
	BaseURL string
	APIKey  string
}

type ScheduleConfig struct {
	Expression string
	Mode       string // "prod" or "test"
	RunOnStart bool
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Addr string // empty disables the /metrics listener
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

// Load reads a dotenv file (".env" if present, or the given paths, which
// must exist) and then the process environment. Variables already set in the environment
// win over the file.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := Read(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Read is Load without validation, for tools that need only part of the
// configuration.
func Read(envFiles ...string) (*Config, error) {
	// The default .env is optional; a file named by the caller is not.
	if err := godotenv.Load(envFiles...); err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Bluesky: BlueskyConfig{
			Service:  strings.TrimRight(v.GetString("BLUESKY_SERVICE"), "/"),
			Username: v.GetString("BLUESKY_USERNAME"),
			Password: v.GetString("BLUESKY_PASSWORD"),
		},
		Stability: StabilityConfig{
			BaseURL: strings.TrimRight(v.GetString("STABILITY_BASE_URL"), "/"),
			APIKey:  v.GetString("STABILITY_API_KEY"),
		},
		Schedule: ScheduleConfig{
			Expression: v.GetString("SCHEDULE"),
			Mode:       strings.ToLower(v.GetString("SCHEDULE_MODE")),
			RunOnStart: v.GetBool("RUN_ON_START"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("METRICS_ADDR"),
		},
		Tracing: TracingConfig{
			Enabled:    v.GetBool("OTEL_ENABLED"),
			Endpoint:   v.GetString("OTEL_ENDPOINT"),
			SampleRate: v.GetFloat64("OTEL_SAMPLE_RATE"),
		},
		HTTPTimeout: v.GetDuration("HTTP_TIMEOUT"),
		DryRun:      v.GetBool("DRY_RUN"),
	}

	if cfg.Schedule.Expression == "" {
		cfg.Schedule.Expression = ScheduleFor(cfg.Schedule.Mode)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BLUESKY_SERVICE", DefaultBlueskyService)
	v.SetDefault("STABILITY_BASE_URL", DefaultStabilityURL)
	v.SetDefault("SCHEDULE_MODE", "prod")
	v.SetDefault("RUN_ON_START", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATE", 1.0)
	v.SetDefault("HTTP_TIMEOUT", 60*time.Second)
	v.SetDefault("DRY_RUN", false)
}

// ScheduleFor maps a schedule mode to its cron expression.
func ScheduleFor(mode string) string {
	if mode == "test" {
		return TestSchedule
	}
	return ProdSchedule
}

// Validate checks if required configuration fields are set. Secrets are
// only needed when the bot will actually talk to the network.
func (c *Config) Validate() error {
	if c.Schedule.Mode != "prod" && c.Schedule.Mode != "test" {
		return fmt.Errorf("SCHEDULE_MODE must be prod or test, got %q", c.Schedule.Mode)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1]")
	}
	if c.DryRun {
		return nil
	}
	for _, kv := range []struct{ key, val string }{
		{"BLUESKY_USERNAME", c.Bluesky.Username},
		{"BLUESKY_PASSWORD", c.Bluesky.Password},
		{"STABILITY_API_KEY", c.Stability.APIKey},
	} {
		if kv.val == "" {
			return fmt.Errorf("missing required env var: %s", kv.key)
		}
	}
	return nil
}
