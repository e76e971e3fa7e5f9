package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/tailortalk/internal/availability"
	"github.com/teemow/tailortalk/internal/conversation"
	"github.com/teemow/tailortalk/internal/session"
)

// Calendar backends
const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Session stores
const (
	StoreMemory = "memory"
	StoreValkey = "valkey"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TAILORTALK"

// Config is the complete application configuration.
type Config struct {
	DefaultDuration      time.Duration `mapstructure:"default_duration"`
	Granularity          time.Duration `mapstructure:"granularity"`
	AmbiguityHorizonDays int           `mapstructure:"ambiguity_horizon_days"`
	MaxSlots             int           `mapstructure:"max_slots"`
	Timezone             string        `mapstructure:"timezone"`
	WorkdayStart         int           `mapstructure:"workday_start"`
	WorkdayEnd           int           `mapstructure:"workday_end"`
	EventSummary         string        `mapstructure:"event_summary"`

	CalendarBackend   string        `mapstructure:"calendar_backend"`
	CalendarID        string        `mapstructure:"calendar_id"`
	CalendarTimeout   time.Duration `mapstructure:"calendar_timeout"`
	CalendarRateLimit float64       `mapstructure:"calendar_rate_limit"`
	Account           string        `mapstructure:"account"`

	SessionStore string        `mapstructure:"session_store"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	Valkey       Valkey        `mapstructure:"valkey"`

	HTTPAddr       string  `mapstructure:"http_addr"`
	HTTPRateLimit  float64 `mapstructure:"http_rate_limit"`
	HTTPRateBurst  int     `mapstructure:"http_rate_burst"`
	MetricsAddr    string  `mapstructure:"metrics_addr"`
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Valkey configures the Valkey session store.
type Valkey struct {
	URL        string `mapstructure:"url"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	DB         int    `mapstructure:"db"`
	// LockTTL expires per-session turn locks held by crashed replicas
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_duration", time.Hour)
	v.SetDefault("granularity", 30*time.Minute)
	v.SetDefault("ambiguity_horizon_days", 14)
	v.SetDefault("max_slots", 5)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("workday_start", availability.DefaultWorkday.StartHour)
	v.SetDefault("workday_end", availability.DefaultWorkday.EndHour)
	v.SetDefault("event_summary", "Appointment")

	v.SetDefault("calendar_backend", BackendGoogle)
	v.SetDefault("calendar_id", "primary")
	v.SetDefault("calendar_timeout", 10*time.Second)
	v.SetDefault("calendar_rate_limit", 5.0)
	v.SetDefault("account", "default")

	v.SetDefault("session_store", StoreMemory)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("valkey.url", "")
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.tls", false)
	v.SetDefault("valkey.key_prefix", session.DefaultKeyPrefix)
	v.SetDefault("valkey.db", 0)
	v.SetDefault("valkey.lock_ttl", session.DefaultLockTTL)

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("http_rate_limit", 10.0)
	v.SetDefault("http_rate_burst", 20)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("metrics_enabled", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the configuration. configFile may be empty, in which case
// tailortalk.yaml is looked up in the working directory and in the user
// config directory. flags may be nil.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("tailortalk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "tailortalk"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Location resolves the configured IANA time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks every value the application depends on.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Conversation(); err != nil {
		errs = append(errs, err)
	}

	switch c.CalendarBackend {
	case BackendGoogle, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid calendar backend %q, must be one of: google, memory", c.CalendarBackend))
	}
	if c.CalendarRateLimit < 0 {
		errs = append(errs, fmt.Errorf("calendar rate limit must not be negative, got %g", c.CalendarRateLimit))
	}

	switch c.SessionStore {
	case StoreMemory:
	case StoreValkey:
		if c.Valkey.URL == "" {
			errs = append(errs, fmt.Errorf("valkey.url is required when session_store is valkey"))
		}
		if c.Valkey.LockTTL <= c.CalendarTimeout {
			errs = append(errs, fmt.Errorf("valkey.lock_ttl (%s) must be longer than calendar_timeout (%s)", c.Valkey.LockTTL, c.CalendarTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid session store %q, must be one of: memory, valkey", c.SessionStore))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("session TTL must not be negative, got %s", c.SessionTTL))
	}

	if c.HTTPRateLimit < 0 || c.HTTPRateBurst < 0 {
		errs = append(errs, fmt.Errorf("HTTP rate limit and burst must not be negative"))
	}

	return errors.Join(errs...)
}

// Conversation builds the conversation core configuration.
func (c *Config) Conversation() (conversation.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return conversation.Config{}, err
	}
	cc := conversation.Config{
		DefaultDuration: c.DefaultDuration,
		Granularity:     c.Granularity,
		HorizonDays:     c.AmbiguityHorizonDays,
		MaxSlots:        c.MaxSlots,
		Location:        loc,
		Workday:         availability.Workday{StartHour: c.WorkdayStart, EndHour: c.WorkdayEnd},
		CalendarTimeout: c.CalendarTimeout,
		EventSummary:    c.EventSummary,
	}
	if err := cc.Validate(); err != nil {
		return conversation.Config{}, err
	}
	return cc, nil
}

// ValkeyStore returns the session store settings for Valkey.
func (c *Config) ValkeyStore() session.ValkeyConfig {
	return session.ValkeyConfig{
		URL:        c.Valkey.URL,
		Password:   c.Valkey.Password,
		TLSEnabled: c.Valkey.TLSEnabled,
		KeyPrefix:  c.Valkey.KeyPrefix,
		DB:         c.Valkey.DB,
		TTL:        c.SessionTTL,
		LockTTL:    c.Valkey.LockTTL,
	}
}
