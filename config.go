package signoff

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	"github.com/viant/signoff/service/escalation"
	"github.com/viant/signoff/service/messaging/memory"
)

// EnvPrefix prefixes environment overrides, e.g. SIGNOFF_HTTP_ADDR.
const EnvPrefix = "SIGNOFF"

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is a serialisable representation of the server configuration. It is
// populated from YAML and SIGNOFF_* environment variables by LoadConfig.
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
	Entities    EntitiesConfig    `mapstructure:"entities" yaml:"entities"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Definitions DefinitionsConfig `mapstructure:"definitions" yaml:"definitions"`
	Directory   DirectoryConfig   `mapstructure:"directory" yaml:"directory"`
	Notify      NotifyConfig      `mapstructure:"notify" yaml:"notify"`
	Escalation  EscalationConfig  `mapstructure:"escalation" yaml:"escalation"`
	Tracing     TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
	// AdminRole names the directory role allowed to cancel approvals; empty rejects every cancel request.
	AdminRole string `mapstructure:"adminRole" yaml:"adminRole"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig selects the approval store. With SecretURL set, the DSN user
// and password come from a scy basic credential.
type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	DSN       string `mapstructure:"dsn" yaml:"dsn"`
	SecretURL string `mapstructure:"secretURL" yaml:"secretURL"`
	SecretKey string `mapstructure:"secretKey" yaml:"secretKey"`
}

// EntitiesConfig keeps business records as JSON documents under URL; empty keeps them in memory.
type EntitiesConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// RedisConfig enables the redis notification sink and cache invalidator when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type DefinitionsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
	// Defaults maps a business type to the flow used when a submission names none.
	Defaults map[string]string `mapstructure:"defaults" yaml:"defaults"`
}

type DirectoryConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type NotifyConfig struct {
	Workers     int           `mapstructure:"workers" yaml:"workers"`
	MaxRetries  int           `mapstructure:"maxRetries" yaml:"maxRetries"`
	RetryDelay  time.Duration `mapstructure:"retryDelay" yaml:"retryDelay"`
	QueueBuffer int           `mapstructure:"queueBuffer" yaml:"queueBuffer"`
	// AuditURL persists delivered notifications under URL; empty keeps them in memory.
	AuditURL string `mapstructure:"auditURL" yaml:"auditURL"`
}

type EscalationConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	BatchSize   int           `mapstructure:"batchSize" yaml:"batchSize"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	// FailureBackoff keeps a task that failed to escalate out of sweeps for a while.
	FailureBackoff time.Duration `mapstructure:"failureBackoff" yaml:"failureBackoff"`
}

type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New.
func DefaultConfig() *Config {
	queue := memory.DefaultConfig()
	sweep := escalation.DefaultConfig()
	return &Config{
		HTTP:  HTTPConfig{Addr: ":8080", ShutdownTimeout: 15 * time.Second},
		Log:   LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{Driver: StoreMemory},
		Notify: NotifyConfig{
			Workers:     2,
			MaxRetries:  queue.MaxRetries,
			RetryDelay:  queue.RetryDelay,
			QueueBuffer: queue.QueueBuffer,
		},
		Escalation: EscalationConfig{
			Enabled:        true,
			Interval:       sweep.Interval,
			BatchSize:      sweep.BatchSize,
			Concurrency:    sweep.Concurrency,
			FailureBackoff: sweep.FailureBackoff,
		},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	switch strings.ToLower(c.Store.Driver) {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver %q", c.Store.Driver))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, errors.New("notify.workers must be > 0"))
	}
	if c.Notify.MaxRetries < 0 {
		errs = append(errs, errors.New("notify.maxRetries must be >= 0"))
	}
	if c.Escalation.Enabled {
		if c.Escalation.Interval <= 0 {
			errs = append(errs, errors.New("escalation.interval must be > 0"))
		}
		if c.Escalation.Concurrency <= 0 {
			errs = append(errs, errors.New("escalation.concurrency must be > 0"))
		}
	}
	return errors.Join(errs...)
}

// QueueConfig returns the notification queue settings.
func (c *Config) QueueConfig() memory.Config {
	ret := memory.DefaultConfig()
	ret.MaxRetries = c.Notify.MaxRetries
	if c.Notify.RetryDelay > 0 {
		ret.RetryDelay = c.Notify.RetryDelay
	}
	if c.Notify.QueueBuffer > 0 {
		ret.QueueBuffer = c.Notify.QueueBuffer
	}
	return ret
}

// SweepConfig returns the escalation scheduler settings.
func (c *Config) SweepConfig() escalation.Config {
	return escalation.Config{
		Interval:       c.Escalation.Interval,
		BatchSize:      c.Escalation.BatchSize,
		Concurrency:    c.Escalation.Concurrency,
		FailureBackoff: c.Escalation.FailureBackoff,
	}
}

// ResolveDSN returns the store DSN, with credentials from the configured secret when present.
func (c *StoreConfig) ResolveDSN(ctx context.Context) (string, error) {
	if c.SecretURL == "" {
		return c.DSN, nil
	}
	target, err := cred.TargetType("basic")
	if err != nil {
		return "", err
	}
	secret, err := scy.New().Load(ctx, scy.NewResource(target, c.SecretURL, c.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to load store secret from %s: %w", c.SecretURL, err)
	}
	basic, ok := secret.Target.(*cred.Basic)
	if !ok {
		return "", fmt.Errorf("store secret %s is not a basic credential", c.SecretURL)
	}
	return withCredentials(c.DSN, basic.Username, basic.Password)
}

func withCredentials(dsn, user, password string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store.dsn: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("store.dsn must be a URL when a secret is used")
	}
	parsed.User = url.UserPassword(user, password)
	return parsed.String(), nil
}

// LoadConfig reads the YAML file at path (optional) over DefaultConfig, then
// applies SIGNOFF_* environment overrides, e.g. SIGNOFF_STORE_DSN.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	ret := &Config{}
	if err := v.Unmarshal(ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// setDefaults registers every key so environment overrides apply on Unmarshal.
func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("http.addr", config.HTTP.Addr)
	v.SetDefault("http.shutdownTimeout", config.HTTP.ShutdownTimeout)
	v.SetDefault("http.adminRole", config.HTTP.AdminRole)
	v.SetDefault("log.level", config.Log.Level)
	v.SetDefault("log.format", config.Log.Format)
	v.SetDefault("store.driver", config.Store.Driver)
	v.SetDefault("store.dsn", config.Store.DSN)
	v.SetDefault("store.secretURL", config.Store.SecretURL)
	v.SetDefault("store.secretKey", config.Store.SecretKey)
	v.SetDefault("entities.url", config.Entities.URL)
	v.SetDefault("redis.addr", config.Redis.Addr)
	v.SetDefault("redis.password", config.Redis.Password)
	v.SetDefault("redis.db", config.Redis.DB)
	v.SetDefault("definitions.url", config.Definitions.URL)
	v.SetDefault("directory.url", config.Directory.URL)
	v.SetDefault("notify.workers", config.Notify.Workers)
	v.SetDefault("notify.maxRetries", config.Notify.MaxRetries)
	v.SetDefault("notify.retryDelay", config.Notify.RetryDelay)
	v.SetDefault("notify.queueBuffer", config.Notify.QueueBuffer)
	v.SetDefault("notify.auditURL", config.Notify.AuditURL)
	v.SetDefault("escalation.enabled", config.Escalation.Enabled)
	v.SetDefault("escalation.interval", config.Escalation.Interval)
	v.SetDefault("escalation.batchSize", config.Escalation.BatchSize)
	v.SetDefault("escalation.concurrency", config.Escalation.Concurrency)
	v.SetDefault("escalation.failureBackoff", config.Escalation.FailureBackoff)
	v.SetDefault("tracing.enabled", config.Tracing.Enabled)
	v.SetDefault("tracing.outputFile", config.Tracing.OutputFile)
}
