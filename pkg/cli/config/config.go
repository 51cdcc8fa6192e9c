package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/feedbackloop/actionflow/pkg/service/worker"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the TOML application configuration
type AppConfig struct {
	Escalation   EscalationSection   `toml:"escalation"`
	Trend        TrendSection        `toml:"trend"`
	Notification NotificationSection `toml:"notification"`
	Overdue      OverdueSection      `toml:"overdue"`
}

type EscalationSection struct {
	TickIntervalMinutes int `toml:"tick_interval_minutes"`
	BatchSizePerRule    int `toml:"batch_size_per_rule"`
	BatchTimeoutSeconds int `toml:"batch_timeout_seconds"`
}

type TrendSection struct {
	BatchSize           int `toml:"batch_size"`
	IntervalHours       int `toml:"interval_hours"`
	BatchTimeoutSeconds int `toml:"batch_timeout_seconds"`
}

type NotificationSection struct {
	RetentionDays        int    `toml:"retention_days"`
	CleanupIntervalHours int    `toml:"cleanup_interval_hours"`
	BaseURL              string `toml:"base_url"`
}

type OverdueSection struct {
	IntervalMinutes int `toml:"interval_minutes"`
	BatchSize       int `toml:"batch_size"`
}

// DefaultAppConfig returns the configuration used for keys the file leaves out
func DefaultAppConfig() *AppConfig {
	esc := usecase.DefaultEscalationConfig()
	trend := usecase.DefaultTrendConfig()
	notif := usecase.DefaultNotificationConfig()
	overdue := usecase.DefaultOverdueConfig()

	return &AppConfig{
		Escalation: EscalationSection{
			TickIntervalMinutes: int(esc.TickInterval / time.Minute),
			BatchSizePerRule:    esc.BatchSizePerRule,
			BatchTimeoutSeconds: int(esc.BatchTimeout / time.Second),
		},
		Trend: TrendSection{
			BatchSize:           trend.BatchSize,
			IntervalHours:       int(trend.Interval / time.Hour),
			BatchTimeoutSeconds: int(trend.BatchTimeout / time.Second),
		},
		Notification: NotificationSection{
			RetentionDays:        notif.RetentionDays,
			CleanupIntervalHours: int(worker.DefaultIntervals().Cleanup / time.Hour),
		},
		Overdue: OverdueSection{
			IntervalMinutes: int(overdue.Interval / time.Minute),
			BatchSize:       overdue.BatchSize,
		},
	}
}

func positive(field string, v int) error {
	if v <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "value must be positive",
			goerr.V(FieldKey, field), goerr.V(ValueKey, v))
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	checks := []struct {
		field string
		value int
	}{
		{"escalation.tick_interval_minutes", a.Escalation.TickIntervalMinutes},
		{"escalation.batch_size_per_rule", a.Escalation.BatchSizePerRule},
		{"escalation.batch_timeout_seconds", a.Escalation.BatchTimeoutSeconds},
		{"trend.batch_size", a.Trend.BatchSize},
		{"trend.interval_hours", a.Trend.IntervalHours},
		{"trend.batch_timeout_seconds", a.Trend.BatchTimeoutSeconds},
		{"notification.retention_days", a.Notification.RetentionDays},
		{"notification.cleanup_interval_hours", a.Notification.CleanupIntervalHours},
		{"overdue.interval_minutes", a.Overdue.IntervalMinutes},
		{"overdue.batch_size", a.Overdue.BatchSize},
	}
	for _, c := range checks {
		if err := positive(c.field, c.value); err != nil {
			return err
		}
	}

	// A batch must finish before the next tick starts
	if time.Duration(a.Escalation.BatchTimeoutSeconds)*time.Second >
		time.Duration(a.Escalation.TickIntervalMinutes)*time.Minute {
		return goerr.Wrap(ErrInvalidConfig, "escalation batch timeout exceeds tick interval",
			goerr.V(FieldKey, "escalation.batch_timeout_seconds"),
			goerr.V(ValueKey, a.Escalation.BatchTimeoutSeconds))
	}

	return nil
}

func (a *AppConfig) EscalationConfig() usecase.EscalationConfig {
	return usecase.EscalationConfig{
		TickInterval:     time.Duration(a.Escalation.TickIntervalMinutes) * time.Minute,
		BatchSizePerRule: a.Escalation.BatchSizePerRule,
		BatchTimeout:     time.Duration(a.Escalation.BatchTimeoutSeconds) * time.Second,
	}
}

func (a *AppConfig) TrendConfig() usecase.TrendConfig {
	return usecase.TrendConfig{
		Interval:     time.Duration(a.Trend.IntervalHours) * time.Hour,
		BatchSize:    a.Trend.BatchSize,
		BatchTimeout: time.Duration(a.Trend.BatchTimeoutSeconds) * time.Second,
	}
}

func (a *AppConfig) NotificationConfig() usecase.NotificationConfig {
	return usecase.NotificationConfig{
		RetentionDays: a.Notification.RetentionDays,
		BaseURL:       a.Notification.BaseURL,
	}
}

func (a *AppConfig) OverdueConfig() usecase.OverdueConfig {
	return usecase.OverdueConfig{
		Interval:  time.Duration(a.Overdue.IntervalMinutes) * time.Minute,
		BatchSize: a.Overdue.BatchSize,
	}
}

// Intervals returns the schedule of the lifecycle jobs
func (a *AppConfig) Intervals() worker.Intervals {
	return worker.Intervals{
		Escalation: time.Duration(a.Escalation.TickIntervalMinutes) * time.Minute,
		Trend:      time.Duration(a.Trend.IntervalHours) * time.Hour,
		Overdue:    time.Duration(a.Overdue.IntervalMinutes) * time.Minute,
		Cleanup:    time.Duration(a.Notification.CleanupIntervalHours) * time.Hour,
	}
}

// UseCaseOptions returns the usecase options carrying this configuration
func (a *AppConfig) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithEscalationConfig(a.EscalationConfig()),
		usecase.WithTrendConfig(a.TrendConfig()),
		usecase.WithNotificationConfig(a.NotificationConfig()),
		usecase.WithOverdueConfig(a.OverdueConfig()),
	}
}

// LoadAppConfiguration loads the application configuration from a TOML file.
// Keys missing from the file keep their defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "failed to read config file", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	config := DefaultAppConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("error", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Sources:     cli.EnvVars("ACTIONFLOW_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured file path
func (x *App) Path() string {
	return x.path
}

// Configure loads the configuration file, or the defaults when no path is set
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return DefaultAppConfig(), nil
	}
	return LoadAppConfiguration(x.path)
}
