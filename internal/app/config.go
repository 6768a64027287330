package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"

	"github.com/klabast/wb-services/agenda/internal/calendar"
	"github.com/klabast/wb-services/agenda/internal/kv"
)

// Constants
const (
	ServiceName       = "agenda"
	DefaultConfigFile = "agenda.toml"
	DefaultListen     = ":8080"
	DefaultTimezone   = "Europe/Rome"
	DefaultScreenTTL  = 30 * time.Minute

	// Error messages
	ErrInternalServer      = "Internal server error"
	ErrStorageUnavailable  = "Storage unavailable"
	ErrInvalidRequestBody  = "Invalid request body"
	ErrInvalidFormat       = "Invalid format"
	ErrInvalidDate         = "Invalid date"
	ErrUnknownCollection   = "Unknown collection"
	ErrAppointmentNotFound = "Appointment not found"
	ErrWorkerNotFound      = "Worker not found"
	ErrScreenNotFound      = "Screen not found"
	ErrFailedToGenerateICS = "Failed to generate calendar"

	// ICS constants
	ICSProductID = "-//Agenda//Appuntamenti//IT"
	ICSFeedTTL   = "PT1H"
)

// Config is the service configuration. It is read from a TOML file and
// then overridden from the environment.
type Config struct {
	Listen    string          `toml:"listen"`
	Timezone  string          `toml:"timezone"`
	ScreenTTL duration        `toml:"screen_ttl"`
	Storage   kv.Config       `toml:"storage"`
	Calendar  CalendarConfig  `toml:"calendar"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// CalendarConfig shapes the worker calendars.
type CalendarConfig struct {
	DefaultView string `toml:"default_view"`
	FirstDay    string `toml:"first_day"`
	SlotMin     string `toml:"slot_min"`
	SlotMax     string `toml:"slot_max"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// duration decodes TOML strings such as "30m".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Listen:    DefaultListen,
		Timezone:  DefaultTimezone,
		ScreenTTL: duration{DefaultScreenTTL},
		Storage: kv.Config{
			Backend: kv.BackendFile,
			Path:    kv.DefaultFileName,
		},
		Calendar: CalendarConfig{
			DefaultView: string(calendar.ViewDay),
			FirstDay:    "monday",
			SlotMin:     "08:00",
			SlotMax:     "20:00",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// LoadConfig reads path over the defaults and applies environment
// overrides. A missing file is fine unless required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && !required:
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Listen = envString("AGENDA_LISTEN", c.Listen)
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("PORT must be a valid TCP port (got %q)", port)
		}
		c.Listen = ":" + port
	}
	c.Timezone = envString("AGENDA_TIMEZONE", c.Timezone)
	if v := os.Getenv("AGENDA_SCREEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AGENDA_SCREEN_TTL: %w", err)
		}
		c.ScreenTTL.Duration = d
	}

	c.Storage.Backend = envString("AGENDA_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Path = envString("AGENDA_STORAGE_PATH", c.Storage.Path)
	c.Storage.DSN = envString("DATABASE_URL", c.Storage.DSN)
	c.Storage.DSN = envString("AGENDA_STORAGE_DSN", c.Storage.DSN)
	c.Storage.RedisAddr = envString("AGENDA_REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = envString("AGENDA_REDIS_PASSWORD", c.Storage.RedisPassword)
	if v := os.Getenv("AGENDA_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AGENDA_REDIS_DB: %w", err)
		}
		c.Storage.RedisDB = n
	}

	c.Calendar.DefaultView = envString("AGENDA_DEFAULT_VIEW", c.Calendar.DefaultView)
	c.Log.Level = envString("AGENDA_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("AGENDA_LOG_FORMAT", c.Log.Format)

	if v := strings.TrimSpace(os.Getenv("OTEL_ENABLED")); v != "" {
		c.Telemetry.Enabled = v != "false" && v != "0"
	}
	c.Telemetry.OTLPEndpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	if v := os.Getenv("OTEL_SAMPLING_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1 (got %q)", v)
		}
		c.Telemetry.SampleRatio = f
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate checks every value that is parsed later.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.DefaultView(); err != nil {
		return err
	}
	if _, err := c.GridOptions(); err != nil {
		return err
	}
	if _, err := logLevel(c.Log.Level); err != nil {
		return err
	}
	if c.ScreenTTL.Duration < 0 {
		return fmt.Errorf("screen_ttl must not be negative")
	}
	return nil
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultView is the view new screens open in.
func (c Config) DefaultView() (calendar.View, error) {
	if c.Calendar.DefaultView == "" {
		return calendar.ViewDay, nil
	}
	return calendar.ParseView(c.Calendar.DefaultView)
}

// GridOptions converts the calendar section.
func (c Config) GridOptions() (calendar.GridOptions, error) {
	opts := calendar.DefaultGridOptions
	if c.Calendar.FirstDay != "" {
		day, err := parseWeekday(c.Calendar.FirstDay)
		if err != nil {
			return opts, err
		}
		opts.FirstDay = day
	}
	if c.Calendar.SlotMin != "" {
		d, err := parseClock(c.Calendar.SlotMin)
		if err != nil {
			return opts, fmt.Errorf("slot_min: %w", err)
		}
		opts.SlotMin = d
	}
	if c.Calendar.SlotMax != "" {
		d, err := parseClock(c.Calendar.SlotMax)
		if err != nil {
			return opts, fmt.Errorf("slot_max: %w", err)
		}
		opts.SlotMax = d
	}
	if opts.SlotMax <= opts.SlotMin {
		return opts, fmt.Errorf("slot_max %s must be after slot_min %s", c.Calendar.SlotMax, c.Calendar.SlotMin)
	}
	return opts, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown first_day %q", s)
}

// parseClock parses "HH:MM" (up to "24:00") as an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h*60+m > 24*60 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
