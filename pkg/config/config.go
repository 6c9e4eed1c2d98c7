// Package config loads fintrack settings from defaults, a TOML file, .env
// files and FINTRACK_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Backends accepted by Config.Backend
const (
	BackendMemory   = "memory"
	BackendFirebase = "firebase"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "FINTRACK_"

// Config holds all fintrack settings
type Config struct {
	// Backend selects the identity and persistence collaborators
	Backend string `toml:"backend"`

	// InitialBalance is added to income minus expense
	InitialBalance float64 `toml:"initial_balance"`

	// Timezone is an IANA name deciding calendar months; empty means local time
	Timezone string `toml:"timezone,omitempty"`

	Firebase FirebaseConfig `toml:"firebase"`
	Cache    CacheConfig    `toml:"cache"`
	AMQP     AMQPConfig     `toml:"amqp"`
	Sheets   SheetsConfig   `toml:"sheets"`
	Log      LogConfig      `toml:"log"`
	Sentry   SentryConfig   `toml:"sentry"`
	Retry    RetryConfig    `toml:"retry"`
}

// FirebaseConfig holds the Firebase project settings
type FirebaseConfig struct {
	APIKey       string        `toml:"api_key,omitempty"`
	ProjectID    string        `toml:"project_id"`
	SessionFile  string        `toml:"session_file,omitempty"`
	PollInterval time.Duration `toml:"poll_interval"`

	// Endpoint overrides for the emulator suite
	IdentityURL  string `toml:"identity_url,omitempty"`
	TokenURL     string `toml:"token_url,omitempty"`
	FirestoreURL string `toml:"firestore_url,omitempty"`
}

// CacheConfig holds the local snapshot cache settings. An empty path keeps
// the cache in memory.
type CacheConfig struct {
	Path      string `toml:"path,omitempty"`
	Namespace string `toml:"namespace,omitempty"`
}

// AMQPConfig enables the event publisher when URL is set
type AMQPConfig struct {
	URL      string `toml:"url,omitempty"`
	Exchange string `toml:"exchange"`
}

// SheetsConfig enables report export when SpreadsheetID is set
type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id,omitempty"`
	SheetName       string `toml:"sheet_name"`
	CredentialsFile string `toml:"credentials_file,omitempty"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// SentryConfig enables error tracking when DSN is set
type SentryConfig struct {
	DSN         string `toml:"dsn,omitempty"`
	Environment string `toml:"environment,omitempty"`
}

// RetryConfig configures retries of the REST transport. Zero MaxRetries
// disables retries.
type RetryConfig struct {
	MaxRetries int           `toml:"max_retries"`
	Wait       time.Duration `toml:"wait"`
	MaxWait    time.Duration `toml:"max_wait"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Backend: BackendMemory,
		Firebase: FirebaseConfig{
			PollInterval: 5 * time.Second,
		},
		Cache: CacheConfig{
			Namespace: "transactions",
		},
		AMQP: AMQPConfig{
			Exchange: "fintrack.events",
		},
		Sheets: SheetsConfig{
			SheetName: "Report",
		},
		Log: LogConfig{
			Level: "info",
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			Wait:       time.Second,
			MaxWait:    30 * time.Second,
		},
	}
}

// Load builds the configuration. The TOML file at path is optional and a
// missing file is not an error. envFiles are loaded with godotenv and never
// override variables already present in the environment; with no envFiles a
// .env in the working directory is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load env file %s", f)
		}
	}
	return nil
}

// envReader collects malformed values instead of stopping at the first one
type envReader struct {
	problems []string
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s%s: %q is not a number", EnvPrefix, key, v))
		return
	}
	*dst = f
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s%s: %q is not an integer", EnvPrefix, key, v))
		return
	}
	*dst = i
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s%s: %q is not a boolean", EnvPrefix, key, v))
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s%s: %q is not a duration", EnvPrefix, key, v))
		return
	}
	*dst = d
}

func (c *Config) applyEnv() error {
	var r envReader

	r.str("BACKEND", &c.Backend)
	r.float("INITIAL_BALANCE", &c.InitialBalance)
	r.str("TIMEZONE", &c.Timezone)

	r.str("FIREBASE_API_KEY", &c.Firebase.APIKey)
	r.str("FIREBASE_PROJECT_ID", &c.Firebase.ProjectID)
	r.str("FIREBASE_IDENTITY_URL", &c.Firebase.IdentityURL)
	r.str("FIREBASE_TOKEN_URL", &c.Firebase.TokenURL)
	r.str("FIREBASE_FIRESTORE_URL", &c.Firebase.FirestoreURL)
	r.str("SESSION_FILE", &c.Firebase.SessionFile)
	r.duration("POLL_INTERVAL", &c.Firebase.PollInterval)

	r.str("CACHE_PATH", &c.Cache.Path)
	r.str("CACHE_NAMESPACE", &c.Cache.Namespace)

	r.str("AMQP_URL", &c.AMQP.URL)
	r.str("AMQP_EXCHANGE", &c.AMQP.Exchange)

	r.str("SHEETS_SPREADSHEET_ID", &c.Sheets.SpreadsheetID)
	r.str("SHEETS_SHEET_NAME", &c.Sheets.SheetName)
	r.str("SHEETS_CREDENTIALS_FILE", &c.Sheets.CredentialsFile)

	r.str("LOG_LEVEL", &c.Log.Level)
	r.boolean("LOG_PRETTY", &c.Log.Pretty)

	r.str("SENTRY_DSN", &c.Sentry.DSN)
	r.str("SENTRY_ENVIRONMENT", &c.Sentry.Environment)

	r.integer("RETRY_MAX", &c.Retry.MaxRetries)
	r.duration("RETRY_WAIT", &c.Retry.Wait)
	r.duration("RETRY_MAX_WAIT", &c.Retry.MaxWait)

	if len(r.problems) > 0 {
		return errors.Errorf("invalid environment:\n- %s", strings.Join(r.problems, "\n- "))
	}
	return nil
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var problems []string

	switch c.Backend {
	case BackendMemory:
	case BackendFirebase:
		if c.Firebase.APIKey == "" {
			problems = append(problems, "firebase api key is required when using the firebase backend")
		}
		if c.Firebase.ProjectID == "" {
			problems = append(problems, "firebase project id is required when using the firebase backend")
		}
		if c.Firebase.PollInterval < time.Second {
			problems = append(problems, fmt.Sprintf("invalid poll interval %v: must be at least 1 second", c.Firebase.PollInterval))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid backend '%s': must be one of %v",
			c.Backend, []string{BackendMemory, BackendFirebase}))
	}

	if math.IsNaN(c.InitialBalance) || math.IsInf(c.InitialBalance, 0) {
		problems = append(problems, "initial balance must be a finite number")
	}

	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQP.Exchange == "" {
			problems = append(problems, "AMQP exchange cannot be empty when an AMQP URL is set")
		}
	}

	if c.Sheets.SpreadsheetID != "" {
		if c.Sheets.SheetName == "" {
			problems = append(problems, "sheet name is required when a spreadsheet id is set")
		}
		if c.Sheets.CredentialsFile != "" {
			if _, err := os.Stat(c.Sheets.CredentialsFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("sheets credentials file does not exist: %s", c.Sheets.CredentialsFile))
			}
		}
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.Log.Level))
	}

	if c.Retry.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("invalid retry count %d: must not be negative", c.Retry.MaxRetries))
	}
	if c.Retry.MaxRetries > 0 && c.Retry.MaxWait < c.Retry.Wait {
		problems = append(problems, fmt.Sprintf("retry max wait %v is shorter than wait %v", c.Retry.MaxWait, c.Retry.Wait))
	}

	if len(problems) > 0 {
		return errors.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location resolves Timezone, defaulting to time.Local
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %s", c.Timezone)
	}
	return loc, nil
}
