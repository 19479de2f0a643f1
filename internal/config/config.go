// Package config loads lyra-notify settings from defaults, a YAML file,
// LYRA_* environment variables (optionally from a .env file) and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreSQL       = "sql"

	SenderLog  = "log"
	SenderFCM  = "fcm"
	SenderHTTP = "http"
)

// Config is the full process configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Sender  SenderConfig  `mapstructure:"sender"`
	Trigger TriggerConfig `mapstructure:"trigger"`
	Payload PayloadConfig `mapstructure:"payload"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type HTTPConfig struct {
	Addr          string  `mapstructure:"addr"`
	AuthToken     string  `mapstructure:"auth_token"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
	TLSCertFile   string  `mapstructure:"tls_cert_file"`
	TLSKeyFile    string  `mapstructure:"tls_key_file"`
}

type StoreConfig struct {
	Backend   string          `mapstructure:"backend"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	SQL       SQLConfig       `mapstructure:"sql"`
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SenderConfig struct {
	Backend string         `mapstructure:"backend"`
	FCM     FCMConfig      `mapstructure:"fcm"`
	HTTP    HTTPPushConfig `mapstructure:"http"`
}

type FCMConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type HTTPPushConfig struct {
	URL        string        `mapstructure:"url"`
	AuthToken  string        `mapstructure:"auth_token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type TriggerConfig struct {
	FirestoreListener bool          `mapstructure:"firestore_listener"`
	SQLPollInterval   time.Duration `mapstructure:"sql_poll_interval"`
	TaskTimeout       time.Duration `mapstructure:"task_timeout"`
}

type PayloadConfig struct {
	TrackingLinkBase string `mapstructure:"tracking_link_base"`
}

// Defaults returns the default value of every key.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":       "info",
		"log.development": false,

		"http.addr":            ":8080",
		"http.auth_token":      "",
		"http.rate_per_second": 50.0,
		"http.burst":           100,
		"http.tls_cert_file":   "",
		"http.tls_key_file":    "",

		"store.backend":                    StoreMemory,
		"store.firestore.project_id":       "",
		"store.firestore.credentials_file": "",
		"store.sql.driver":                 "sqlite",
		"store.sql.dsn":                    "file:lyra.db?_pragma=busy_timeout(5000)",

		"sender.backend":              SenderLog,
		"sender.fcm.credentials_file": "",
		"sender.http.url":             "",
		"sender.http.auth_token":      "",
		"sender.http.timeout":         10 * time.Second,
		"sender.http.max_retries":     2,

		"trigger.firestore_listener": false,
		"trigger.sql_poll_interval":  time.Duration(0),
		"trigger.task_timeout":       60 * time.Second,

		"payload.tracking_link_base": "https://lyra-tracking.web.app/",
	}
}

// flagKeys maps command flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"addr":      "http.addr",
	"store":     "store.backend",
	"sender":    "sender.backend",
}

// Load reads the configuration. configFile, when set, must exist; otherwise
// lyra.yaml is looked up in the current directory, the user config directory
// and /etc/lyra, and is optional.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config

	if err := loadDotEnv(".env"); err != nil {
		return c, err
	}

	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("lyra")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "lyra"))
	}
	v.AddConfigPath("/etc/lyra")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("lyra")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// loadDotEnv exports the variables of path unless they are already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks the combination of settings.
func (c Config) Validate() error {
	var errs []error

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.HTTP.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("http.rate_per_second must not be negative"))
	}
	if (c.HTTP.TLSCertFile == "") != (c.HTTP.TLSKeyFile == "") {
		errs = append(errs, fmt.Errorf("http.tls_cert_file and http.tls_key_file must be set together"))
	}

	switch c.Store.Backend {
	case StoreMemory, StoreFirestore:
	case StoreSQL:
		switch c.Store.SQL.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Errorf("store.sql.driver %q is not one of sqlite, postgres, mysql", c.Store.SQL.Driver))
		}
		if c.Store.SQL.DSN == "" {
			errs = append(errs, fmt.Errorf("store.sql.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, firestore, sql", c.Store.Backend))
	}

	switch c.Sender.Backend {
	case SenderLog, SenderFCM:
	case SenderHTTP:
		if c.Sender.HTTP.URL == "" {
			errs = append(errs, fmt.Errorf("sender.http.url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("sender.backend %q is not one of log, fcm, http", c.Sender.Backend))
	}

	if c.Trigger.FirestoreListener && c.Store.Backend != StoreFirestore {
		errs = append(errs, fmt.Errorf("trigger.firestore_listener requires store.backend=firestore"))
	}
	if c.Trigger.SQLPollInterval < 0 {
		errs = append(errs, fmt.Errorf("trigger.sql_poll_interval must not be negative"))
	}
	if c.Trigger.SQLPollInterval > 0 && c.Store.Backend != StoreSQL {
		errs = append(errs, fmt.Errorf("trigger.sql_poll_interval requires store.backend=sql"))
	}

	if u, err := url.Parse(c.Payload.TrackingLinkBase); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("payload.tracking_link_base %q is not an absolute http(s) URL", c.Payload.TrackingLinkBase))
	}

	return errors.Join(errs...)
}
