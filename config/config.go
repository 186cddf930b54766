package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PRACTITRACK"

type Database struct {
	Driver         string
	DSN            string
	MaxConnections int
	LogLevel       string
	// SSMParameter names the parameter holding the per-environment database list.
	SSMParameter string
}

type Slack struct {
	Token          string
	InfoChannelID  string
	ErrorChannelID string
}

type Email struct {
	Sender     string
	Recipients []string
}

type Absence struct {
	Cron    string
	Workers int
}

type Config struct {
	Env            string
	Debug          bool
	HTTPAddress    string
	Timezone       string
	SigningSecret  []byte
	EarlyThreshold time.Duration
	PhotoBucket    string
	HolidayBucket  string

	Database Database
	Slack    Slack
	Email    Email
	Absence  Absence
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("debug", false)
	v.SetDefault("http_address", "0.0.0.0:8090")
	v.SetDefault("timezone", "Asia/Manila")
	v.SetDefault("early_threshold", "15m")
	v.SetDefault("photo_bucket", "practitrack-attendance-photos")
	v.SetDefault("holiday_bucket", "practitrack-calendar")
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("dsn", "root:development@tcp(localhost:3306)/practitrack?parseTime=true")
	v.SetDefault("db_max_connections", 10)
	v.SetDefault("db_log_level", "warn")
	v.SetDefault("ssm_parameter", "databases")
	v.SetDefault("absence_cron", "10 0 * * *")
	v.SetDefault("absence_workers", 4)
}

// Load reads configuration from the environment (prefixed PRACTITRACK_), after
// loading any .env files that exist.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// missing files are fine outside local development
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:            strings.ToLower(v.GetString("env")),
		Debug:          v.GetBool("debug"),
		HTTPAddress:    v.GetString("http_address"),
		Timezone:       v.GetString("timezone"),
		EarlyThreshold: v.GetDuration("early_threshold"),
		PhotoBucket:    v.GetString("photo_bucket"),
		HolidayBucket:  v.GetString("holiday_bucket"),
		Database: Database{
			Driver:         strings.ToLower(v.GetString("db_driver")),
			DSN:            v.GetString("dsn"),
			MaxConnections: v.GetInt("db_max_connections"),
			LogLevel:       v.GetString("db_log_level"),
			SSMParameter:   v.GetString("ssm_parameter"),
		},
		Slack: Slack{
			Token:          v.GetString("slack_bot_token"),
			InfoChannelID:  v.GetString("slack_info_channel"),
			ErrorChannelID: v.GetString("slack_error_channel"),
		},
		Email: Email{
			Sender:     v.GetString("email_sender"),
			Recipients: splitList(v.GetString("email_recipients")),
		},
		Absence: Absence{
			Cron:    v.GetString("absence_cron"),
			Workers: v.GetInt("absence_workers"),
		},
	}

	if secret := v.GetString("signing_secret"); secret != "" {
		b, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("signing secret is not valid base64: %w", err)
		}
		cfg.SigningSecret = b
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	var errs []error
	if c.Database.Driver != "mysql" && c.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("db_driver must be mysql or postgres, got %q", c.Database.Driver))
	}
	if c.EarlyThreshold < 0 {
		errs = append(errs, errors.New("early_threshold must not be negative"))
	}
	if c.Absence.Workers < 1 {
		errs = append(errs, errors.New("absence_workers must be at least 1"))
	}
	return errors.Join(errs...)
}

// SlackEnabled reports whether notifications can be posted.
func (c *Config) SlackEnabled() bool {
	return c.Slack.Token != "" && c.Slack.InfoChannelID != ""
}
