// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Database struct {
	Driver   string `yaml:"driver" env:"DATABASE_DRIVER"` // postgres | sqlite
	DSN      string `yaml:"dsn" env:"DATABASE_DSN"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type Logger struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Sink   string `yaml:"sink"`
	Format string `yaml:"format"` // console | json
}

type Telegram struct {
	Token      string `yaml:"token" env:"BOT_TOKEN"`
	Mode       string `yaml:"mode" env:"BOT_MODE"` // polling | webhook
	WebhookURL string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	BotName    string `yaml:"bot_name" env:"BOT_NAME"`
	Workers    int    `yaml:"workers"`
	Debug      bool   `yaml:"debug" env:"TELEGRAM_DEBUG"`
}

type Server struct {
	Port int `yaml:"port" env:"PORT"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GRPC struct {
	HealthAddr string `yaml:"health_addr" env:"GRPC_HEALTH_ADDR"`
}

type Work struct {
	Duration time.Duration `yaml:"duration"`
}

type Reminder struct {
	Interval time.Duration `yaml:"interval"`
	After    time.Duration `yaml:"after"`
}

// ClassifierRule maps a set of keywords to a category name.
type ClassifierRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Summary  string   `yaml:"summary"`
}

type Classifier struct {
	Rules []ClassifierRule `yaml:"rules"`
}

type AppConfig struct {
	Server     Server     `yaml:"server"`
	Logger     Logger     `yaml:"log"`
	Telegram   Telegram   `yaml:"telegram"`
	Database   Database   `yaml:"database"`
	Redis      Redis      `yaml:"redis"`
	GRPC       GRPC       `yaml:"grpc"`
	Work       Work       `yaml:"work"`
	Reminder   Reminder   `yaml:"reminder"`
	Classifier Classifier `yaml:"classifier"`
}

// NewConfig reads the YAML file at path, overlays environment variables
// (including a .env file when present) and fills defaults.
func NewConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a config from raw YAML plus the process environment.
func Parse(data []byte) (*AppConfig, error) {
	var appConfig AppConfig
	if err := yaml.Unmarshal(data, &appConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// .env is optional, variables may come from the environment directly
	_ = godotenv.Load()

	if err := env.Parse(&appConfig); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	appConfig.setDefaults()

	if err := appConfig.Validate(); err != nil {
		return nil, err
	}

	return &appConfig, nil
}

func (c *AppConfig) setDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Sink == "" {
		c.Logger.Sink = "stdout"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = "polling"
	}
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 4
	}
	if c.Server.Port == 0 {
		c.Server.Port = 10000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 7 * 24 * time.Hour
	}
	if c.Work.Duration == 0 {
		c.Work.Duration = 2 * time.Second
	}
	if c.Reminder.Interval == 0 {
		c.Reminder.Interval = 30 * time.Minute
	}
	if c.Reminder.After == 0 {
		c.Reminder.After = 24 * time.Hour
	}
}

// Validate reports missing or contradictory settings.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token (BOT_TOKEN) is required"))
	}
	switch c.Telegram.Mode {
	case "polling":
	case "webhook":
		if c.Telegram.WebhookURL == "" {
			errs = append(errs, errors.New("telegram.webhook_url (WEBHOOK_URL) is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telegram.mode %q", c.Telegram.Mode))
	}
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	for i, rule := range c.Classifier.Rules {
		if rule.Category == "" || len(rule.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("classifier.rules[%d] needs a category and keywords", i))
		}
	}
	return errors.Join(errs...)
}
