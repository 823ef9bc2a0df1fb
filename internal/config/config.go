// Package config loads the service configuration from defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RedisConfig points at the Redis used for change notices and the route cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// Config represents the application configuration.
type Config struct {
	Env      string `yaml:"env" validate:"required"`
	HTTPAddr string `yaml:"httpAddr" validate:"required"`
	LogDir   string `yaml:"logDir"`

	DatabaseDriver string `yaml:"databaseDriver" validate:"oneof=postgres sqlite"`
	DatabaseDSN    string `yaml:"databaseDSN" validate:"required"`

	// Bus selects how change notices reach other processes.
	Bus     string      `yaml:"bus" validate:"oneof=local redis nats"`
	Redis   RedisConfig `yaml:"redis"`
	NATSURL string      `yaml:"natsURL" validate:"required_if=Bus nats"`

	JWTSecret string `yaml:"jwtSecret" validate:"required,min=16"`

	OSRMURL         string        `yaml:"osrmURL" validate:"required,url"`
	NominatimURL    string        `yaml:"nominatimURL" validate:"required,url"`
	OutboundTimeout time.Duration `yaml:"outboundTimeout" validate:"gt=0"`

	OpenAIKey     string `yaml:"openAIKey"`
	OpenAIBaseURL string `yaml:"openAIBaseURL" validate:"omitempty,url"`
	OpenAIModel   string `yaml:"openAIModel"`

	TelegramToken       string `yaml:"telegramToken"`
	TelegramAlertChatID int64  `yaml:"telegramAlertChatID"`

	MaxProofImages int `yaml:"maxProofImages" validate:"min=1,max=20"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:             "dev",
		HTTPAddr:        ":8080",
		DatabaseDriver:  "postgres",
		DatabaseDSN:     "host=localhost user=user password=password dbname=floodrescue port=5432 sslmode=disable",
		Bus:             "local",
		Redis:           RedisConfig{Addr: "localhost:6380"},
		OSRMURL:         "https://router.project-osrm.org",
		NominatimURL:    "https://nominatim.openstreetmap.org",
		OutboundTimeout: 10 * time.Second,
		OpenAIModel:     "gpt-4o-mini",
		MaxProofImages:  DefaultMaxProofImages,
	}
}

// Load builds the configuration. path may be empty or point at a missing file,
// in which case only defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration struct.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"APP_ENV":         &cfg.Env,
		"HTTP_ADDR":       &cfg.HTTPAddr,
		"LOG_DIR":         &cfg.LogDir,
		"DATABASE_DRIVER": &cfg.DatabaseDriver,
		"DATABASE_DSN":    &cfg.DatabaseDSN,
		"BUS":             &cfg.Bus,
		"REDIS_ADDR":      &cfg.Redis.Addr,
		"REDIS_PASSWORD":  &cfg.Redis.Password,
		"NATS_URL":        &cfg.NATSURL,
		"JWT_SECRET":      &cfg.JWTSecret,
		"OSRM_URL":        &cfg.OSRMURL,
		"NOMINATIM_URL":   &cfg.NominatimURL,
		"OPENAI_API_KEY":  &cfg.OpenAIKey,
		"OPENAI_BASE_URL": &cfg.OpenAIBaseURL,
		"OPENAI_MODEL":    &cfg.OpenAIModel,
		"TELEGRAM_TOKEN":  &cfg.TelegramToken,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.Redis.DB = n
	}
	if v, ok := os.LookupEnv("MAX_PROOF_IMAGES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_PROOF_IMAGES %q: %w", v, err)
		}
		cfg.MaxProofImages = n
	}
	if v, ok := os.LookupEnv("TELEGRAM_ALERT_CHAT_ID"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_ALERT_CHAT_ID %q: %w", v, err)
		}
		cfg.TelegramAlertChatID = n
	}
	if v, ok := os.LookupEnv("OUTBOUND_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OUTBOUND_TIMEOUT %q: %w", v, err)
		}
		cfg.OutboundTimeout = d
	}
	return nil
}
