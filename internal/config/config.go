package config

import (
	"fmt"
	"mime"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds environment-driven configuration. It is read once at startup
// and not modified afterwards.
type Config struct {
	Backend Backend `yaml:"backend"`
	HTTP    HTTP    `yaml:"http"`
	Log     Log     `yaml:"log"`
}

// Backend locates the object store and the activity segment inside it.
type Backend struct {
	URL          string `yaml:"url" env:"BACKEND_URL" env-required:"true" env-description:"mysql://host:3306/db, sqlite:path.db or sqlite::memory:"`
	Username     string `yaml:"username" env:"BACKEND_USERNAME" env-description:"store user, also stamped into audit fields"`
	Password     string `yaml:"password" env:"BACKEND_PASSWORD"`
	ContentType  string `yaml:"content_type" env:"BACKEND_CONTENT_TYPE" env-default:"application/json"`
	ProviderName string `yaml:"provider_name" env:"BACKEND_PROVIDER_NAME" env-default:"CRX"`
	SegmentName  string `yaml:"segment_name" env:"BACKEND_SEGMENT_NAME" env-default:"Standard"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from path (YAML, optional) and the environment.
// Environment variables win over file values.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks values cleanenv cannot express in tags.
func (c Config) Validate() error {
	mt, _, err := mime.ParseMediaType(c.Backend.ContentType)
	if err != nil {
		return fmt.Errorf("BACKEND_CONTENT_TYPE: %w", err)
	}
	if mt != "application/json" {
		return fmt.Errorf("BACKEND_CONTENT_TYPE: unsupported media type %q", mt)
	}
	if c.Backend.ProviderName == "" || c.Backend.SegmentName == "" {
		return fmt.Errorf("BACKEND_PROVIDER_NAME and BACKEND_SEGMENT_NAME must not be empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Usage describes the supported environment variables.
func Usage() string {
	var cfg Config
	s, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return s
}
