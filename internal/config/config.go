package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// ClientConfig centraliza la configuracion del cliente de chat.
type ClientConfig struct {
	APIBaseURL     string        `env:"CHAT_API_URL" envDefault:"http://localhost:5000"`
	UserID         string        `env:"CHAT_USER_ID" envDefault:"cli-user"`
	RequestTimeout time.Duration `env:"CHAT_REQUEST_TIMEOUT" envDefault:"0s"`
	RenderMarkdown bool          `env:"CHAT_RENDER_MARKDOWN" envDefault:"true"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// ServerConfig centraliza la configuracion del backend de desarrollo.
type ServerConfig struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"5000"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ConversationTTL time.Duration `env:"CONVERSATION_TTL" envDefault:"24h"`
	StreamDelay     time.Duration `env:"STREAM_DELAY" envDefault:"40ms"`
	TurnsPerWindow  int           `env:"TURN_RATE_LIMIT" envDefault:"30"`
	TurnWindow      time.Duration `env:"TURN_RATE_WINDOW" envDefault:"1m"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadClientConfig carga la configuracion del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("CHAT_API_URL cannot be empty")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("CHAT_USER_ID cannot be empty")
	}
	if c.RequestTimeout < 0 {
		return errors.New("CHAT_REQUEST_TIMEOUT cannot be negative")
	}
	return nil
}

// LoadServerConfig carga la configuracion del backend desde variables de entorno.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServerConfig) Validate() error {
	if strings.TrimSpace(c.HTTPPort) == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.TurnsPerWindow < 0 {
		return errors.New("TURN_RATE_LIMIT cannot be negative")
	}
	if c.ConversationTTL < 0 || c.StreamDelay < 0 || c.TurnWindow < 0 {
		return errors.New("durations cannot be negative")
	}
	return nil
}
