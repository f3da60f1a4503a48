package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHATSYNC"

var keys = []string{
	"base_url", "salon", "channel", "username", "session_cookie", "csrf_token",
	"poll_interval", "poll_jitter", "resync_delay", "request_timeout", "log_level", "metrics_addr",
}

type Config struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	Salon          string        `mapstructure:"salon" validate:"required,slug"`
	Channel        string        `mapstructure:"channel" validate:"omitempty,slug"`
	Username       string        `mapstructure:"username" validate:"required"`
	SessionCookie  string        `mapstructure:"session_cookie"`
	CSRFToken      string        `mapstructure:"csrf_token"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gte=100ms"`
	PollJitter     float64       `mapstructure:"poll_jitter" validate:"gte=0,lt=1"`
	ResyncDelay    time.Duration `mapstructure:"resync_delay" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	LogLevel       string        `mapstructure:"log_level"`
	MetricsAddr    string        `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

func (c *Config) Scope() models.Scope {
	return models.Scope{Salon: c.Salon, Channel: c.Channel}
}

// SetDefaults registers defaults on v. Poll cadence and resync delay follow the
// web client: one list fetch every 3s, one extra fetch 200ms after a send.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("poll_interval", 3*time.Second)
	v.SetDefault("poll_jitter", 0.0)
	v.SetDefault("resync_delay", 200*time.Millisecond)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("log_level", "info")
}

// New prepares a viper instance reading CHATSYNC_* variables and, if path is
// not empty, a config file.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// Unmarshal only sees keys viper already knows about.
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("can't read config file %s: %w", path, err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper, validate *validator.Validate) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("can't decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
