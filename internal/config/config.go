package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "MEET"

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
	Port     int    `mapstructure:"port"`
	Secret   string `mapstructure:"secret"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`

	MeetingTTL    time.Duration `mapstructure:"meeting_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	ChatMaxLen     int           `mapstructure:"chat_max_len"`
	NameMaxLen     int           `mapstructure:"name_max_len"`
	ChatRateLimit  int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow time.Duration `mapstructure:"chat_rate_window"`

	StunURLs []string `mapstructure:"stun_urls"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, defaulting CONFIG_ENV to dev.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an
// error; MEET_* environment variables override both.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Dur("meeting_ttl", cfg.MeetingTTL).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 3000)
	v.SetDefault("secret", "dev-secret-change-me")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("write_wait", "10s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("meeting_ttl", "1h")
	v.SetDefault("sweep_interval", "1h")
	v.SetDefault("chat_max_len", 500)
	v.SetDefault("name_max_len", 50)
	v.SetDefault("chat_rate_limit", 20)
	v.SetDefault("chat_rate_window", "10s")
	v.SetDefault("stun_urls", []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	})
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.ReadLimit <= 0:
		return errors.New("read_limit must be positive")
	case c.WriteWait <= 0:
		return errors.New("write_wait must be positive")
	case c.PongWait <= 0:
		return errors.New("pong_wait must be positive")
	case c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait:
		return fmt.Errorf("ping_period %s must be positive and below pong_wait %s", c.PingPeriod, c.PongWait)
	case c.SendBuffer <= 0:
		return errors.New("send_buffer must be positive")
	case c.MeetingTTL <= 0:
		return errors.New("meeting_ttl must be positive")
	case c.SweepInterval <= 0:
		return errors.New("sweep_interval must be positive")
	case c.ChatMaxLen <= 0:
		return errors.New("chat_max_len must be positive")
	case c.NameMaxLen <= 0:
		return errors.New("name_max_len must be positive")
	case c.ChatRateLimit < 0:
		return errors.New("chat_rate_limit must not be negative")
	case c.ChatRateLimit > 0 && c.ChatRateWindow <= 0:
		return errors.New("chat_rate_window must be positive when rate limiting is on")
	}
	if _, err := c.ICEServers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
