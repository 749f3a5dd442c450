package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "COLLAB"

type Config struct {
	Mode         string `mapstructure:"mode"`
	Port         int    `mapstructure:"port"`
	StaticPath   string `mapstructure:"static_path"`
	LogLevel     string `mapstructure:"log_level"`
	DatabasePath string `mapstructure:"database_path"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Events    EventsConfig    `mapstructure:"events"`
	Client    ClientConfig    `mapstructure:"client"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type IdentityConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SessionsConfig struct {
	MaxParticipants int `mapstructure:"max_participants"`
	RecentLimit     int `mapstructure:"recent_limit"`
}

type RateLimitConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type EventsConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// ClientConfig drives cmd/agent.
type ClientConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	AuthToken    string        `mapstructure:"auth_token"`
	PlatformURL  string        `mapstructure:"platform_url"`
	CallType     string        `mapstructure:"call_type"`
	ChannelKind  string        `mapstructure:"channel_kind"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ReportMode   string        `mapstructure:"report_mode"`
	SessionID    string        `mapstructure:"session_id"`
	Join         bool          `mapstructure:"join"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("database_path", "collab.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("identity.api_url", "https://api.clerk.com")
	v.SetDefault("identity.secret_key", "")
	v.SetDefault("identity.timeout", "5s")

	v.SetDefault("stream.api_key", "")
	v.SetDefault("stream.api_secret", "")
	v.SetDefault("stream.token_ttl", "1h")

	v.SetDefault("sessions.max_participants", 4)
	v.SetDefault("sessions.recent_limit", 20)

	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.interval", "1m")

	v.SetDefault("events.queue_size", 64)

	v.SetDefault("client.api_url", "http://localhost:8080")
	v.SetDefault("client.auth_token", "")
	v.SetDefault("client.platform_url", "ws://localhost:9090")
	v.SetDefault("client.call_type", "livestream")
	v.SetDefault("client.channel_kind", "messaging")
	v.SetDefault("client.poll_interval", "5s")
	v.SetDefault("client.report_mode", "log")
	v.SetDefault("client.session_id", "")
	v.SetDefault("client.join", false)
}

// Load reads config/config.<CONFIG_ENV>.yaml, then COLLAB_* environment
// variables, then the given flags (may be nil). Later sources win.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Msg("config ready")
	return &cfg, nil
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
