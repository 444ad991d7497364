package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Ticket TicketConfig
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	ActionPath string `mapstructure:"action_path"`
	// LegacyMethodError answers non-POST calls on the action path with
	// 200 "ERROR" instead of 405, for callers that depend on it.
	LegacyMethodError bool `mapstructure:"legacy_method_error"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type TicketConfig struct {
	Secret         string `mapstructure:"secret"`
	Issuer         string `mapstructure:"issuer"`
	BypassIssuer   string `mapstructure:"bypass_issuer"`
	KeyPrefix      string `mapstructure:"key_prefix"`
	StoreTimeoutMs int64  `mapstructure:"store_timeout_ms"`
}

// StoreTimeout bounds every ticket store round trip.
func (t TicketConfig) StoreTimeout() time.Duration {
	return time.Duration(t.StoreTimeoutMs) * time.Millisecond
}

// Load reads the service configuration and checks required values.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

// LoadUnvalidated reads the same sources as Load without requiring the
// service-only values. Operator tools take their defaults from it.
func LoadUnvalidated() (*Config, error) {
	return read()
}

func read() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.action_path", "/DevOps")
	v.SetDefault("server.legacy_method_error", true)
	v.SetDefault("ticket.issuer", ticket.DefaultIssuer)
	v.SetDefault("ticket.bypass_issuer", ticket.DefaultBypassIssuer)
	v.SetDefault("ticket.key_prefix", ticket.DefaultKeyPrefix)
	v.SetDefault("ticket.store_timeout_ms", 2000)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit env bindings
	bindings := map[string]string{
		"server.port":                "PORT",
		"server.action_path":         "ACTION_PATH",
		"server.legacy_method_error": "LEGACY_METHOD_ERROR",
		"redis.addr":                 "REDIS_ADDR",
		"redis.host":                 "REDIS_HOST",
		"redis.password":             "REDIS_PASSWORD",
		"auth.api_key":               "API_KEY",
		"ticket.secret":              "JWT_SECRET",
		"ticket.issuer":              "TICKET_ISSUER",
		"ticket.bypass_issuer":       "TICKET_BYPASS_ISSUER",
		"ticket.key_prefix":          "TICKET_KEY_PREFIX",
		"ticket.store_timeout_ms":    "TICKET_STORE_TIMEOUT_MS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Older deployments only set REDIS_HOST and relied on the default port.
	if cfg.Redis.Addr == "" {
		host := cfg.Redis.Host
		if host == "" {
			host = "redis"
		}
		cfg.Redis.Addr = net.JoinHostPort(host, "6379")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	type req struct {
		val  string
		name string
	}
	for _, r := range []req{
		{c.Auth.APIKey, "API_KEY"},
		{c.Ticket.Secret, "JWT_SECRET"},
		{c.Ticket.Issuer, "TICKET_ISSUER"},
		{c.Ticket.BypassIssuer, "TICKET_BYPASS_ISSUER"},
	} {
		if r.val == "" {
			return fmt.Errorf("required config missing: %s", r.name)
		}
	}
	if c.Ticket.Issuer == c.Ticket.BypassIssuer {
		return fmt.Errorf("TICKET_ISSUER and TICKET_BYPASS_ISSUER must differ")
	}
	if !strings.HasPrefix(c.Server.ActionPath, "/") {
		return fmt.Errorf("ACTION_PATH must start with /: %q", c.Server.ActionPath)
	}
	if c.Ticket.StoreTimeoutMs <= 0 {
		return fmt.Errorf("TICKET_STORE_TIMEOUT_MS must be positive")
	}
	return nil
}
