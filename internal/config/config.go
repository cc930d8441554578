package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Network   string
	Relay     RelayConfig
	Signer    SignerConfig
	Collector CollectorConfig
	Redis     RedisConfig
	Server    ServerConfig
}

type RelayConfig struct {
	URL       string  `mapstructure:"url"`
	SaveURL   string  `mapstructure:"save_url"`
	TimeoutMs int64   `mapstructure:"timeout_ms"`
	MaxRPS    float64 `mapstructure:"max_rps"`
}

type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

type CollectorConfig struct {
	Name       string `mapstructure:"name"`
	IntervalMs int64  `mapstructure:"interval_ms"`
	Checkpoint string `mapstructure:"checkpoint"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Endpoints are the relay and save server base URLs of one network.
type Endpoints struct {
	Relay string
	Save  string
}

var networks = map[string]Endpoints{
	"mainnet":   {Relay: "https://relay.main.acccoin.io", Save: "https://save.main.acccoin.io"},
	"testnet":   {Relay: "https://relay.test.acccoin.io", Save: "https://save.test.acccoin.io"},
	"localhost": {Relay: "http://127.0.0.1:7070", Save: "http://127.0.0.1:3030"},
}

// NetworkEndpoints returns the default endpoints of a named network.
func NetworkEndpoints(network string) (Endpoints, bool) {
	e, ok := networks[strings.ToLower(network)]
	return e, ok
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("network", "testnet")
	v.SetDefault("relay.timeout_ms", 5000)
	v.SetDefault("relay.max_rps", 0)
	v.SetDefault("collector.name", "default")
	v.SetDefault("collector.interval_ms", 100)
	v.SetDefault("collector.checkpoint", "latest")
	v.SetDefault("server.port", 8080)

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
		"network":               "NETWORK",
		"relay.url":             "RELAY_URL",
		"relay.save_url":        "SAVE_URL",
		"relay.timeout_ms":      "RELAY_TIMEOUT_MS",
		"relay.max_rps":         "RELAY_MAX_RPS",
		"signer.private_key":    "PAYMENT_PRIVATE_KEY",
		"collector.name":        "COLLECTOR_NAME",
		"collector.interval_ms": "COLLECTOR_INTERVAL_MS",
		"collector.checkpoint":  "COLLECTOR_CHECKPOINT",
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASSWORD",
		"server.port":           "PORT",
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

	// Explicit URLs win over the network defaults.
	if e, ok := NetworkEndpoints(cfg.Network); ok {
		if cfg.Relay.URL == "" {
			cfg.Relay.URL = e.Relay
		}
		if cfg.Relay.SaveURL == "" {
			cfg.Relay.SaveURL = e.Save
		}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if _, ok := NetworkEndpoints(c.Network); !ok && (c.Relay.URL == "" || c.Relay.SaveURL == "") {
		return fmt.Errorf("unknown network %q: set RELAY_URL and SAVE_URL", c.Network)
	}
	switch strings.ToLower(c.Collector.Checkpoint) {
	case "latest":
	case "resume":
		if c.Redis.Addr == "" {
			return fmt.Errorf("required config missing: REDIS_ADDR (COLLECTOR_CHECKPOINT=resume)")
		}
	default:
		return fmt.Errorf("invalid COLLECTOR_CHECKPOINT %q", c.Collector.Checkpoint)
	}
	if c.Relay.TimeoutMs <= 0 {
		return fmt.Errorf("RELAY_TIMEOUT_MS must be positive")
	}
	if c.Relay.MaxRPS < 0 {
		return fmt.Errorf("RELAY_MAX_RPS must not be negative")
	}
	return nil
}

// RequireSigner fails when no signing key is configured.
func (c *Config) RequireSigner() error {
	if c.Signer.PrivateKey == "" {
		return fmt.Errorf("required config missing: PAYMENT_PRIVATE_KEY")
	}
	return nil
}
