package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// TokenEnv overrides feed.token when set.
const TokenEnv = "FINNHUB_API_KEY"

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
	} `toml:"app"`

	Pipeline struct {
		Exchange    string `toml:"exchange"`
		Base        string `toml:"base"`
		Quote       string `toml:"quote"`
		FreshnessMs int    `toml:"freshness_ms"`
		WindowMin   int    `toml:"window_min"`
	} `toml:"pipeline"`

	Feed struct {
		Provider         string   `toml:"provider"`
		WsURL            string   `toml:"ws_url"`
		RestURL          string   `toml:"rest_url"`
		Token            string   `toml:"token"`
		Symbols          []string `toml:"symbols"`
		ReconnectDelayMs int      `toml:"reconnect_delay_ms"`
	} `toml:"feed"`

	Server struct {
		Addr       string `toml:"addr"`
		Topic      string `toml:"topic"`
		SendBuffer int    `toml:"send_buffer"`
	} `toml:"server"`

	Console struct {
		Enabled bool `toml:"enabled"`
	} `toml:"console"`

	Broadcast struct {
		Redis struct {
			Enabled bool   `toml:"enabled"`
			Channel string `toml:"channel"`
		} `toml:"redis"`
	} `toml:"broadcast"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		Redis struct {
			Enabled    bool   `toml:"enabled"`
			Addr       string `toml:"addr"`
			Password   string `toml:"password"`
			DB         int    `toml:"db"`
			Prefix     string `toml:"prefix"`
			TTLSeconds int    `toml:"ttl_seconds"`
			Stream     string `toml:"stream"`
			StreamMax  int64  `toml:"stream_max"`
		} `toml:"redis"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

// Load reads the TOML file, then a .env file if present, then env overrides.
// A missing credential is not an error here; the feed refuses to start.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		cfg.Feed.Token = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Pipeline.Exchange == "" {
		cfg.Pipeline.Exchange = "BINANCE"
	}
	if cfg.Pipeline.Base == "" {
		cfg.Pipeline.Base = "ETH"
	}
	if cfg.Pipeline.Quote == "" {
		cfg.Pipeline.Quote = "USDT"
	}
	if cfg.Pipeline.FreshnessMs <= 0 {
		cfg.Pipeline.FreshnessMs = 1000
	}
	if cfg.Pipeline.WindowMin <= 0 {
		cfg.Pipeline.WindowMin = 60
	}

	if cfg.Feed.Provider == "" {
		cfg.Feed.Provider = "finnhub"
	}
	if len(cfg.Feed.Symbols) == 0 {
		cfg.Feed.Symbols = []string{"BINANCE:BTCUSDT", "BINANCE:ETHUSDT", "BINANCE:USDCUSDT"}
	}
	if cfg.Feed.ReconnectDelayMs <= 0 {
		cfg.Feed.ReconnectDelayMs = 3000
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Topic == "" {
		cfg.Server.Topic = "rates"
	}
	if cfg.Server.SendBuffer <= 0 {
		cfg.Server.SendBuffer = 64
	}

	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "ratecast"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/ratecast.db"
	}
}

func validate(cfg *Config) error {
	cfg.Pipeline.Exchange = strings.ToUpper(strings.TrimSpace(cfg.Pipeline.Exchange))
	cfg.Pipeline.Base = strings.ToUpper(strings.TrimSpace(cfg.Pipeline.Base))
	cfg.Pipeline.Quote = strings.ToUpper(strings.TrimSpace(cfg.Pipeline.Quote))

	cfg.Feed.Symbols = normalizeSymbols(cfg.Feed.Symbols)
	if len(cfg.Feed.Symbols) == 0 {
		return errors.New("feed.symbols is empty")
	}
	if strings.TrimSpace(cfg.Feed.Provider) == "" {
		return errors.New("feed.provider is empty")
	}

	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path empty but enabled")
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// NeedsRedis reports whether any component uses the redis client.
func (c *Config) NeedsRedis() bool {
	return c.Broadcast.Redis.Enabled || (c.Storage.Enabled && c.Storage.Redis.Enabled)
}

func (c *Config) Freshness() time.Duration {
	return time.Duration(c.Pipeline.FreshnessMs) * time.Millisecond
}

func (c *Config) AverageWindow() time.Duration {
	return time.Duration(c.Pipeline.WindowMin) * time.Minute
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feed.ReconnectDelayMs) * time.Millisecond
}

func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Storage.Redis.TTLSeconds) * time.Second
}
