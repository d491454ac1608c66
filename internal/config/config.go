// Package config loads engine settings from TOML with environment overrides.
package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so TOML values like "12s" parse directly.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Config is the full engine configuration.
type Config struct {
	Mode     string `toml:"mode"`      // place | guard | archive
	LogLevel string `toml:"log_level"` // debug | info | warn | error

	Broker   Broker   `toml:"broker"`
	Signal   Signal   `toml:"signal"`
	Trade    Trade    `toml:"trade"`
	Ladder   Ladder   `toml:"ladder"`
	Lease    Lease    `toml:"lease"`
	Redis    Redis    `toml:"redis"`
	Postgres Postgres `toml:"postgres"`
	S3       S3       `toml:"s3"`
	Notify   Notify   `toml:"notify"`
}

// Broker configures the Schwab adapter.
type Broker struct {
	BaseURL       string `toml:"base_url"`
	MarketDataURL string `toml:"market_data_url"`
	AccessToken   string `toml:"access_token"`
	AccountHash   string `toml:"account_hash"`
	QuoteSymbol   string `toml:"quote_symbol"`

	// OrderWindow is the working-order query lookback. Zero keeps the
	// start-of-day Eastern default.
	OrderWindow Duration `toml:"order_window"`
}

// Signal configures the GammaWizard source.
type Signal struct {
	BaseURL    string `toml:"base_url"`
	Token      string `toml:"token"`
	Email      string `toml:"email"`
	Password   string `toml:"password"`
	OptionRoot string `toml:"option_root"`
	Width      int    `toml:"width"`
}

// Trade configures sizing and run gating.
type Trade struct {
	QtyTarget   int  `toml:"qty_target"`
	QtyOverride int  `toml:"qty_override"` // >0 replaces qty_target for this run
	DryRun      bool `toml:"dry_run"`
}

// Ladder configures rung pricing and pacing.
type Ladder struct {
	Tick         float64  `toml:"tick"`
	CreditStart  float64  `toml:"credit_start"`
	CreditFloor  float64  `toml:"credit_floor"`
	DebitStart   float64  `toml:"debit_start"`
	DebitCeiling float64  `toml:"debit_ceiling"`
	PollInterval Duration `toml:"poll_interval"`
	MaxSession   Duration `toml:"max_session"`
}

// Lease configures the single-flight backend.
type Lease struct {
	Backend string   `toml:"backend"` // memory | redis
	Key     string   `toml:"key"`
	TTL     Duration `toml:"ttl"`
}

// Redis configures the lease store when lease.backend is redis.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Postgres configures the audit store. Disabled when host is empty.
type Postgres struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
}

// S3 configures history archival. Disabled when bucket is empty.
type S3 struct {
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	Prefix          string   `toml:"prefix"`
	Endpoint        string   `toml:"endpoint"`
	AccessKeyID     string   `toml:"access_key_id"`
	SecretAccessKey string   `toml:"secret_access_key"`
	UsePathStyle    bool     `toml:"use_path_style"`
	RetainFor       Duration `toml:"retain_for"`
}

// Notify configures chat delivery. Senders with empty settings are skipped.
type Notify struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	DiscordWebhook string `toml:"discord_webhook"`
}

// Defaults returns the baseline configuration before file and env overlays.
func Defaults() Config {
	return Config{
		Mode:     "place",
		LogLevel: "info",
		Broker: Broker{
			QuoteSymbol: "$SPX",
		},
		Signal: Signal{
			OptionRoot: "SPXW",
			Width:      5,
		},
		Trade: Trade{
			QtyTarget: 4,
		},
		Ladder: Ladder{
			Tick:         0.05,
			CreditStart:  2.10,
			CreditFloor:  1.90,
			DebitStart:   1.90,
			DebitCeiling: 2.10,
			PollInterval: Duration{12 * time.Second},
			MaxSession:   Duration{240 * time.Second},
		},
		Lease: Lease{
			Backend: "memory",
			Key:     "condor-run",
			TTL:     Duration{5 * time.Minute},
		},
		Postgres: Postgres{
			Port:    5432,
			SSLMode: "disable",
		},
		S3: S3{
			Region:    "us-east-1",
			RetainFor: Duration{30 * 24 * time.Hour},
		},
	}
}

// QtyTarget returns the effective target, honoring the override.
func (t Trade) EffectiveTarget() int {
	if t.QtyOverride > 0 {
		return t.QtyOverride
	}
	return t.QtyTarget
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch c.Mode {
	case "place", "guard", "archive":
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}

	if c.Mode != "archive" {
		if c.Broker.AccessToken == "" {
			return fmt.Errorf("config: broker.access_token is required")
		}
		if c.Signal.Token == "" && (c.Signal.Email == "" || c.Signal.Password == "") {
			return fmt.Errorf("config: signal needs a token or email and password")
		}
		if c.Trade.EffectiveTarget() <= 0 {
			return fmt.Errorf("config: trade target must be positive")
		}
		if c.Broker.OrderWindow.Duration < 0 {
			return fmt.Errorf("config: broker.order_window must not be negative")
		}
		if c.Ladder.Tick <= 0 {
			return fmt.Errorf("config: ladder.tick must be positive")
		}
		if c.Ladder.PollInterval.Duration <= 0 {
			return fmt.Errorf("config: ladder.poll_interval must be positive")
		}
		if c.Lease.TTL.Duration <= 0 {
			return fmt.Errorf("config: lease.ttl must be positive")
		}
	}

	switch c.Lease.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: lease.backend is redis but redis.addr is empty")
		}
	default:
		return fmt.Errorf("config: unknown lease.backend %q", c.Lease.Backend)
	}

	if c.Mode == "archive" {
		if c.Postgres.Host == "" {
			return fmt.Errorf("config: archive mode requires postgres")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: archive mode requires s3.bucket")
		}
	}
	return nil
}
