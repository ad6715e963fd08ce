package buywatch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const presaleDateLayout = "2006-01-02 15:04:05"

// Config carries every recognized option. File values are merged over the
// built-in defaults and environment variables override both, key by key.
type Config struct {
	TelegramBotToken string `json:"TELEGRAM_BOT_TOKEN" env:"TELEGRAM_BOT_TOKEN"`
	TelegramGroupID  string `json:"TELEGRAM_GROUP_ID" env:"TELEGRAM_GROUP_ID"`

	TokenMint   string `json:"TOKEN_MINT" env:"TOKEN_MINT"`
	TokenSymbol string `json:"TOKEN_SYMBOL" env:"TOKEN_SYMBOL"`
	RPCURL      string `json:"SOLANA_RPC" env:"SOLANA_RPC"`

	TokensPerSOL      float64 `json:"TOKENS_PER_SOL" env:"TOKENS_PER_SOL"`
	MinimumBuySOL     float64 `json:"MINIMUM_BUY_SOL" env:"MINIMUM_BUY_SOL"`
	DistributionRatio float64 `json:"DISTRIBUTION_RATIO" env:"DISTRIBUTION_RATIO"`
	MinDistribution   int64   `json:"MIN_DISTRIBUTION" env:"MIN_DISTRIBUTION"`
	MaxDistribution   int64   `json:"MAX_DISTRIBUTION" env:"MAX_DISTRIBUTION"`
	AirdropAmount     int64   `json:"AIRDROP_AMOUNT" env:"AIRDROP_AMOUNT"`
	OneAirdropPerUser bool    `json:"ALLOW_ONE_AIRDROP_PER_USER" env:"ALLOW_ONE_AIRDROP_PER_USER"`

	BuyButtonLink   string `json:"BUY_BUTTON_LINK" env:"BUY_BUTTON_LINK"`
	AlertImageURL   string `json:"ALERT_IMAGE_URL" env:"ALERT_IMAGE_URL"`
	PresaleEndDate  string `json:"PRESALE_END_DATE" env:"PRESALE_END_DATE"`
	PresaleTimezone string `json:"PRESALE_TIMEZONE" env:"PRESALE_TIMEZONE"`

	CheckIntervalSec        int `json:"CHECK_INTERVAL" env:"CHECK_INTERVAL"`
	MaxTransactionsPerCheck int `json:"MAX_TRANSACTIONS_PER_CHECK" env:"MAX_TRANSACTIONS_PER_CHECK"`
	RateLimitDelaySec       int `json:"RATE_LIMIT_DELAY" env:"RATE_LIMIT_DELAY"`

	Port        int    `json:"PORT" env:"PORT"`
	Environment string `json:"ENVIRONMENT" env:"ENVIRONMENT"`
}

func defaultConfig() *Config {
	return &Config{
		TokenSymbol:             "CR7",
		TokensPerSOL:            7000,
		MinimumBuySOL:           0.2,
		DistributionRatio:       1.0,
		MinDistribution:         1400,
		MaxDistribution:         1_000_000,
		AirdropAmount:           1000,
		OneAirdropPerUser:       true,
		BuyButtonLink:           "https://raydium.io/swap/",
		PresaleTimezone:         "UTC",
		CheckIntervalSec:        60,
		MaxTransactionsPerCheck: 20,
		RateLimitDelaySec:       2,
		Port:                    8000,
		Environment:             "production",
	}
}

// LoadConfig reads the configuration file (when present) and applies
// environment overrides. A missing file is not an error so that env-only
// deployments keep working.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path == "" {
		path = "config.json"
	}

	cfg := defaultConfig()
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read env config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the missing required fields. A validation failure is the
// only fatal error in the system and aborts startup.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.TelegramGroupID) == "" {
		missing = append(missing, "TELEGRAM_GROUP_ID")
	}
	if strings.TrimSpace(c.TokenMint) == "" {
		missing = append(missing, "TOKEN_MINT")
	}
	if strings.TrimSpace(c.RPCURL) == "" {
		missing = append(missing, "SOLANA_RPC")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required fields: %s", strings.Join(missing, ", "))
	}
	if c.MinDistribution > c.MaxDistribution {
		return fmt.Errorf("config MIN_DISTRIBUTION (%d) exceeds MAX_DISTRIBUTION (%d)", c.MinDistribution, c.MaxDistribution)
	}
	return nil
}

// CheckInterval returns the poll cadence as a duration.
func (c *Config) CheckInterval() time.Duration {
	if c.CheckIntervalSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.CheckIntervalSec) * time.Second
}

// RateLimitDelay returns the pause applied after a throttled chain query.
func (c *Config) RateLimitDelay() time.Duration {
	if c.RateLimitDelaySec <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.RateLimitDelaySec) * time.Second
}

// PresaleEnd parses the configured presale deadline in the configured
// timezone. A zero time and nil error mean no deadline is configured.
func (c *Config) PresaleEnd() (time.Time, error) {
	raw := strings.TrimSpace(c.PresaleEndDate)
	if raw == "" {
		return time.Time{}, nil
	}

	loc := time.UTC
	if tz := strings.TrimSpace(c.PresaleTimezone); tz != "" && tz != "UTC" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("load presale timezone %q: %w", tz, err)
		}
		loc = parsed
	}

	end, err := time.ParseInLocation(presaleDateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse presale end date %q: %w", raw, err)
	}
	return end, nil
}
