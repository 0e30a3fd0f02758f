package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ProviderConfig carries endpoints and credentials for the external services
// the control plane talks to. Values load from a TOML file with environment
// variable fallbacks so local setups can run without one.
type ProviderConfig struct {
	Vapi   VapiConfig   `toml:"vapi"`
	Retell RetellConfig `toml:"retell"`
	Stripe StripeConfig `toml:"stripe"`
	Retry  RetryConfig  `toml:"retry"`
}

type VapiConfig struct {
	BaseURL       string `toml:"base_url"`
	APIKey        string `toml:"api_key"`
	WebhookSecret string `toml:"webhook_secret"`
}

type RetellConfig struct {
	BaseURL       string `toml:"base_url"`
	APIKey        string `toml:"api_key"`
	WebhookSecret string `toml:"webhook_secret"`
}

type StripeConfig struct {
	BaseURL       string `toml:"base_url"`
	SecretKey     string `toml:"secret_key"`
	WebhookSecret string `toml:"webhook_secret"`
	MinutesMeter  string `toml:"minutes_meter"`
}

type RetryConfig struct {
	MaxAttempts int           `toml:"max_attempts"`
	BaseDelay   time.Duration `toml:"base_delay"`
}

func defaults() *ProviderConfig {
	return &ProviderConfig{
		Vapi: VapiConfig{
			BaseURL:       "https://api.vapi.ai",
			APIKey:        os.Getenv("VAPI_API_KEY"),
			WebhookSecret: os.Getenv("VAPI_WEBHOOK_SECRET"),
		},
		Retell: RetellConfig{
			BaseURL:       "https://api.retellai.com",
			APIKey:        os.Getenv("RETELL_API_KEY"),
			WebhookSecret: os.Getenv("RETELL_WEBHOOK_SECRET"),
		},
		Stripe: StripeConfig{
			BaseURL:       "https://api.stripe.com/v1",
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			MinutesMeter:  "voice_minutes",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
		},
	}
}

// LoadProviders reads the TOML config at path. A missing path is not an
// error; the env-backed defaults apply.
func LoadProviders(path string) (*ProviderConfig, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse provider config %s: %w", path, err)
	}
	return cfg, nil
}
