package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	SettlementCurrency   string `env:"SETTLEMENT_CURRENCY" envDefault:"USDC"`
	DefaultWalletNetwork string `env:"DEFAULT_WALLET_NETWORK" envDefault:"ethereum"`
	BitcoinNet           string `env:"BITCOIN_NET" envDefault:"mainnet"`

	GatewayURL         string        `env:"GATEWAY_URL" envDefault:"http://mock-gateway:8081"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	GatewayMaxAttempts int           `env:"GATEWAY_MAX_ATTEMPTS" envDefault:"3"`
	GatewayRatePerSec  float64       `env:"GATEWAY_RATE_PER_SEC" envDefault:"20"`

	PayoutSweepInterval    time.Duration `env:"PAYOUT_SWEEP_INTERVAL" envDefault:"15m"`
	PayoutSweepConcurrency int           `env:"PAYOUT_SWEEP_CONCURRENCY" envDefault:"4"`
	PayoutPoliciesPath     string        `env:"PAYOUT_POLICIES_PATH"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.GatewayMaxAttempts < 1 {
		return fmt.Errorf("GATEWAY_MAX_ATTEMPTS must be at least 1")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if c.PayoutSweepConcurrency < 1 {
		return fmt.Errorf("PAYOUT_SWEEP_CONCURRENCY must be at least 1")
	}
	switch c.DefaultWalletNetwork {
	case "ethereum", "bitcoin":
	default:
		return fmt.Errorf("DEFAULT_WALLET_NETWORK %q is not supported", c.DefaultWalletNetwork)
	}
	return nil
}
