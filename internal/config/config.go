package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is loaded from the environment. GatewayShopID, GatewaySecretKey,
// and AdminID are required; everything else has a default. An empty
// DatabaseDSN selects the in-memory record store.
type Config struct {
	ServiceName string
	Env         string
	ListenAddr  string

	AdminID int64

	GatewayShopID    string
	GatewaySecretKey string
	GatewayBaseURL   string
	GatewayReturnURL string
	GatewayTimeout   time.Duration

	DatabaseDSN string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:      getenvDefault("SERVICE_NAME", "vendbot"),
		Env:              getenvDefault("ENV", "dev"),
		ListenAddr:       getenvDefault("LISTEN_ADDR", ":8080"),
		GatewayShopID:    os.Getenv("GATEWAY_SHOP_ID"),
		GatewaySecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayBaseURL:   os.Getenv("GATEWAY_BASE_URL"),
		GatewayReturnURL: getenvDefault("GATEWAY_RETURN_URL", "https://t.me/your_bot"),
		GatewayTimeout:   15 * time.Second,
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
	}

	if cfg.GatewayShopID == "" {
		return nil, fmt.Errorf("config: GATEWAY_SHOP_ID is required")
	}
	if cfg.GatewaySecretKey == "" {
		return nil, fmt.Errorf("config: GATEWAY_SECRET_KEY is required")
	}

	adminRaw := os.Getenv("ADMIN_ID")
	if adminRaw == "" {
		return nil, fmt.Errorf("config: ADMIN_ID is required")
	}
	adminID, err := strconv.ParseInt(adminRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: ADMIN_ID must be an integer: %w", err)
	}
	cfg.AdminID = adminID

	if raw := os.Getenv("GATEWAY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: GATEWAY_TIMEOUT: %w", err)
		}
		cfg.GatewayTimeout = d
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
