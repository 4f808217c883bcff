// Package common provides shared utilities for StockConnect
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for StockConnect
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Pricing     PricingConfig `toml:"pricing"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	FrontendURL string `toml:"frontend_url"` // redirect target after broker login
}

// StorageConfig holds paths for the two storage areas.
type StorageConfig struct {
	Ledger AreaConfig `toml:"ledger"` // assets + transactions (BadgerHold)
	Prices AreaConfig `toml:"prices"` // price cache (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	SmartAPI SmartAPIConfig `toml:"smartapi"`
	Yahoo    YahooConfig    `toml:"yahoo"`
	MFAPI    MFAPIConfig    `toml:"mfapi"`
	SafeGold SafeGoldConfig `toml:"safegold"`
	Kite     KiteConfig     `toml:"kite"`
}

// SmartAPIConfig holds Angel One SmartAPI configuration
type SmartAPIConfig struct {
	BaseURL        string `toml:"base_url"`
	ScripMasterURL string `toml:"scrip_master_url"`
	APIKey         string `toml:"api_key"`
	ClientID       string `toml:"client_id"`
	Password       string `toml:"password"`
	TOTPSecret     string `toml:"totp_secret"`
	RateLimit      int    `toml:"rate_limit"`
	Timeout        string `toml:"timeout"`
	LoginCooldown  string `toml:"login_cooldown"` // wait after a failed login before retrying
}

// GetTimeout parses and returns the timeout duration
func (c *SmartAPIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetLoginCooldown parses and returns the login cooldown duration
func (c *SmartAPIConfig) GetLoginCooldown() time.Duration {
	return parseDuration(c.LoginCooldown, 5*time.Minute)
}

// Configured reports whether all SmartAPI credentials are present.
func (c *SmartAPIConfig) Configured() bool {
	return c.APIKey != "" && c.ClientID != "" && c.Password != "" && c.TOTPSecret != ""
}

// YahooConfig holds Yahoo Finance chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// MFAPIConfig holds mfapi.in NAV API and AMFI master configuration
type MFAPIConfig struct {
	BaseURL   string `toml:"base_url"`
	AMFIURL   string `toml:"amfi_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *MFAPIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// SafeGoldConfig holds SafeGold rate API configuration
type SafeGoldConfig struct {
	BaseURL   string  `toml:"base_url"`
	RateLimit int     `toml:"rate_limit"`
	Timeout   string  `toml:"timeout"`
	FloorRate float64 `toml:"floor_rate"` // terminal INR/gram fallback
}

// GetTimeout parses and returns the timeout duration
func (c *SafeGoldConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// KiteConfig holds Zerodha Kite Connect configuration
type KiteConfig struct {
	BaseURL   string `toml:"base_url"`
	LoginURL  string `toml:"login_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *KiteConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// PricingConfig holds resolver and cache tuning.
type PricingConfig struct {
	CacheFreshness      string `toml:"cache_freshness"`       // live price cache window; "0s" disables caching
	SymbolMasterRefresh string `toml:"symbol_master_refresh"` // scrip/AMFI master reload interval
}

// GetCacheFreshness parses and returns the live-price cache freshness window.
// Zero disables caching (every snapshot request re-fetches).
func (c *PricingConfig) GetCacheFreshness() time.Duration {
	return parseDuration(c.CacheFreshness, 15*time.Minute)
}

// GetSymbolMasterRefresh parses and returns the symbol master reload interval.
func (c *PricingConfig) GetSymbolMasterRefresh() time.Duration {
	return parseDuration(c.SymbolMasterRefresh, 24*time.Hour)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			FrontendURL: "http://localhost:5173",
		},
		Storage: StorageConfig{
			Ledger: AreaConfig{Path: "data/ledger"},
			Prices: AreaConfig{Path: "data/prices"},
		},
		Clients: ClientsConfig{
			SmartAPI: SmartAPIConfig{
				BaseURL:        "https://apiconnect.angelbroking.com",
				ScripMasterURL: "https://margincalculator.angelbroking.com/OpenAPI_File/files/OpenAPIScripMaster.json",
				RateLimit:      3,
				Timeout:        "30s",
				LoginCooldown:  "5m",
			},
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
			MFAPI: MFAPIConfig{
				BaseURL:   "https://api.mfapi.in",
				AMFIURL:   "https://www.amfiindia.com/spages/NAVAll.txt",
				RateLimit: 5,
				Timeout:   "30s",
			},
			SafeGold: SafeGoldConfig{
				BaseURL:   "https://www.safegold.com",
				RateLimit: 2,
				Timeout:   "30s",
				FloorRate: 7200,
			},
			Kite: KiteConfig{
				BaseURL:  "https://api.kite.trade",
				LoginURL: "https://kite.zerodha.com/connect/login",
				Timeout:  "30s",
			},
		},
		Pricing: PricingConfig{
			CacheFreshness:      "15m",
			SymbolMasterRefresh: "24h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Missing files are skipped; later files override earlier ones.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKCONNECT_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKCONNECT_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKCONNECT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("SMARTAPI_API_KEY"); v != "" {
		config.Clients.SmartAPI.APIKey = v
	}
	if v := os.Getenv("SMARTAPI_CLIENT_ID"); v != "" {
		config.Clients.SmartAPI.ClientID = v
	}
	if v := os.Getenv("SMARTAPI_PASSWORD"); v != "" {
		config.Clients.SmartAPI.Password = v
	}
	if v := os.Getenv("SMARTAPI_TOTP_SECRET"); v != "" {
		config.Clients.SmartAPI.TOTPSecret = v
	}
	if v := os.Getenv("ZERODHA_API_KEY"); v != "" {
		config.Clients.Kite.APIKey = v
	}
	if v := os.Getenv("ZERODHA_API_SECRET"); v != "" {
		config.Clients.Kite.APISecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
