// Package app wires configuration, storage, API clients, and services into
// a single application container used by cmd/stockconnect-server.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gspavan07/stockconnect/internal/clients/kite"
	"github.com/gspavan07/stockconnect/internal/clients/mfapi"
	"github.com/gspavan07/stockconnect/internal/clients/safegold"
	"github.com/gspavan07/stockconnect/internal/clients/smartapi"
	"github.com/gspavan07/stockconnect/internal/clients/yahoo"
	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/services/analysis"
	"github.com/gspavan07/stockconnect/internal/services/ledger"
	"github.com/gspavan07/stockconnect/internal/services/portfolio"
	"github.com/gspavan07/stockconnect/internal/services/pricing"
	"github.com/gspavan07/stockconnect/internal/storage"
)

// App holds all initialized clients and services. It is the shared core
// behind the HTTP server.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	SmartAPIClient interfaces.SmartAPIClient
	YahooClient    interfaces.YahooClient
	MFAPIClient    interfaces.MFAPIClient
	SafeGoldClient interfaces.SafeGoldClient
	KiteClient     interfaces.KiteClient

	SymbolMapper     interfaces.SymbolMapper
	PriceResolver    interfaces.PriceResolver
	AnalysisService  interfaces.AnalysisService
	PortfolioService interfaces.PortfolioService
	LedgerService    interfaces.LedgerService

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients, and services.
// configPath may be empty, in which case STOCKCONNECT_CONFIG and the binary
// directory are checked before falling back to config/stockconnect.toml.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("STOCKCONNECT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "stockconnect.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockconnect.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if !filepath.IsAbs(config.Storage.Ledger.Path) {
		config.Storage.Ledger.Path = filepath.Join(binDir, config.Storage.Ledger.Path)
	}
	if !filepath.IsAbs(config.Storage.Prices.Path) {
		config.Storage.Prices.Path = filepath.Join(binDir, config.Storage.Prices.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		StartupTime: time.Now(),
	}

	a.initClients()
	a.initServices()

	logger.Info().
		Str("environment", config.Environment).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initClients() {
	config := a.Config

	smartapiCfg := config.Clients.SmartAPI
	if smartapiCfg.Configured() {
		a.SmartAPIClient = smartapi.NewClient(
			smartapi.Credentials{
				APIKey:     smartapiCfg.APIKey,
				ClientID:   smartapiCfg.ClientID,
				Password:   smartapiCfg.Password,
				TOTPSecret: smartapiCfg.TOTPSecret,
			},
			smartapi.WithBaseURL(smartapiCfg.BaseURL),
			smartapi.WithScripMasterURL(smartapiCfg.ScripMasterURL),
			smartapi.WithLogger(a.Logger),
			smartapi.WithRateLimit(smartapiCfg.RateLimit),
			smartapi.WithTimeout(smartapiCfg.GetTimeout()),
			smartapi.WithLoginCooldown(smartapiCfg.GetLoginCooldown()),
		)
	} else {
		a.Logger.Warn().Msg("SmartAPI credentials not configured - stock candles unavailable, Yahoo fallback only")
	}

	a.YahooClient = yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(a.Logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	a.MFAPIClient = mfapi.NewClient(
		mfapi.WithBaseURL(config.Clients.MFAPI.BaseURL),
		mfapi.WithAMFIURL(config.Clients.MFAPI.AMFIURL),
		mfapi.WithLogger(a.Logger),
		mfapi.WithRateLimit(config.Clients.MFAPI.RateLimit),
		mfapi.WithTimeout(config.Clients.MFAPI.GetTimeout()),
	)

	a.SafeGoldClient = safegold.NewClient(
		safegold.WithBaseURL(config.Clients.SafeGold.BaseURL),
		safegold.WithLogger(a.Logger),
		safegold.WithRateLimit(config.Clients.SafeGold.RateLimit),
		safegold.WithTimeout(config.Clients.SafeGold.GetTimeout()),
	)

	kiteCfg := config.Clients.Kite
	if kiteCfg.APIKey != "" && kiteCfg.APISecret != "" {
		a.KiteClient = kite.NewClient(
			kite.Credentials{APIKey: kiteCfg.APIKey, APISecret: kiteCfg.APISecret},
			kite.WithBaseURL(kiteCfg.BaseURL),
			kite.WithLoginURL(kiteCfg.LoginURL),
			kite.WithLogger(a.Logger),
			kite.WithTimeout(kiteCfg.GetTimeout()),
		)
	} else {
		a.Logger.Warn().Msg("Kite credentials not configured - broker import unavailable")
	}
}

func (a *App) initServices() {
	config := a.Config

	a.SymbolMapper = pricing.NewMapper(
		a.SmartAPIClient,
		a.MFAPIClient,
		config.Pricing.GetSymbolMasterRefresh(),
		a.Logger,
	)

	a.PriceResolver = pricing.NewResolver(
		a.SmartAPIClient,
		a.YahooClient,
		a.MFAPIClient,
		a.SafeGoldClient,
		a.SymbolMapper,
		a.Storage.PriceCache(),
		config.Pricing.GetCacheFreshness(),
		config.Clients.SafeGold.FloorRate,
		a.Logger,
	)

	a.AnalysisService = analysis.NewService(a.Storage, a.PriceResolver, a.Logger)
	a.PortfolioService = portfolio.NewService(a.Storage, a.PriceResolver, a.KiteClient, a.Logger)
	a.LedgerService = ledger.NewService(a.Storage, a.KiteClient, a.Logger)
}

// Close releases app resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Storage close failed")
		}
	}
}
