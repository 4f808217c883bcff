package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gspavan07/stockconnect/internal/app"
	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

type stubLedgerService struct {
	assets      []*models.Asset
	gold        []*models.Asset
	txs         []*models.Transaction
	importCount int
	importErr   error
	lastAdd     *interfaces.AddAssetRequest
}

func (s *stubLedgerService) ListAssets(context.Context) ([]*models.Asset, error) {
	return s.assets, nil
}

func (s *stubLedgerService) AddAsset(_ context.Context, req interfaces.AddAssetRequest) (*models.Asset, error) {
	if req.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	s.lastAdd = &req
	return &models.Asset{ID: "new", Symbol: strings.ToUpper(req.Symbol), Class: req.Class}, nil
}

func (s *stubLedgerService) ListTransactions(context.Context) ([]*models.Transaction, error) {
	return s.txs, nil
}

func (s *stubLedgerService) AddTransaction(_ context.Context, req interfaces.AddTransactionRequest) (*models.Transaction, error) {
	if req.AssetID == "" {
		return nil, errors.New("asset ID is required")
	}
	return &models.Transaction{ID: "t1", AssetID: req.AssetID, Type: req.Type}, nil
}

func (s *stubLedgerService) ListGold(context.Context) ([]*models.Asset, error) {
	return s.gold, nil
}

func (s *stubLedgerService) AddGold(_ context.Context, req interfaces.GoldRequest) (*models.Asset, error) {
	if req.TotalGrams <= 0 {
		return nil, errors.New("total grams must be positive")
	}
	return &models.Asset{ID: "g1", Symbol: "GOLD", Class: models.ClassGold, Quantity: req.TotalGrams}, nil
}

func (s *stubLedgerService) UpdateGold(_ context.Context, id string, _ interfaces.GoldRequest) (*models.Asset, error) {
	return &models.Asset{ID: id, Symbol: "GOLD", Class: models.ClassGold}, nil
}

func (s *stubLedgerService) DeleteGold(_ context.Context, id string) (*models.Asset, error) {
	if id != "g1" {
		return nil, fmt.Errorf("gold holding '%s' not found", id)
	}
	return &models.Asset{ID: id, Symbol: "GOLD", Class: models.ClassGold}, nil
}

func (s *stubLedgerService) ImportBrokerHoldings(context.Context) (int, error) {
	return s.importCount, s.importErr
}

type stubPortfolioService struct {
	snapshot *models.PortfolioSnapshot
	err      error
}

func (s *stubPortfolioService) GetSnapshot(context.Context) (*models.PortfolioSnapshot, error) {
	return s.snapshot, s.err
}

type stubAnalysisService struct {
	series []models.DailyPortfolioPoint
	err    error
}

func (s *stubAnalysisService) GetGrowthSeries(context.Context) ([]models.DailyPortfolioPoint, error) {
	return s.series, s.err
}

type stubKite struct {
	loginURL   string
	sessionErr error
	tokens     []string
}

func (s *stubKite) LoginURL() (string, error) { return s.loginURL, nil }

func (s *stubKite) GenerateSession(_ context.Context, token string) error {
	s.tokens = append(s.tokens, token)
	return s.sessionErr
}

func (s *stubKite) Connected() bool { return len(s.tokens) > 0 }

func (s *stubKite) GetHoldings(context.Context) ([]models.BrokerHolding, error) { return nil, nil }

func (s *stubKite) GetMFHoldings(context.Context) ([]models.BrokerHolding, error) { return nil, nil }

type testApp struct {
	app       *app.App
	ledger    *stubLedgerService
	portfolio *stubPortfolioService
	analysis  *stubAnalysisService
	kite      *stubKite
}

func newTestServer(t *testing.T) (*Server, *testApp) {
	t.Helper()

	ta := &testApp{
		ledger:    &stubLedgerService{},
		portfolio: &stubPortfolioService{snapshot: &models.PortfolioSnapshot{Assets: []models.PortfolioAsset{}}},
		analysis:  &stubAnalysisService{series: []models.DailyPortfolioPoint{}},
		kite:      &stubKite{loginURL: "https://kite.zerodha.com/connect/login?v=3&api_key=testkey"},
	}
	ta.app = &app.App{
		Config:           common.NewDefaultConfig(),
		Logger:           common.NewSilentLogger(),
		LedgerService:    ta.ledger,
		PortfolioService: ta.portfolio,
		AnalysisService:  ta.analysis,
		KiteClient:       ta.kite,
		StartupTime:      time.Now(),
	}

	return NewServer(ta.app), ta
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

func TestAssets_List(t *testing.T) {
	server, ta := newTestServer(t)
	ta.ledger.assets = []*models.Asset{
		{ID: "a1", Symbol: "RELIANCE", Class: models.ClassStock},
	}

	rec := doRequest(t, server, http.MethodGet, "/api/assets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []models.Asset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assets))
	require.Len(t, assets, 1)
	assert.Equal(t, "RELIANCE", assets[0].Symbol)
}

func TestAssets_Create(t *testing.T) {
	server, ta := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/assets",
		`{"symbol":"reliance","type":"STOCK","quantity":10,"averagePrice":2400}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, ta.ledger.lastAdd)
	assert.Equal(t, "reliance", ta.ledger.lastAdd.Symbol)
	assert.Equal(t, 10.0, ta.ledger.lastAdd.Quantity)
}

func TestAssets_CreateValidationError(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/assets", `{"type":"STOCK"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "symbol")
}

func TestAssets_MalformedJSON(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/assets", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssets_MethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodDelete, "/api/assets", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), http.MethodGet)
}

func TestTransactions_Create(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/transactions",
		`{"assetId":"a1","type":"BUY","quantity":5,"price":2500}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	assert.Equal(t, "a1", tx.AssetID)
}

func TestGold_AddAndDelete(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/gold",
		`{"name":"Wedding coins","totalGrams":5,"investedValue":36000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/gold/g1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/gold/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGold_UpdateRequiresID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodPut, "/api/gold/", `{"totalGrams":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolio_Snapshot(t *testing.T) {
	server, ta := newTestServer(t)
	ta.portfolio.snapshot = &models.PortfolioSnapshot{
		Summary: models.PortfolioSummary{TotalInvested: 1000, CurrentValue: 1200, TotalPnl: 200, TotalPnlPercent: 20},
		Assets:  []models.PortfolioAsset{},
	}

	rec := doRequest(t, server, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, 1200.0, snapshot.Summary.CurrentValue)
}

func TestPortfolio_ServiceError(t *testing.T) {
	server, ta := newTestServer(t)
	ta.portfolio.err = errors.New("storage unavailable")
	ta.portfolio.snapshot = nil

	rec := doRequest(t, server, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGrowth_Series(t *testing.T) {
	server, ta := newTestServer(t)
	ta.analysis.series = []models.DailyPortfolioPoint{
		{Date: "2024-06-10", TotalValue: 1200, InvestedValue: 1000, Profit: 200},
	}

	rec := doRequest(t, server, http.MethodGet, "/api/analysis/growth", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var series []models.DailyPortfolioPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 1)
	assert.Equal(t, "2024-06-10", series[0].Date)
}

func TestBrokerLogin_Redirects(t *testing.T) {
	server, ta := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/broker/login", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, ta.kite.loginURL, rec.Header().Get("Location"))
}

func TestBrokerLogin_Unconfigured(t *testing.T) {
	server, ta := newTestServer(t)
	ta.app.KiteClient = nil

	rec := doRequest(t, server, http.MethodGet, "/api/broker/login", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBrokerCallback_ImportsAndRedirects(t *testing.T) {
	server, ta := newTestServer(t)
	ta.ledger.importCount = 7

	rec := doRequest(t, server, http.MethodGet, "/api/broker/callback?request_token=tok123", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, ta.app.Config.Server.FrontendURL, rec.Header().Get("Location"))
	assert.Equal(t, []string{"tok123"}, ta.kite.tokens)
}

func TestBrokerCallback_MissingToken(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/broker/callback", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBrokerCallback_SessionFailure(t *testing.T) {
	server, ta := newTestServer(t)
	ta.kite.sessionErr = errors.New("invalid checksum")

	rec := doRequest(t, server, http.MethodGet, "/api/broker/callback?request_token=bad", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBrokerHoldings_Reimport(t *testing.T) {
	server, ta := newTestServer(t)
	ta.ledger.importCount = 3

	rec := doRequest(t, server, http.MethodPost, "/api/broker/holdings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3.0, body["imported"])
}

func TestBrokerHoldings_ImportError(t *testing.T) {
	server, ta := newTestServer(t)
	ta.ledger.importErr = errors.New("no active kite session")

	rec := doRequest(t, server, http.MethodPost, "/api/broker/holdings", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/assets", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorrelationIDEchoed(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "trace-42", rec.Header().Get("X-Correlation-ID"))
}
