// Package kite provides a client for the Zerodha Kite Connect API:
// the request-token login flow and holdings retrieval for the
// authenticated user.
package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

const (
	DefaultBaseURL   = "https://api.kite.trade"
	DefaultLoginURL  = "https://kite.zerodha.com/connect/login"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 3 // requests per second

	kiteVersion = "3"
)

// Credentials holds the Kite Connect app credentials.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Configured reports whether both credentials are set.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Client implements the KiteClient interface
type Client struct {
	baseURL    string
	loginURL   string
	creds      Credentials
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter

	mu          sync.Mutex
	accessToken string
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLoginURL sets the login page URL
func WithLoginURL(loginURL string) ClientOption {
	return func(c *Client) {
		c.loginURL = loginURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Kite Connect client
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		loginURL: DefaultLoginURL,
		creds:    creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Kite API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// LoginURL returns the Kite Connect login page URL for this app.
func (c *Client) LoginURL() (string, error) {
	if !c.creds.Configured() {
		return "", fmt.Errorf("kite credentials not configured")
	}
	return fmt.Sprintf("%s?v=%s&api_key=%s", c.loginURL, kiteVersion, url.QueryEscape(c.creds.APIKey)), nil
}

type sessionResponse struct {
	Status string `json:"status"`
	Data   struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	} `json:"data"`
	Message string `json:"message"`
}

// GenerateSession exchanges a request token from the login redirect for
// an access token. The checksum is sha256(api_key + request_token +
// api_secret) per the Kite Connect session flow.
func (c *Client) GenerateSession(ctx context.Context, requestToken string) error {
	if !c.creds.Configured() {
		return fmt.Errorf("kite credentials not configured")
	}
	if requestToken == "" {
		return fmt.Errorf("request token is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	sum := sha256.Sum256([]byte(c.creds.APIKey + requestToken + c.creds.APISecret))
	form := url.Values{}
	form.Set("api_key", c.creds.APIKey)
	form.Set("request_token", requestToken)
	form.Set("checksum", hex.EncodeToString(sum[:]))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/session/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", kiteVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   "/session/token",
		}
	}

	var decoded sessionResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if decoded.Data.AccessToken == "" {
		return fmt.Errorf("session exchange failed: %s", decoded.Message)
	}

	c.mu.Lock()
	c.accessToken = decoded.Data.AccessToken
	c.mu.Unlock()

	c.logger.Info().Str("user_id", decoded.Data.UserID).Msg("Kite session established")
	return nil
}

// Connected reports whether an access token is held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != ""
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		return nil, fmt.Errorf("no active kite session")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Kite-Version", kiteVersion)
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.creds.APIKey, token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// An expired token needs a fresh login.
		if resp.StatusCode == http.StatusForbidden {
			c.mu.Lock()
			c.accessToken = ""
			c.mu.Unlock()
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   endpoint,
		}
	}

	return data, nil
}

type holdingsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Exchange      string  `json:"exchange"`
		ISIN          string  `json:"isin"`
		Quantity      float64 `json:"quantity"`
		AveragePrice  float64 `json:"average_price"`
		LastPrice     float64 `json:"last_price"`
	} `json:"data"`
}

type mfHoldingsResponse struct {
	Status string `json:"status"`
	Data   []struct {
		TradingSymbol string  `json:"tradingsymbol"`
		Fund          string  `json:"fund"`
		Quantity      float64 `json:"quantity"`
		AveragePrice  float64 `json:"average_price"`
		LastPrice     float64 `json:"last_price"`
	} `json:"data"`
}

// GetHoldings retrieves equity holdings for the active session.
func (c *Client) GetHoldings(ctx context.Context) ([]models.BrokerHolding, error) {
	data, err := c.get(ctx, "/portfolio/holdings")
	if err != nil {
		return nil, err
	}

	var decoded holdingsResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	holdings := make([]models.BrokerHolding, 0, len(decoded.Data))
	for _, h := range decoded.Data {
		holdings = append(holdings, models.BrokerHolding{
			TradingSymbol: h.TradingSymbol,
			Exchange:      h.Exchange,
			ISIN:          h.ISIN,
			Quantity:      h.Quantity,
			AveragePrice:  h.AveragePrice,
			LastPrice:     h.LastPrice,
		})
	}

	c.logger.Debug().Int("holdings", len(holdings)).Msg("Equity holdings fetched")
	return holdings, nil
}

// GetMFHoldings retrieves mutual fund holdings for the active session.
func (c *Client) GetMFHoldings(ctx context.Context) ([]models.BrokerHolding, error) {
	data, err := c.get(ctx, "/mf/holdings")
	if err != nil {
		return nil, err
	}

	var decoded mfHoldingsResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	holdings := make([]models.BrokerHolding, 0, len(decoded.Data))
	for _, h := range decoded.Data {
		holdings = append(holdings, models.BrokerHolding{
			TradingSymbol: h.TradingSymbol,
			Name:          h.Fund,
			Quantity:      h.Quantity,
			AveragePrice:  h.AveragePrice,
			LastPrice:     h.LastPrice,
		})
	}

	c.logger.Debug().Int("holdings", len(holdings)).Msg("Mutual fund holdings fetched")
	return holdings, nil
}

// Ensure Client implements KiteClient
var _ interfaces.KiteClient = (*Client)(nil)
