// Package smartapi provides a client for the Angel One SmartAPI
package smartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

const (
	DefaultBaseURL        = "https://apiconnect.angelbroking.com"
	DefaultScripMasterURL = "https://margincalculator.angelbroking.com/OpenAPI_File/files/OpenAPIScripMaster.json"
	DefaultTimeout        = 30 * time.Second
	DefaultRateLimit      = 3 // requests per second
	DefaultLoginCooldown  = 5 * time.Minute

	loginPath   = "/rest/auth/angelbroking/user/v1/loginByPassword"
	candlesPath = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// Credentials holds the SmartAPI login material.
type Credentials struct {
	APIKey     string
	ClientID   string
	Password   string
	TOTPSecret string
}

// Configured reports whether all fields are present.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.ClientID != "" && c.Password != "" && c.TOTPSecret != ""
}

// Client implements the SmartAPIClient interface. The authenticated session
// is acquired lazily under a mutex so concurrent callers join one login
// attempt, and a cooldown after a failed login prevents retry storms.
type Client struct {
	baseURL        string
	scripMasterURL string
	creds          Credentials
	httpClient     *http.Client
	logger         *common.Logger
	limiter        *rate.Limiter
	cooldown       time.Duration
	now            func() time.Time // injectable clock for testing

	mu           sync.Mutex
	jwtToken     string
	lastFailedAt time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithScripMasterURL sets the instrument master file URL
func WithScripMasterURL(u string) ClientOption {
	return func(c *Client) {
		c.scripMasterURL = u
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

// WithLoginCooldown sets the wait after a failed login before retrying
func WithLoginCooldown(d time.Duration) ClientOption {
	return func(c *Client) {
		c.cooldown = d
	}
}

// NewClient creates a new SmartAPI client
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		scripMasterURL: DefaultScripMasterURL,
		creds:          creds,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:   common.NewSilentLogger(),
		cooldown: DefaultLoginCooldown,
		now:      time.Now,
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
	return fmt.Sprintf("SmartAPI error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type loginRequest struct {
	ClientCode string `json:"clientcode"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	} `json:"data"`
}

// ensureSession acquires the authenticated session if one is not held.
// Callers holding the returned token may race a concurrent re-login; that is
// harmless since tokens stay valid until expiry.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.jwtToken != "" {
		return c.jwtToken, nil
	}

	if !c.creds.Configured() {
		return "", fmt.Errorf("smartapi credentials not configured")
	}

	if since := c.now().Sub(c.lastFailedAt); since < c.cooldown {
		return "", fmt.Errorf("smartapi login cooling down (%s since last failure)", since.Round(time.Second))
	}

	token, err := c.login(ctx)
	if err != nil {
		// A TOTP mismatch is usually a timing issue; retry once after a beat.
		if strings.Contains(strings.ToLower(err.Error()), "totp") {
			c.logger.Warn().Err(err).Msg("SmartAPI TOTP rejected, retrying once")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			token, err = c.login(ctx)
		}
	}
	if err != nil {
		c.lastFailedAt = c.now()
		return "", err
	}

	c.jwtToken = token
	c.logger.Info().Msg("SmartAPI session established")
	return token, nil
}

// login performs one loginByPassword attempt. Caller must hold c.mu.
func (c *Client) login(ctx context.Context) (string, error) {
	code, err := totp.GenerateCode(c.creds.TOTPSecret, c.now())
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP: %w", err)
	}

	var resp loginResponse
	if err := c.post(ctx, loginPath, "", loginRequest{
		ClientCode: c.creds.ClientID,
		Password:   c.creds.Password,
		TOTP:       code,
	}, &resp); err != nil {
		return "", err
	}

	if !resp.Status || resp.Data.JWTToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("smartapi login failed: %s", msg)
	}

	return resp.Data.JWTToken, nil
}

// post performs a rate-limited POST with the SmartAPI header set.
func (c *Client) post(ctx context.Context, path, bearer string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", c.creds.APIKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("SmartAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

type candleResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    [][]interface{} `json:"data"`
}

// GetCandles retrieves daily close prices for an instrument token. Returns an
// empty slice with nil error when the provider has no data for the range.
func (c *Client) GetCandles(ctx context.Context, exchange, token string, from, to time.Time) ([]models.PricePoint, error) {
	bearer, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	// SmartAPI wants exchange-local trading times on the date bounds.
	body := map[string]string{
		"exchange":    exchange,
		"symboltoken": token,
		"interval":    "ONE_DAY",
		"fromdate":    from.Format("2006-01-02") + " 09:15",
		"todate":      to.Format("2006-01-02") + " 15:30",
	}

	var resp candleResponse
	if err := c.post(ctx, candlesPath, bearer, body, &resp); err != nil {
		return nil, err
	}

	if !resp.Status {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("smartapi candle request failed: %s", msg)
	}

	points := make([]models.PricePoint, 0, len(resp.Data))
	for _, candle := range resp.Data {
		// candle: [time, open, high, low, close, volume]
		if len(candle) < 5 {
			continue
		}
		ts, ok := candle[0].(string)
		if !ok {
			continue
		}
		closePrice, ok := candle[4].(float64)
		if !ok {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  parsed.Format("2006-01-02"),
			Price: closePrice,
		})
	}

	c.logger.Debug().Str("token", token).Int("candles", len(points)).Msg("SmartAPI candles fetched")
	return points, nil
}

// GetScripMaster downloads the full instrument master file. The file is
// large (~100k rows); callers are expected to cache it.
func (c *Client) GetScripMaster(ctx context.Context) ([]models.Scrip, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scripMasterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Info().Msg("Downloading scrip master")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download scrip master: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   c.scripMasterURL,
		}
	}

	var scrips []models.Scrip
	if err := json.NewDecoder(resp.Body).Decode(&scrips); err != nil {
		return nil, fmt.Errorf("failed to decode scrip master: %w", err)
	}

	c.logger.Info().Int("scrips", len(scrips)).Msg("Scrip master downloaded")
	return scrips, nil
}

// Ensure Client implements SmartAPIClient
var _ interfaces.SmartAPIClient = (*Client)(nil)
