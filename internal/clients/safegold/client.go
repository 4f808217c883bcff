// Package safegold provides a client for SafeGold digital gold rates:
// historical buy rates from the trends API and the live rate scraped
// from the landing page.
package safegold

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

const (
	DefaultBaseURL   = "https://www.safegold.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second

	// Plausible bounds for an INR per gram gold rate. A scrape that
	// lands outside them picked up the wrong number.
	minPlausibleRate = 5000
	maxPlausibleRate = 20000
)

// The landing page embeds the buy price as a script variable.
var buyPricePattern = regexp.MustCompile(`var\s+bp\s*=\s*["']([0-9.]+)["']`)

// Client implements the SafeGoldClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
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

// NewClient creates a new SafeGold client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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
	return fmt.Sprintf("SafeGold API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

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
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   endpoint,
		}
	}

	return data, nil
}

type rateHistoryResponse struct {
	Data []struct {
		Date string      `json:"date"`
		Rate json.Number `json:"rate"`
	} `json:"data"`
}

// GetRateHistory retrieves daily gold buy rates over a date range.
func (c *Client) GetRateHistory(ctx context.Context, from, to time.Time) ([]models.PricePoint, error) {
	params := url.Values{}
	params.Set("start_date", from.Format("2006-01-02"))
	params.Set("end_date", to.Format("2006-01-02"))
	params.Set("frequency", "d")

	data, err := c.get(ctx, "/user-trends/gold-rates", params)
	if err != nil {
		return nil, err
	}

	var decoded rateHistoryResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("no gold rate history between %s and %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	points := make([]models.PricePoint, 0, len(decoded.Data))
	for _, entry := range decoded.Data {
		price, err := entry.Rate.Float64()
		if err != nil || price <= 0 {
			continue
		}
		date, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  date.Format("2006-01-02"),
			Price: price,
		})
	}

	c.logger.Debug().Int("points", len(points)).Msg("Gold rate history fetched")
	return points, nil
}

// GetLiveRate scrapes the current buy price per gram from the landing
// page. Values outside the plausible band are rejected.
func (c *Client) GetLiveRate(ctx context.Context) (float64, error) {
	data, err := c.get(ctx, "/", nil)
	if err != nil {
		return 0, err
	}

	match := buyPricePattern.FindSubmatch(data)
	if match == nil {
		return 0, fmt.Errorf("buy price not found in page")
	}

	price, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse buy price %q: %w", match[1], err)
	}

	if price < minPlausibleRate || price > maxPlausibleRate {
		return 0, fmt.Errorf("scraped gold rate %.2f outside plausible range", price)
	}

	c.logger.Debug().Float64("rate", price).Msg("Live gold rate scraped")
	return price, nil
}

// Ensure Client implements SafeGoldClient
var _ interfaces.SafeGoldClient = (*Client)(nil)
