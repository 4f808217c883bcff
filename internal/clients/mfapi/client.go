// Package mfapi provides clients for Indian mutual fund NAV data:
// scheme NAV history from mfapi.in and the AMFI scheme master for
// resolving ISINs to scheme codes.
package mfapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

const (
	DefaultBaseURL   = "https://api.mfapi.in"
	DefaultAMFIURL   = "https://www.amfiindia.com/spages/NAVAll.txt"
	DefaultTimeout   = 60 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Mutual fund ISINs are INF followed by nine alphanumerics.
var isinPattern = regexp.MustCompile(`^INF[A-Z0-9]{9}$`)

// Client implements the MFAPIClient interface
type Client struct {
	baseURL    string
	amfiURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the mfapi.in base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAMFIURL sets the AMFI scheme master URL
func WithAMFIURL(amfiURL string) ClientOption {
	return func(c *Client) {
		c.amfiURL = amfiURL
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

// NewClient creates a new mutual fund data client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		amfiURL: DefaultAMFIURL,
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
	return fmt.Sprintf("MFAPI error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (c *Client) get(ctx context.Context, rawURL, endpoint string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(data),
			Endpoint:   endpoint,
		}
	}

	return resp, nil
}

type navHistoryResponse struct {
	Meta struct {
		SchemeCode json.Number `json:"scheme_code"`
		SchemeName string      `json:"scheme_name"`
	} `json:"meta"`
	Data []struct {
		Date string `json:"date"`
		Nav  string `json:"nav"`
	} `json:"data"`
	Status string `json:"status"`
}

// GetNavHistory retrieves the full NAV history for a scheme code.
// mfapi.in reports dates as dd-mm-yyyy, newest first.
func (c *Client) GetNavHistory(ctx context.Context, schemeCode string) ([]models.PricePoint, error) {
	endpoint := fmt.Sprintf("/mf/%s", schemeCode)
	resp, err := c.get(ctx, c.baseURL+endpoint, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded navHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("no NAV history for scheme %s", schemeCode)
	}

	points := make([]models.PricePoint, 0, len(decoded.Data))
	for _, entry := range decoded.Data {
		date, err := time.Parse("02-01-2006", entry.Date)
		if err != nil {
			c.logger.Warn().Str("scheme", schemeCode).Str("date", entry.Date).Msg("Skipping unparseable NAV date")
			continue
		}
		var nav float64
		if _, err := fmt.Sscanf(entry.Nav, "%f", &nav); err != nil || nav <= 0 {
			continue
		}
		points = append(points, models.PricePoint{
			Date:  date.Format("2006-01-02"),
			Price: nav,
		})
	}

	c.logger.Debug().Str("scheme", schemeCode).Int("points", len(points)).Msg("NAV history fetched")
	return points, nil
}

// GetLatestNav retrieves the most recent NAV for a scheme code.
func (c *Client) GetLatestNav(ctx context.Context, schemeCode string) (float64, error) {
	points, err := c.GetNavHistory(ctx, schemeCode)
	if err != nil {
		return 0, err
	}

	// History is newest first; the first valid point is the latest NAV.
	latest := points[0]
	for _, p := range points {
		if p.Date > latest.Date {
			latest = p
		}
	}
	return latest.Price, nil
}

// GetSchemeMaster downloads the AMFI NAVAll dump and returns an
// ISIN to scheme code mapping. Lines are semicolon separated:
// code;ISIN growth;ISIN reinvest;name;nav;date. Both ISIN columns
// are mapped when present.
func (c *Client) GetSchemeMaster(ctx context.Context) (map[string]string, error) {
	resp, err := c.get(ctx, c.amfiURL, "/spages/NAVAll.txt")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	master := make(map[string]string)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ";")
		if len(fields) < 4 {
			continue
		}
		code := strings.TrimSpace(fields[0])
		if code == "" {
			continue
		}
		for _, col := range fields[1:3] {
			isin := strings.TrimSpace(col)
			if isinPattern.MatchString(isin) {
				master[isin] = code
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scheme master: %w", err)
	}

	if len(master) == 0 {
		return nil, fmt.Errorf("scheme master contained no ISIN mappings")
	}

	c.logger.Info().Int("isins", len(master)).Msg("AMFI scheme master loaded")
	return master, nil
}

// Ensure Client implements MFAPIClient
var _ interfaces.MFAPIClient = (*Client)(nil)
