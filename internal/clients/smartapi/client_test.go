package smartapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	APIKey:     "test-key",
	ClientID:   "A123456",
	Password:   "1234",
	TOTPSecret: "JBSWY3DPEHPK3PXP",
}

func loginOK(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": true,
		"data":   map[string]string{"jwtToken": "jwt-abc"},
	})
}

func TestGetCandles_ParsesSeries(t *testing.T) {
	var candleReq map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			loginOK(w)
		case candlesPath:
			assert.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
			assert.Equal(t, "test-key", r.Header.Get("X-PrivateKey"))
			json.NewDecoder(r.Body).Decode(&candleReq)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": [][]interface{}{
					{"2024-06-03T00:00:00+05:30", 100.0, 105.0, 99.0, 104.5, 12345.0},
					{"2024-06-04T00:00:00+05:30", 104.5, 106.0, 103.0, 105.25, 23456.0},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))

	from, _ := time.Parse("2006-01-02", "2024-06-01")
	to, _ := time.Parse("2006-01-02", "2024-06-10")
	points, err := client.GetCandles(context.Background(), "NSE", "2885", from, to)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "2024-06-03", points[0].Date)
	assert.Equal(t, 104.5, points[0].Price)
	assert.Equal(t, "2024-06-04", points[1].Date)
	assert.Equal(t, 105.25, points[1].Price)

	// Date bounds carry exchange trading times.
	assert.Equal(t, "2024-06-01 09:15", candleReq["fromdate"])
	assert.Equal(t, "2024-06-10 15:30", candleReq["todate"])
	assert.Equal(t, "ONE_DAY", candleReq["interval"])
}

func TestGetCandles_SessionReused(t *testing.T) {
	var logins atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case loginPath:
			logins.Add(1)
			loginOK(w)
		case candlesPath:
			json.NewEncoder(w).Encode(map[string]interface{}{"status": true, "data": [][]interface{}{}})
		}
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL), WithRateLimit(100))

	from, _ := time.Parse("2006-01-02", "2024-06-01")
	to, _ := time.Parse("2006-01-02", "2024-06-10")
	for i := 0; i < 3; i++ {
		_, err := client.GetCandles(context.Background(), "NSE", "2885", from, to)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), logins.Load())
}

func TestEnsureSession_CooldownAfterFailure(t *testing.T) {
	var logins atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid credentials"})
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL), WithRateLimit(100))

	current := time.Now()
	client.now = func() time.Time { return current }

	_, err := client.ensureSession(context.Background())
	require.Error(t, err)
	require.Equal(t, int64(1), logins.Load())

	// Within the cooldown no further login attempt is made.
	current = current.Add(time.Minute)
	_, err = client.ensureSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooling down")
	assert.Equal(t, int64(1), logins.Load())

	// After the cooldown the login is retried.
	current = current.Add(10 * time.Minute)
	_, err = client.ensureSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(2), logins.Load())
}

func TestEnsureSession_RetriesOnceOnTOTPRejection(t *testing.T) {
	var logins atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logins.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Invalid TOTP"})
			return
		}
		loginOK(w)
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL), WithRateLimit(100))

	token, err := client.ensureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
	assert.Equal(t, int64(2), logins.Load())
}

func TestEnsureSession_UnconfiguredCredentials(t *testing.T) {
	client := NewClient(Credentials{})

	_, err := client.ensureSession(context.Background())
	assert.Error(t, err)
}

func TestGetScripMaster_Decodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"token":"2885","symbol":"RELIANCE-EQ","name":"RELIANCE","exch_seg":"NSE"},
			{"token":"500325","symbol":"RELIANCE","name":"RELIANCE","exch_seg":"BSE"}
		]`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithScripMasterURL(server.URL))

	scrips, err := client.GetScripMaster(context.Background())
	require.NoError(t, err)
	require.Len(t, scrips, 2)
	assert.Equal(t, "2885", scrips[0].Token)
	assert.Equal(t, "RELIANCE-EQ", scrips[0].Symbol)
	assert.Equal(t, "NSE", scrips[0].ExchSeg)
}
