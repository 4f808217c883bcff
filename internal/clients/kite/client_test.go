package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	APIKey:    "testkey",
	APISecret: "testsecret",
}

func TestCredentials_Configured(t *testing.T) {
	assert.True(t, testCreds.Configured())
	assert.False(t, Credentials{APIKey: "only-key"}.Configured())
	assert.False(t, Credentials{}.Configured())
}

func TestLoginURL(t *testing.T) {
	client := NewClient(testCreds)

	loginURL, err := client.LoginURL()
	require.NoError(t, err)
	assert.Equal(t, "https://kite.zerodha.com/connect/login?v=3&api_key=testkey", loginURL)
}

func TestLoginURL_Unconfigured(t *testing.T) {
	client := NewClient(Credentials{})

	_, err := client.LoginURL()
	assert.Error(t, err)
}

func TestGenerateSession_SendsChecksum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/token", r.URL.Path)
		assert.Equal(t, "3", r.Header.Get("X-Kite-Version"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "testkey", r.PostForm.Get("api_key"))
		assert.Equal(t, "reqtoken", r.PostForm.Get("request_token"))

		sum := sha256.Sum256([]byte("testkey" + "reqtoken" + "testsecret"))
		assert.Equal(t, hex.EncodeToString(sum[:]), r.PostForm.Get("checksum"))

		w.Write([]byte(`{"status":"success","data":{"access_token":"tok123","user_id":"AB1234"}}`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))
	assert.False(t, client.Connected())

	err := client.GenerateSession(context.Background(), "reqtoken")
	require.NoError(t, err)
	assert.True(t, client.Connected())
}

func TestGenerateSession_RejectsEmptyToken(t *testing.T) {
	client := NewClient(testCreds)

	err := client.GenerateSession(context.Background(), "")
	assert.Error(t, err)
}

func TestGenerateSession_BadChecksum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":"error","message":"Invalid checksum"}`))
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))

	err := client.GenerateSession(context.Background(), "reqtoken")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, client.Connected())
}

func sessionFor(t *testing.T, client *Client) {
	t.Helper()
	require.NoError(t, client.GenerateSession(context.Background(), "reqtoken"))
}

func TestGetHoldings_ParsesAndAuthorizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/token":
			w.Write([]byte(`{"status":"success","data":{"access_token":"tok123","user_id":"AB1234"}}`))
		case "/portfolio/holdings":
			assert.Equal(t, "token testkey:tok123", r.Header.Get("Authorization"))
			assert.Equal(t, "3", r.Header.Get("X-Kite-Version"))
			w.Write([]byte(`{"status":"success","data":[
				{"tradingsymbol":"RELIANCE","exchange":"NSE","isin":"INE002A01018","quantity":10,"average_price":2400.5,"last_price":2950},
				{"tradingsymbol":"LIQUIDBEES","exchange":"NSE","isin":"INF732E01037","quantity":5,"average_price":1000,"last_price":1000}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))
	sessionFor(t, client)

	holdings, err := client.GetHoldings(context.Background())
	require.NoError(t, err)

	require.Len(t, holdings, 2)
	assert.Equal(t, "RELIANCE", holdings[0].TradingSymbol)
	assert.Equal(t, "NSE", holdings[0].Exchange)
	assert.Equal(t, "INE002A01018", holdings[0].ISIN)
	assert.Equal(t, 10.0, holdings[0].Quantity)
	assert.Equal(t, 2400.5, holdings[0].AveragePrice)
	assert.Equal(t, 2950.0, holdings[0].LastPrice)
}

func TestGetHoldings_RequiresSession(t *testing.T) {
	client := NewClient(testCreds)

	_, err := client.GetHoldings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active kite session")
}

func TestGetHoldings_ForbiddenClearsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/token":
			w.Write([]byte(`{"status":"success","data":{"access_token":"tok123","user_id":"AB1234"}}`))
		case "/portfolio/holdings":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"status":"error","message":"TokenException"}`))
		}
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))
	sessionFor(t, client)
	require.True(t, client.Connected())

	_, err := client.GetHoldings(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, client.Connected())
}

func TestGetMFHoldings_ParsesFundName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/token":
			w.Write([]byte(`{"status":"success","data":{"access_token":"tok123","user_id":"AB1234"}}`))
		case "/mf/holdings":
			w.Write([]byte(`{"status":"success","data":[
				{"tradingsymbol":"INF179K01158","fund":"HDFC Top 100 Fund","quantity":120.551,"average_price":650.2,"last_price":812.45}
			]}`))
		}
	}))
	defer server.Close()

	client := NewClient(testCreds, WithBaseURL(server.URL))
	sessionFor(t, client)

	holdings, err := client.GetMFHoldings(context.Background())
	require.NoError(t, err)

	require.Len(t, holdings, 1)
	assert.Equal(t, "INF179K01158", holdings[0].TradingSymbol)
	assert.Equal(t, "HDFC Top 100 Fund", holdings[0].Name)
	assert.Equal(t, 120.551, holdings[0].Quantity)
	assert.Equal(t, 812.45, holdings[0].LastPrice)
}
