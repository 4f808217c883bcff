package pricing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/models"
)

type masterSmartAPI struct {
	scrips []models.Scrip
	err    error
	calls  int
}

func (m *masterSmartAPI) GetCandles(_ context.Context, _, _ string, _, _ time.Time) ([]models.PricePoint, error) {
	return nil, nil
}

func (m *masterSmartAPI) GetScripMaster(_ context.Context) ([]models.Scrip, error) {
	m.calls++
	return m.scrips, m.err
}

type masterMFAPI struct {
	schemes map[string]string
	err     error
	calls   int
}

func (m *masterMFAPI) GetNavHistory(_ context.Context, _ string) ([]models.PricePoint, error) {
	return nil, nil
}
func (m *masterMFAPI) GetLatestNav(_ context.Context, _ string) (float64, error) { return 0, nil }
func (m *masterMFAPI) GetSchemeMaster(_ context.Context) (map[string]string, error) {
	m.calls++
	return m.schemes, m.err
}

func TestResolveExchangeToken_PrefersNSEEquity(t *testing.T) {
	smartapi := &masterSmartAPI{scrips: []models.Scrip{
		{Token: "500325", Symbol: "RELIANCE", ExchSeg: "BSE"},
		{Token: "2885", Symbol: "RELIANCE-EQ", ExchSeg: "NSE"},
	}}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	token, exchange, ok := m.ResolveExchangeToken(context.Background(), "RELIANCE")

	assert.True(t, ok)
	assert.Equal(t, "2885", token)
	assert.Equal(t, "NSE", exchange)
}

func TestResolveExchangeToken_FallsBackToBSE(t *testing.T) {
	smartapi := &masterSmartAPI{scrips: []models.Scrip{
		{Token: "523395", Symbol: "SOMEBSE", ExchSeg: "BSE"},
	}}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	token, exchange, ok := m.ResolveExchangeToken(context.Background(), "somebse")

	assert.True(t, ok)
	assert.Equal(t, "523395", token)
	assert.Equal(t, "BSE", exchange)
}

func TestResolveExchangeToken_LooseNameMatch(t *testing.T) {
	// No trading symbol matches, but an NSE row's company name contains the
	// query. The name search is the last resort, so an exact symbol on any
	// segment still wins over it.
	smartapi := &masterSmartAPI{scrips: []models.Scrip{
		{Token: "11536", Symbol: "TCS-EQ", Name: "TATA CONSULTANCY SERVICES", ExchSeg: "NSE"},
		{Token: "3456", Symbol: "TATAMOTORS-EQ", Name: "Tata Motors Limited", ExchSeg: "NSE"},
		{Token: "9999", Symbol: "IGNORED", Name: "TATA STEEL", ExchSeg: "MCX"},
	}}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	token, exchange, ok := m.ResolveExchangeToken(context.Background(), "TATA CONSULTANCY")
	assert.True(t, ok)
	assert.Equal(t, "11536", token)
	assert.Equal(t, "NSE", exchange)

	// Non-NSE/BSE rows are excluded from the name search.
	_, _, ok = m.ResolveExchangeToken(context.Background(), "TATA STEEL")
	assert.False(t, ok)

	// Exact symbol match is not shadowed by a name that also contains it.
	token, _, ok = m.ResolveExchangeToken(context.Background(), "TCS")
	assert.True(t, ok)
	assert.Equal(t, "11536", token)
}

func TestResolveExchangeToken_UnknownSymbol(t *testing.T) {
	m := NewMapper(&masterSmartAPI{}, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	_, _, ok := m.ResolveExchangeToken(context.Background(), "NOPE")

	assert.False(t, ok)
}

func TestResolveExchangeToken_MasterCachedWithinTTL(t *testing.T) {
	smartapi := &masterSmartAPI{scrips: []models.Scrip{
		{Token: "2885", Symbol: "RELIANCE-EQ", ExchSeg: "NSE"},
	}}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	m.ResolveExchangeToken(context.Background(), "RELIANCE")
	m.ResolveExchangeToken(context.Background(), "RELIANCE")

	assert.Equal(t, 1, smartapi.calls)
}

func TestResolveExchangeToken_MasterReloadedAfterTTL(t *testing.T) {
	smartapi := &masterSmartAPI{scrips: []models.Scrip{
		{Token: "2885", Symbol: "RELIANCE-EQ", ExchSeg: "NSE"},
	}}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	current := time.Now()
	m.now = func() time.Time { return current }

	m.ResolveExchangeToken(context.Background(), "RELIANCE")
	current = current.Add(2 * time.Hour)
	m.ResolveExchangeToken(context.Background(), "RELIANCE")

	assert.Equal(t, 2, smartapi.calls)
}

func TestResolveExchangeToken_RetriesOnceOnFailure(t *testing.T) {
	smartapi := &masterSmartAPI{err: fmt.Errorf("download failed")}
	m := NewMapper(smartapi, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	_, _, ok := m.ResolveExchangeToken(context.Background(), "RELIANCE")

	assert.False(t, ok)
	assert.Equal(t, 2, smartapi.calls)
}

func TestResolveSchemeCode(t *testing.T) {
	mfapi := &masterMFAPI{schemes: map[string]string{"INF179K01158": "118825"}}
	m := NewMapper(&masterSmartAPI{}, mfapi, time.Hour, common.NewSilentLogger())

	code, ok := m.ResolveSchemeCode(context.Background(), "inf179k01158")
	assert.True(t, ok)
	assert.Equal(t, "118825", code)

	_, ok = m.ResolveSchemeCode(context.Background(), "INF000000000")
	assert.False(t, ok)
}

func TestResolveExchangeToken_NilClientIsHarmless(t *testing.T) {
	m := NewMapper(nil, &masterMFAPI{}, time.Hour, common.NewSilentLogger())

	_, _, ok := m.ResolveExchangeToken(context.Background(), "RELIANCE")

	assert.False(t, ok)
}
