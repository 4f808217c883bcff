// Package pricing maps assets to provider-native identifiers and resolves
// historical and live prices through ordered per-class provider chains.
package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
)

// Mapper resolves equity symbols to broker instrument tokens and mutual fund
// ISINs to AMFI scheme codes. Both master lists are loaded lazily and
// refreshed after the configured interval. The refresh happens under the
// mutex, so concurrent callers wait for one download instead of issuing
// their own.
type Mapper struct {
	smartapi interfaces.SmartAPIClient
	mfapi    interfaces.MFAPIClient
	logger   *common.Logger
	ttl      time.Duration
	now      func() time.Time // injectable clock for testing

	mu            sync.Mutex
	scrips        map[string]scripEntry // symbol → token/exchange
	names         []nameRow             // NSE/BSE rows for the loose name search
	scripsLoaded  time.Time
	schemes       map[string]string // ISIN → scheme code
	schemesLoaded time.Time
}

type scripEntry struct {
	token    string
	exchange string
}

// nameRow backs the last-resort lookup by company name for symbols whose
// master rows carry no matching trading symbol.
type nameRow struct {
	name     string // uppercased
	token    string
	exchange string
}

// NewMapper creates a symbol mapper with the given master refresh interval.
func NewMapper(smartapi interfaces.SmartAPIClient, mfapi interfaces.MFAPIClient, ttl time.Duration, logger *common.Logger) *Mapper {
	return &Mapper{
		smartapi: smartapi,
		mfapi:    mfapi,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
	}
}

// ensureScrips loads or refreshes the instrument master. Called with mu held.
// A failed refresh keeps the previous (stale) master usable.
func (m *Mapper) ensureScrips(ctx context.Context) {
	if m.smartapi == nil {
		return
	}
	if m.scrips != nil && m.now().Sub(m.scripsLoaded) < m.ttl {
		return
	}

	scrips, err := m.smartapi.GetScripMaster(ctx)
	if err != nil {
		// One retry for transient download failures.
		scrips, err = m.smartapi.GetScripMaster(ctx)
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("Scrip master refresh failed")
		return
	}

	// Prefer NSE equity entries ("SYMBOL-EQ" on segment NSE); fall back to
	// BSE, then to any segment carrying the bare symbol.
	index := make(map[string]scripEntry, len(scrips))
	var names []nameRow
	for _, s := range scrips {
		symbol := strings.ToUpper(strings.TrimSuffix(s.Symbol, "-EQ"))
		if symbol == "" || s.Token == "" {
			continue
		}
		existing, seen := index[symbol]
		switch {
		case !seen:
			index[symbol] = scripEntry{token: s.Token, exchange: s.ExchSeg}
		case existing.exchange != "NSE" && s.ExchSeg == "NSE" && strings.HasSuffix(s.Symbol, "-EQ"):
			index[symbol] = scripEntry{token: s.Token, exchange: s.ExchSeg}
		case existing.exchange != "NSE" && existing.exchange != "BSE" && s.ExchSeg == "BSE":
			index[symbol] = scripEntry{token: s.Token, exchange: s.ExchSeg}
		}
		if s.Name != "" && (s.ExchSeg == "NSE" || s.ExchSeg == "BSE") {
			names = append(names, nameRow{
				name:     strings.ToUpper(s.Name),
				token:    s.Token,
				exchange: s.ExchSeg,
			})
		}
	}

	m.scrips = index
	m.names = names
	m.scripsLoaded = m.now()
	m.logger.Info().Int("symbols", len(index)).Msg("Instrument master loaded")
}

// ensureSchemes loads or refreshes the AMFI scheme master. Called with mu held.
func (m *Mapper) ensureSchemes(ctx context.Context) {
	if m.schemes != nil && m.now().Sub(m.schemesLoaded) < m.ttl {
		return
	}

	schemes, err := m.mfapi.GetSchemeMaster(ctx)
	if err != nil {
		schemes, err = m.mfapi.GetSchemeMaster(ctx)
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("Scheme master refresh failed")
		return
	}

	m.schemes = schemes
	m.schemesLoaded = m.now()
	m.logger.Info().Int("isins", len(schemes)).Msg("Scheme master loaded")
}

// ResolveExchangeToken maps an equity symbol to the broker's instrument token
// and exchange segment. When no trading symbol matches, a loose search over
// NSE/BSE company names catches symbols whose master rows only carry a name.
func (m *Mapper) ResolveExchangeToken(ctx context.Context, symbol string) (string, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureScrips(ctx)
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if entry, ok := m.scrips[key]; ok {
		return entry.token, entry.exchange, true
	}
	if key == "" {
		return "", "", false
	}
	for _, row := range m.names {
		if strings.Contains(row.name, key) {
			return row.token, row.exchange, true
		}
	}
	return "", "", false
}

// ResolveSchemeCode maps a mutual fund ISIN to its AMFI scheme code.
func (m *Mapper) ResolveSchemeCode(ctx context.Context, isin string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureSchemes(ctx)
	code, ok := m.schemes[strings.ToUpper(strings.TrimSpace(isin))]
	return code, ok
}

// Ensure Mapper implements SymbolMapper
var _ interfaces.SymbolMapper = (*Mapper)(nil)
