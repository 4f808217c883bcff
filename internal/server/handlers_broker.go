package server

import (
	"net/http"
)

// handleBrokerLogin handles GET /api/broker/login: redirects the browser to
// the broker's login page.
func (s *Server) handleBrokerLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.KiteClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "Broker integration not configured")
		return
	}

	loginURL, err := s.app.KiteClient.LoginURL()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleBrokerCallback handles GET /api/broker/callback: the redirect target
// of the broker login flow. The request token is exchanged for a session and
// holdings are imported, then the browser is sent back to the frontend.
func (s *Server) handleBrokerCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.KiteClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "Broker integration not configured")
		return
	}

	requestToken := r.URL.Query().Get("request_token")
	if requestToken == "" {
		WriteError(w, http.StatusBadRequest, "request_token query parameter is required")
		return
	}

	if err := s.app.KiteClient.GenerateSession(r.Context(), requestToken); err != nil {
		s.logger.Error().Err(err).Msg("Broker session exchange failed")
		WriteError(w, http.StatusBadGateway, "Broker login failed")
		return
	}

	count, err := s.app.LedgerService.ImportBrokerHoldings(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Holdings import after login failed")
	} else {
		s.logger.Info().Int("count", count).Msg("Holdings imported after broker login")
	}

	frontend := s.app.Config.Server.FrontendURL
	if frontend == "" {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"connected": true, "imported": count})
		return
	}
	http.Redirect(w, r, frontend, http.StatusFound)
}

// handleBrokerHoldings handles POST /api/broker/holdings: re-imports the
// broker's holdings into the ledger for the active session.
func (s *Server) handleBrokerHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if s.app.KiteClient == nil {
		WriteError(w, http.StatusServiceUnavailable, "Broker integration not configured")
		return
	}

	count, err := s.app.LedgerService.ImportBrokerHoldings(r.Context())
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"imported": count})
}
