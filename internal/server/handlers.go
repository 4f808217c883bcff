package server

import (
	"net/http"
	"time"

	"github.com/gspavan07/stockconnect/internal/interfaces"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleAssets handles GET and POST /api/assets.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assets, err := s.app.LedgerService.ListAssets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, assets)

	case http.MethodPost:
		var req interfaces.AddAssetRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		asset, err := s.app.LedgerService.AddAsset(r.Context(), req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, asset)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTransactions handles GET and POST /api/transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		txs, err := s.app.LedgerService.ListTransactions(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, txs)

	case http.MethodPost:
		var req interfaces.AddTransactionRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		tx, err := s.app.LedgerService.AddTransaction(r.Context(), req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, tx)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleGold handles GET and POST /api/gold.
func (s *Server) handleGold(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		gold, err := s.app.LedgerService.ListGold(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, gold)

	case http.MethodPost:
		var req interfaces.GoldRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		asset, err := s.app.LedgerService.AddGold(r.Context(), req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, asset)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleGoldByID handles PUT and DELETE /api/gold/{id}.
func (s *Server) handleGoldByID(w http.ResponseWriter, r *http.Request) {
	id := PathParam(r, "/api/gold/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Gold holding ID is required")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req interfaces.GoldRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		asset, err := s.app.LedgerService.UpdateGold(r.Context(), id, req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, asset)

	case http.MethodDelete:
		asset, err := s.app.LedgerService.DeleteGold(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, asset)

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handlePortfolio handles GET /api/portfolio.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	snapshot, err := s.app.PortfolioService.GetSnapshot(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// handleGrowth handles GET /api/analysis/growth.
func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	series, err := s.app.AnalysisService.GetGrowthSeries(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, series)
}
