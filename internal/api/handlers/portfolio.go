package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/portfolio"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// maxCSVUploadBytes caps CSV uploads at 1 MiB.
const maxCSVUploadBytes = 1 << 20

// PortfolioHandler handles holdings CRUD, CSV import and the overview.
type PortfolioHandler struct {
	service *portfolio.Service
	logger  *logger.Logger
}

// NewPortfolioHandler creates a portfolio handler.
func NewPortfolioHandler(service *portfolio.Service, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  log,
	}
}

// ListHoldings returns every tracked position enriched with current prices.
// GET /api/portfolio/holdings
func (h *PortfolioHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.HoldingsWithCurrentPrices(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list holdings")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, holdings)
}

// AddHolding stores a new position.
// POST /api/portfolio/holdings
func (h *PortfolioHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var holding contracts.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	added, err := h.service.AddHolding(r.Context(), holding)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

// GetHolding returns one position.
// GET /api/portfolio/holdings/{id}
func (h *PortfolioHandler) GetHolding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	holding, err := h.service.GetHolding(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, holding)
}

// UpdateHolding applies a partial update to one position.
// PUT /api/portfolio/holdings/{id}
func (h *PortfolioHandler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var holding contracts.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.service.UpdateHolding(r.Context(), id, holding)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteHolding removes one position.
// DELETE /api/portfolio/holdings/{id}
func (h *PortfolioHandler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteHolding(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClearPortfolio removes every position.
// DELETE /api/portfolio
func (h *PortfolioHandler) ClearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearPortfolio(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// UploadCSV imports holdings from a CSV file in the "file" form field.
// POST /api/portfolio/upload-csv
func (h *PortfolioHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing CSV file upload")
		return
	}
	defer file.Close()

	holdings, err := portfolio.ParseCSV(file)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	stored, err := h.service.ImportHoldings(r.Context(), holdings)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.logger.WithField("count", len(stored)).Info("Imported holdings from CSV")
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(stored),
		"holdings": stored,
	})
}

// Overview returns the portfolio summary, holdings and sector allocation.
// GET /api/portfolio/overview
func (h *PortfolioHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build portfolio overview")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}
