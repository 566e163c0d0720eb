package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/anaysomani05/opti-invest/internal/contracts"
	"github.com/anaysomani05/opti-invest/internal/optimization"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// optimizeTimeout caps one optimization run, frontier sweep included.
const optimizeTimeout = 2 * time.Minute

// OptimizationHandler handles optimization runs and the supporting
// read-only endpoints.
type OptimizationHandler struct {
	service *optimization.Service
	logger  *logger.Logger
}

// NewOptimizationHandler creates an optimization handler.
func NewOptimizationHandler(service *optimization.Service, log *logger.Logger) *OptimizationHandler {
	return &OptimizationHandler{
		service: service,
		logger:  log,
	}
}

// Optimize runs a portfolio optimization for the requested risk profile.
// POST /api/optimization/optimize
func (h *OptimizationHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req contracts.OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), optimizeTimeout)
	defer cancel()

	result, err := h.service.Optimize(ctx, &req)
	if err != nil {
		h.logger.WithError(err).WithField("risk_profile", req.RiskProfile).Warn("Optimization failed")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// RiskProfiles lists the available risk presets.
// GET /api/optimization/risk-profiles
func (h *OptimizationHandler) RiskProfiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": optimization.Profiles(),
	})
}

// ValidatePortfolio checks optimization readiness without optimizing.
// GET /api/optimization/validate-portfolio
func (h *OptimizationHandler) ValidatePortfolio(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ValidatePortfolio(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Portfolio validation failed")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
