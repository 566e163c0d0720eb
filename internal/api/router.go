package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/anaysomani05/opti-invest/internal/api/handlers"
	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// NewRouter configures all routes and middleware.
func NewRouter(portfolioHandler *handlers.PortfolioHandler, optimizationHandler *handlers.OptimizationHandler, marketHandler *handlers.MarketHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolio/holdings", portfolioHandler.ListHoldings).Methods("GET")
	api.HandleFunc("/portfolio/holdings", portfolioHandler.AddHolding).Methods("POST")
	api.HandleFunc("/portfolio/holdings/{id}", portfolioHandler.GetHolding).Methods("GET")
	api.HandleFunc("/portfolio/holdings/{id}", portfolioHandler.UpdateHolding).Methods("PUT")
	api.HandleFunc("/portfolio/holdings/{id}", portfolioHandler.DeleteHolding).Methods("DELETE")
	api.HandleFunc("/portfolio/upload-csv", portfolioHandler.UploadCSV).Methods("POST")
	api.HandleFunc("/portfolio/overview", portfolioHandler.Overview).Methods("GET")
	api.HandleFunc("/portfolio", portfolioHandler.ClearPortfolio).Methods("DELETE")

	// Optimization endpoints
	api.HandleFunc("/optimization/optimize", optimizationHandler.Optimize).Methods("POST")
	api.HandleFunc("/optimization/risk-profiles", optimizationHandler.RiskProfiles).Methods("GET")
	api.HandleFunc("/optimization/validate-portfolio", optimizationHandler.ValidatePortfolio).Methods("GET")

	// Market data endpoints
	api.HandleFunc("/market/quote/{symbol}", marketHandler.GetQuote).Methods("GET")
	api.HandleFunc("/market/quotes", marketHandler.BatchQuotes).Methods("POST")
	api.HandleFunc("/market/search", marketHandler.Search).Methods("GET")
	api.HandleFunc("/market/fundamentals/{symbol}", marketHandler.Fundamentals).Methods("GET")
	api.HandleFunc("/market/status", marketHandler.Status).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(20), 40)))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "opti-invest-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware sheds load once the request rate exceeds the bucket.
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
