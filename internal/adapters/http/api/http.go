// Package api serves the latest evaluation report over read-only JSON routes.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/platewatch/internal/app"
	"github.com/okian/platewatch/internal/domain/report"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	ReportSource
	StatsProvider
}

// ReportSource yields the report of the last successful run.
type ReportSource interface {
	Latest() (*report.Report, bool)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats() service.Stats
}

// Server wires HTTP routes for the report API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	reportHandler   *ReportHandler
	categoryHandler *CategoryHandler
	athleteHandler  *AthleteHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		reportHandler:   NewReportHandler(deps),
		categoryHandler: NewCategoryHandler(deps),
		athleteHandler:  NewAthleteHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/report", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
	mux.HandleFunc("/categories", MetricsMiddleware(s.categoryHandler.HandleListCategories, "categories"))
	mux.HandleFunc("/categories/", MetricsMiddleware(s.categoryHandler.HandleGetCategory, "category"))
	mux.HandleFunc("/athletes/", MetricsMiddleware(s.athleteHandler.HandleGetAthlete, "athlete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// latest fetches the current report or answers 503 when no run finished yet.
func latest(w http.ResponseWriter, src ReportSource) (*report.Report, bool) {
	r, ok := src.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no_report", ErrNoReport)
		return nil, false
	}
	return r, true
}
