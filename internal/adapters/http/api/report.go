package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/platewatch/internal/domain/report"
)

// ReportHandler handles GET /report.
type ReportHandler struct {
	src ReportSource
}

// NewReportHandler creates a new report handler.
func NewReportHandler(src ReportSource) *ReportHandler {
	return &ReportHandler{src: src}
}

// HandleGetReport returns the whole latest report.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rep, ok := latest(w, h.src)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// CategoryHandler handles the category routes.
type CategoryHandler struct {
	src ReportSource
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(src ReportSource) *CategoryHandler {
	return &CategoryHandler{src: src}
}

// HandleListCategories handles GET /categories; categories come in rule
// table order.
func (h *CategoryHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rep, ok := latest(w, h.src)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep.Ordered())
}

// HandleGetCategory handles GET /categories/{rule_id}.
func (h *CategoryHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/categories/")
	id, err := strconv.Atoi(raw)
	if err != nil || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid rule id %q", ErrBadRequest, raw))
		return
	}
	rep, ok := latest(w, h.src)
	if !ok {
		return
	}
	c, ok := rep.Category(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: rule %d", ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AthleteHandler handles GET /athletes/{athlete_id}.
type AthleteHandler struct {
	src ReportSource
}

// athleteResponse lists the categories one athlete was flagged in.
type athleteResponse struct {
	AthleteID  string                   `json:"athlete_id"`
	RunID      string                   `json:"run_id"`
	Categories []report.AthleteCategory `json:"categories"`
}

// NewAthleteHandler creates a new athlete handler.
func NewAthleteHandler(src ReportSource) *AthleteHandler {
	return &AthleteHandler{src: src}
}

// HandleGetAthlete returns the athlete's flags across categories. An
// athlete flagged nowhere gets an empty list.
func (h *AthleteHandler) HandleGetAthlete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/athletes/")
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing athlete id", ErrBadRequest))
		return
	}
	rep, ok := latest(w, h.src)
	if !ok {
		return
	}
	cats := rep.Athlete(id)
	if cats == nil {
		cats = []report.AthleteCategory{}
	}
	writeJSON(w, http.StatusOK, athleteResponse{AthleteID: id, RunID: rep.RunID, Categories: cats})
}
