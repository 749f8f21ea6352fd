package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("invalid candidate id")
	}
	return id, nil
}

// handleListCandidates returns candidates matching the query filter
func (a *App) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	var filter ports.CandidateFilter
	q := r.URL.Query()

	if v := q.Get("classification"); v != "" {
		class := models.Classification(v)
		if !class.Valid() {
			a.respondError(w, apperrors.InvalidInput("unknown classification: "+v))
			return
		}
		filter.Classification = &class
	}
	if v := q.Get("reported"); v != "" {
		reported, err := strconv.ParseBool(v)
		if err != nil {
			a.respondError(w, apperrors.InvalidInput("reported must be a boolean"))
			return
		}
		filter.Reported = &reported
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			a.respondError(w, apperrors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			a.respondError(w, apperrors.InvalidInput("offset must be a non-negative integer"))
			return
		}
		filter.Offset = offset
	}

	candidates, err := a.candidates.List(r.Context(), filter)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// handleGetCandidate returns the full detail view of one candidate
func (a *App) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	detail, err := a.candidates.Get(r.Context(), id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, detail)
}

// handleLightcurve returns the candidate's binned display lightcurve
func (a *App) handleLightcurve(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	view, err := a.candidates.Lightcurve(r.Context(), id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, view)
}

type classifyRequest struct {
	Classification string `json:"classification"`
	VettedBy       string `json:"vetted_by"`
}

// handleClassify records an operator's vetting decision
func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, apperrors.InvalidInput("invalid request body"))
		return
	}
	if req.VettedBy == "" {
		a.respondError(w, apperrors.InvalidInput("vetted_by is required"))
		return
	}
	if err := a.candidates.Classify(r.Context(), id, models.Classification(req.Classification), req.VettedBy); err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "classified"})
}

// handleDeleteCandidate removes a candidate and everything attached to it
func (a *App) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	if err := a.candidates.Delete(r.Context(), id); err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleExportLightcurve streams the candidate's photometry as a spreadsheet
func (a *App) handleExportLightcurve(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "lightcurve_"+id.String()+".xlsx"))
	if err := a.candidates.ExportLightcurve(r.Context(), id, w); err != nil {
		// Headers may already be out; log instead of rewriting the response.
		a.log.WithError(err).WithField("candidate", id).Error("lightcurve export failed")
	}
}

// handleIngestAlert accepts a single alert payload and routes it through
// spatial matching.
func (a *App) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	var payload models.AlertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.respondError(w, apperrors.InvalidInput("invalid alert payload"))
		return
	}
	payload.SourceFile = r.URL.Query().Get("filename")
	if payload.SourceFile == "" {
		payload.SourceFile = "upload.json"
	}
	result, err := a.ingestor.ProcessAlert(r.Context(), &payload)
	if err != nil {
		a.respondError(w, err)
		return
	}
	status := http.StatusOK
	if result.Decision == "created" {
		status = http.StatusCreated
	}
	a.respondJSON(w, status, result)
}

type directoryRequest struct {
	Directory  string  `json:"directory"`
	CutoffDays float64 `json:"cutoff_days"`
}

// handleIngestDirectory processes every alert file under a directory
func (a *App) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req directoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Directory == "" {
		a.respondError(w, apperrors.InvalidInput("directory is required"))
		return
	}
	summary, err := a.ingestor.ProcessDirectory(r.Context(), req.Directory, req.CutoffDays)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, summary)
}

// handleForcedPhot submits a forced photometry query and waits for the
// pipeline to answer.
func (a *App) handleForcedPhot(w http.ResponseWriter, r *http.Request) {
	var query models.ForcedPhotQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		a.respondError(w, apperrors.InvalidInput("invalid forced photometry query"))
		return
	}
	outcome, err := a.forcedPhot.Fetch(r.Context(), query)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, outcome)
}

type importRequest struct {
	LookbackDays float64 `json:"lookback_days"`
}

// handleImportForcedPhot backfills a candidate's lightcurve from the
// forced photometry pipeline.
func (a *App) handleImportForcedPhot(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, apperrors.InvalidInput("invalid request body"))
		return
	}
	detail, err := a.candidates.Get(r.Context(), id)
	if err != nil {
		a.respondError(w, err)
		return
	}
	added, err := a.forcedPhot.ImportForCandidate(r.Context(), &detail.Candidate, req.LookbackDays)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]int{"points_added": added})
}

type reportRequest struct {
	Reporter string `json:"reporter"`
}

// handleSubmitReport sends the candidate's discovery report to the naming
// registry.
func (a *App) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		a.respondError(w, err)
		return
	}
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reporter == "" {
		a.respondError(w, apperrors.InvalidInput("reporter is required"))
		return
	}
	submission, err := a.reports.Submit(r.Context(), id, req.Reporter)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, submission)
}
