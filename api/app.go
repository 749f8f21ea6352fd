package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/app"
	apperrors "github.com/erezimm/cast/internal/errors"
)

// App is the HTTP application serving the candidate catalog and the
// operational endpoints around it.
type App struct {
	router *chi.Mux

	candidates *app.CandidateService
	ingestor   *app.IngestService
	forcedPhot *app.ForcedPhotService
	reports    *app.ReportService

	log *logrus.Entry
}

// Config holds HTTP application configuration
type Config struct {
	Addr string
}

// NewApp creates the HTTP application and wires its routes
func NewApp(
	candidates *app.CandidateService,
	ingestor *app.IngestService,
	forcedPhot *app.ForcedPhotService,
	reports *app.ReportService,
) *App {
	a := &App{
		router:     chi.NewRouter(),
		candidates: candidates,
		ingestor:   ingestor,
		forcedPhot: forcedPhot,
		reports:    reports,
		log:        logrus.WithField("component", "api"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)

	a.router.Route("/api", func(r chi.Router) {
		r.Get("/candidates", a.handleListCandidates)
		r.Get("/candidates/{id}", a.handleGetCandidate)
		r.Get("/candidates/{id}/lightcurve", a.handleLightcurve)
		r.Get("/candidates/{id}/lightcurve.xlsx", a.handleExportLightcurve)
		r.Post("/candidates/{id}/classification", a.handleClassify)
		r.Delete("/candidates/{id}", a.handleDeleteCandidate)
		r.Post("/candidates/{id}/forcedphot", a.handleImportForcedPhot)
		r.Post("/candidates/{id}/report", a.handleSubmitReport)

		r.Post("/alerts", a.handleIngestAlert)
		r.Post("/alerts/directory", a.handleIngestDirectory)
		r.Post("/forcedphot", a.handleForcedPhot)
	})
}

// Router exposes the configured handler for serving and for tests.
func (a *App) Router() http.Handler { return a.router }

// Start starts the HTTP server
func (a *App) Start(addr string) error {
	a.log.WithField("addr", addr).Info("starting HTTP server")
	return http.ListenAndServe(addr, a.router)
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes a JSON response body with the given status.
func (a *App) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.WithError(err).Error("failed to encode response")
	}
}

// respondError maps application error codes onto HTTP statuses.
func (a *App) respondError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeValidationError, apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeStateConflict:
		status = http.StatusConflict
	case apperrors.CodeTimeout:
		status = http.StatusGatewayTimeout
	case apperrors.CodeRemoteFailure:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		a.log.WithError(err).Error("request failed")
	}
	a.respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}
