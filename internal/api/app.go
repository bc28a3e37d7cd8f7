// Package api is the headless analysis surface: one POST with a file and a
// chart choice returns the cleaned-table summary, the narrative, and
// optionally a question's answer, with no session kept server-side.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"datastory/adapters/fileload"
	"datastory/domain/chart"
	"datastory/internal/chartspec"
	"datastory/internal/cleaning"
	"datastory/internal/config"
	"datastory/internal/errors"
	"datastory/internal/insight"
	"datastory/internal/qa"
)

// App is the one-shot analysis application.
type App struct {
	router    *chi.Mux
	cfg       *config.Config
	loader    *fileload.Loader
	cleaner   *cleaning.Cleaner
	resolver  *chartspec.Resolver
	insights  *insight.Generator
	responder *qa.Responder
}

// NewApp creates the analysis API application.
func NewApp(cfg *config.Config) *App {
	a := &App{
		router:    chi.NewRouter(),
		cfg:       cfg,
		loader:    fileload.NewLoader(),
		cleaner:   cleaning.NewCleaner(),
		resolver:  chartspec.NewResolver(),
		insights:  insight.NewGenerator(),
		responder: qa.NewResponder(),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/api/chart-kinds", a.handleChartKinds)
	a.router.Post("/api/analyze", a.handleAnalyze)
}

// Start runs the API server
func (a *App) Start(addr string) error {
	log.Printf("[API] listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Router exposes the mux for tests.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleChartKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"kinds": chart.Kinds()})
}

// AnalyzeResponse is the one-shot analysis result.
type AnalyzeResponse struct {
	Filename  string            `json:"filename"`
	Rows      int               `json:"rows"`
	Columns   int               `json:"columns"`
	Spec      chart.Spec        `json:"spec"`
	Summary   string            `json:"summary"`
	Narrative string            `json:"narrative"`
	Answer    string            `json:"answer,omitempty"`
	Types     map[string]string `json:"column_types"`
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.cfg.Upload.MaxBytes); err != nil {
		writeError(w, errors.InvalidInput("expected multipart form upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errors.InvalidInput("missing file field"))
		return
	}
	defer file.Close()

	raw, err := a.loader.Load(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	cleaned := a.cleaner.Clean(raw)

	req := chartspec.Request{
		Kind: chart.Kind(r.FormValue("kind")),
		X:    r.FormValue("x"),
		Y:    r.FormValue("y"),
		Size: r.FormValue("size"),
	}
	spec, err := a.resolver.Resolve(cleaned, req)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := AnalyzeResponse{
		Filename:  header.Filename,
		Rows:      cleaned.NumRows(),
		Columns:   cleaned.NumColumns(),
		Spec:      spec,
		Summary:   insight.DatasetSummary(cleaned),
		Narrative: a.insights.Narrative(cleaned, spec),
		Types:     make(map[string]string, cleaned.NumColumns()),
	}
	for _, col := range cleaned.Columns() {
		resp.Types[col.Name] = string(col.Type)
	}
	if question := r.FormValue("question"); question != "" {
		resp.Answer = a.responder.Answer(cleaned, spec, question)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeLoadError, errors.CodeChartSpec, errors.CodeInvalidInput, errors.CodeValidationError:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": errors.GetCode(err)})
}
