package ui

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"datastory/adapters/fileload"
	"datastory/domain/chart"
	"datastory/internal/chartspec"
	"datastory/internal/config"
	"datastory/internal/errors"
	"datastory/internal/filter"
	"datastory/internal/insight"
	"datastory/internal/qa"
	"datastory/internal/session"
	"datastory/models"
	"datastory/ports"
)

// Server is the interactive web surface: upload a file, adjust filters,
// pick a chart, read the generated insights, ask questions.
type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	loader    *fileload.Loader
	store     *session.Store
	filters   *filter.Engine
	resolver  *chartspec.Resolver
	insights  *insight.Generator
	responder *qa.Responder
	renderer  ports.Renderer
	history   ports.UploadRepository
}

// NewServer creates a web server instance. The history repository may be nil
// when persistence is not configured.
func NewServer(cfg *config.Config, loader *fileload.Loader, store *session.Store,
	filters *filter.Engine, resolver *chartspec.Resolver, insights *insight.Generator,
	responder *qa.Responder, renderer ports.Renderer, history ports.UploadRepository) *Server {

	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:    gin.Default(),
		cfg:       cfg,
		loader:    loader,
		store:     store,
		filters:   filters,
		resolver:  resolver,
		insights:  insights,
		responder: responder,
		renderer:  renderer,
		history:   history,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.MaxMultipartMemory = s.cfg.Upload.MaxBytes

	api := s.router.Group("/api")
	api.GET("/chart-kinds", s.handleChartKinds)
	api.POST("/upload", s.handleUpload)
	api.GET("/history", s.handleHistory)

	sessions := api.Group("/sessions/:id")
	sessions.GET("/filters", s.handleFilters)
	sessions.GET("/preview", s.handlePreview)
	sessions.GET("/summary", s.handleSummary)
	sessions.POST("/chart", s.handleChart)
	sessions.POST("/ask", s.handleAsk)
	sessions.POST("/export", s.handleExport)
}

// Start runs the web server
func (s *Server) Start(addr string) error {
	log.Printf("[Server] listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleChartKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": chart.Kinds()})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fileHeader.Size > s.cfg.Upload.MaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d byte limit", s.cfg.Upload.MaxBytes),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer file.Close()

	hash, err := session.HashContent(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash upload"})
		return
	}
	if _, err := file.Seek(0, 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rewind upload"})
		return
	}

	raw, err := s.loader.Load(fileHeader.Filename, file)
	if err != nil {
		s.renderError(c, err)
		return
	}

	sess := s.store.Put(fileHeader.Filename, hash, raw)
	cleaned, err := s.store.Cleaned(sess.ID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	if s.history != nil {
		record := &models.UploadRecord{
			SessionID:   sess.ID,
			Filename:    sess.Filename,
			ContentHash: sess.ContentHash,
			RowCount:    raw.NumRows(),
			ColumnCount: raw.NumColumns(),
			UploadedAt:  sess.UploadedAt,
		}
		if err := s.history.Save(c.Request.Context(), record); err != nil {
			log.Printf("[Server] failed to record upload history: %v", err)
		}
	}

	columnTypes := make(map[string]string, cleaned.NumColumns())
	for _, col := range cleaned.Columns() {
		columnTypes[col.Name] = string(col.Type)
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"filename":     sess.Filename,
		"rows":         cleaned.NumRows(),
		"columns":      cleaned.NumColumns(),
		"column_types": columnTypes,
		"filters":      s.filters.Domains(cleaned),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"uploads": []models.UploadRecord{}})
		return
	}
	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && v > 0 {
		limit = v
	}
	records, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": records})
}

func (s *Server) handleFilters(c *gin.Context) {
	cleaned, err := s.store.Cleaned(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": s.filters.Domains(cleaned)})
}

func (s *Server) handlePreview(c *gin.Context) {
	cleaned, err := s.store.Cleaned(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	limit := 20
	if v, err := strconv.Atoi(c.DefaultQuery("rows", "20")); err == nil && v > 0 {
		limit = v
	}
	if limit > cleaned.NumRows() {
		limit = cleaned.NumRows()
	}

	cols := cleaned.Columns()
	rows := make([][]string, limit)
	for i := 0; i < limit; i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = col.Values[i].String()
		}
		rows[i] = row
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":    cleaned.ColumnNames(),
		"rows":       rows,
		"total_rows": cleaned.NumRows(),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	cleaned, err := s.store.Cleaned(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	md := insight.DatasetSummary(cleaned)
	c.JSON(http.StatusOK, gin.H{
		"markdown": md,
		"html":     renderMarkdown(md),
	})
}

// ChartRequest carries filter state plus the chosen chart configuration.
type ChartRequest struct {
	Filters []filter.Spec     `json:"filters"`
	Chart   chartspec.Request `json:"chart"`
}

// AskRequest is a chart request plus a free-text question.
type AskRequest struct {
	Filters  []filter.Spec     `json:"filters"`
	Chart    chartspec.Request `json:"chart"`
	Question string            `json:"question"`
}

// ExportRequest carries only filter state.
type ExportRequest struct {
	Filters []filter.Spec `json:"filters"`
}

func (s *Server) handleChart(c *gin.Context) {
	var req ChartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cleaned, err := s.store.Cleaned(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	start := time.Now()
	result := s.filters.Apply(cleaned, req.Filters)

	spec, err := s.resolver.Resolve(result.Table, req.Chart)
	if err != nil {
		s.renderError(c, err)
		return
	}

	var figure bytes.Buffer
	if err := s.renderer.Render(&figure, result.Table, spec); err != nil {
		s.renderError(c, err)
		return
	}

	narrative := s.insights.Narrative(result.Table, spec)
	log.Printf("[Server] %s chart built in %s (%d of %d rows)",
		spec.Kind, time.Since(start), result.FilteredRowCount, result.OriginalRowCount)

	c.JSON(http.StatusOK, gin.H{
		"spec":               spec,
		"figure_html":        figure.String(),
		"narrative_markdown": narrative,
		"narrative_html":     renderMarkdown(narrative),
		"original_row_count": result.OriginalRowCount,
		"filtered_row_count": result.FilteredRowCount,
		"removed_row_count":  result.RemovedRowCount,
	})
}

func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cleaned, err := s.store.Cleaned(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := s.filters.Apply(cleaned, req.Filters)
	spec, err := s.resolver.Resolve(result.Table, req.Chart)
	if err != nil {
		s.renderError(c, err)
		return
	}

	answer := s.responder.Answer(result.Table, spec, req.Question)
	c.JSON(http.StatusOK, gin.H{
		"question": req.Question,
		"answer":   answer,
	})
}

func (s *Server) handleExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	cleaned, err := s.store.Cleaned(sess.ID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	result := s.filters.Apply(cleaned, req.Filters)

	var buf bytes.Buffer
	if err := fileload.ExportCSV(&buf, result.Table); err != nil {
		s.renderError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "filtered_"+sess.Filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// renderError maps application error codes to HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeLoadError, errors.CodeChartSpec, errors.CodeInvalidInput, errors.CodeValidationError:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
