package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/casestore"
	"github.com/thyroid-dss-server/internal/domain"
	"github.com/thyroid-dss-server/internal/middleware"
	"github.com/thyroid-dss-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	logger    *logrus.Logger
	config    *domain.Config
	router    *gin.Engine
	server    *http.Server
	nodules   *service.NoduleFlowService
	triage    *service.TriageService
	evaluator *service.CaseEvaluator
	store     casestore.Store
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, cfg *domain.Config, store casestore.Store) (*Server, error) {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	nodules, err := service.NewNoduleFlowService(logger)
	if err != nil {
		return nil, fmt.Errorf("init nodule flow: %w", err)
	}
	triage, err := service.NewTriageService(logger)
	if err != nil {
		return nil, fmt.Errorf("init triage: %w", err)
	}
	evaluator, err := service.NewCaseEvaluator(logger)
	if err != nil {
		return nil, fmt.Errorf("init evaluator: %w", err)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RateLimit(cfg.RateLimit))

	server := &Server{
		logger:    logger,
		config:    cfg,
		router:    router,
		nodules:   nodules,
		triage:    triage,
		evaluator: evaluator,
		store:     store,
	}
	server.setupRoutes()
	return server, nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/nodule/evaluate", s.handleNoduleEvaluate)
		v1.POST("/nodule/triage", s.handleNoduleTriage)
		v1.POST("/case/evaluate", s.handleCaseEvaluate)
		v1.GET("/rules", s.handleListRules)
		v1.GET("/rules/:module", s.handleGetRuleModule)
		v1.POST("/cases", s.handleSaveCase)
		v1.GET("/cases", s.handleListCases)
		v1.GET("/cases/:id", s.handleGetCase)
		v1.DELETE("/cases/:id", s.handleDeleteCase)
		v1.GET("/export/cases", s.handleExportCases)
		v1.POST("/import/cases", s.handleImportCases)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// handleNoduleEvaluate runs the nodule workflow for one case.
func (s *Server) handleNoduleEvaluate(c *gin.Context) {
	var nodule domain.NoduleCase
	if err := c.ShouldBindJSON(&nodule); err != nil {
		s.badRequest(c, "invalid nodule case", err)
		return
	}
	if nodule.Guideline != "" && !nodule.Guideline.IsValid() {
		s.badRequest(c, fmt.Sprintf("invalid guideline %q", nodule.Guideline), domain.ErrInvalidGuideline)
		return
	}

	result := s.nodules.Evaluate(&nodule)
	c.JSON(http.StatusOK, gin.H{
		"case":   nodule,
		"result": result,
	})
}

// handleNoduleTriage runs the declarative triage pipeline.
func (s *Server) handleNoduleTriage(c *gin.Context) {
	var triageCase domain.TriageCase
	if err := c.ShouldBindJSON(&triageCase); err != nil {
		s.badRequest(c, "invalid triage case", err)
		return
	}

	result, err := s.triage.Evaluate(&triageCase)
	if err != nil {
		s.internalError(c, "triage evaluation failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleCaseEvaluate runs staging, treatment and adjuvant selection.
func (s *Server) handleCaseEvaluate(c *gin.Context) {
	var cancerCase domain.CancerCase
	if err := c.ShouldBindJSON(&cancerCase); err != nil {
		s.badRequest(c, "invalid cancer case", err)
		return
	}

	results, err := s.evaluator.Evaluate(&cancerCase)
	if err != nil {
		s.badRequest(c, "case evaluation failed", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// handleListRules returns the registered rule module names.
func (s *Server) handleListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modules": s.triage.Engine().ModuleNames(),
	})
}

// handleGetRuleModule exports one rule module document.
func (s *Server) handleGetRuleModule(c *gin.Context) {
	name := c.Param("module")
	module, ok := s.triage.Engine().Module(name)
	if !ok {
		c.JSON(http.StatusNotFound, domain.NewAPIError(
			domain.ErrInvalidInput,
			fmt.Sprintf("unknown rule module %q", name),
			"",
			c.GetString("correlation_id"),
		))
		return
	}
	c.JSON(http.StatusOK, module)
}

// saveCaseRequest is the persistence payload. Payload and results are kept
// verbatim so the stored record reproduces exactly what the clinician saw.
type saveCaseRequest struct {
	Kind        casestore.CaseKind `json:"kind" binding:"required"`
	Guideline   string             `json:"guideline,omitempty"`
	Disposition string             `json:"disposition,omitempty"`
	Payload     json.RawMessage    `json:"payload" binding:"required"`
	Results     json.RawMessage    `json:"results" binding:"required"`
	Notes       string             `json:"notes,omitempty"`
	ID          string             `json:"id,omitempty"`
}

// handleSaveCase persists an evaluated case.
func (s *Server) handleSaveCase(c *gin.Context) {
	var req saveCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid case record", err)
		return
	}
	if !req.Kind.IsValid() {
		s.badRequest(c, fmt.Sprintf("invalid case kind %q", req.Kind), nil)
		return
	}

	record := &casestore.Record{
		ID:          req.ID,
		Kind:        req.Kind,
		Guideline:   req.Guideline,
		Disposition: req.Disposition,
		Payload:     req.Payload,
		Results:     req.Results,
		Notes:       req.Notes,
	}
	if err := s.store.Save(c.Request.Context(), record); err != nil {
		s.internalError(c, "failed to save case", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// handleListCases returns saved cases newest first.
func (s *Server) handleListCases(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	kind := casestore.CaseKind(c.Query("kind"))
	if kind != "" && !kind.IsValid() {
		s.badRequest(c, fmt.Sprintf("invalid case kind %q", kind), nil)
		return
	}

	records, err := s.store.List(c.Request.Context(), kind, limit, offset)
	if err != nil {
		s.internalError(c, "failed to list cases", err)
		return
	}
	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to count cases", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   count,
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetCase returns one saved case by ID.
func (s *Server) handleGetCase(c *gin.Context) {
	record, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, "failed to load case", err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, domain.NewAPIError(
			domain.ErrInvalidInput,
			"case not found",
			"",
			c.GetString("correlation_id"),
		))
		return
	}
	c.JSON(http.StatusOK, record)
}

// handleExportCases streams the full case history as a JSON document.
func (s *Server) handleExportCases(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="cases-export.json"`)
	if err := s.store.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("failed to export cases")
	}
}

// handleImportCases loads a previously exported case document. Existing
// record IDs are skipped rather than overwritten.
func (s *Server) handleImportCases(c *gin.Context) {
	imported, skipped, err := s.store.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.badRequest(c, "invalid export document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}

// handleDeleteCase removes a saved case.
func (s *Server) handleDeleteCase(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.internalError(c, "failed to delete case", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) badRequest(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, message, details, c.GetString("correlation_id")))
}

func (s *Server) internalError(c *gin.Context, message string, err error) {
	s.logger.WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, domain.NewAPIError(
		domain.ErrInternalServer, message, err.Error(), c.GetString("correlation_id")))
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
