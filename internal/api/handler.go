package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/app"
	"github.com/nbyapp/nbyapp/internal/generator"
	"github.com/nbyapp/nbyapp/internal/llm"
	"github.com/nbyapp/nbyapp/internal/metrics"
	"github.com/nbyapp/nbyapp/internal/store"
)

// Handler handles HTTP requests
type Handler struct {
	generator  *generator.Generator
	store      store.Store
	sseManager *SSEManager
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(gen *generator.Generator, st store.Store, sseManager *SSEManager, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		generator:  gen,
		store:      st,
		sseManager: sseManager,
		metrics:    m,
		logger:     logger,
	}
}

// GenerateRequest represents a generate request
type GenerateRequest struct {
	Idea      string `json:"idea" binding:"required"`
	ServiceID string `json:"service_id" binding:"required"`
	ModelID   string `json:"model_id"`
}

// GenerateResponse represents a generate response
type GenerateResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ServiceResponse describes one LLM service and its models
type ServiceResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Icon         string          `json:"icon"`
	DefaultModel string          `json:"default_model"`
	Models       []ModelResponse `json:"models"`
}

// ModelResponse describes one model of a service
type ModelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// HandleListServices returns the service catalog
func (h *Handler) HandleListServices(c *gin.Context) {
	services := h.generator.Registry().Services()
	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		resp := ServiceResponse{
			ID:           svc.ID,
			Name:         svc.DisplayName,
			Icon:         svc.Icon,
			DefaultModel: svc.DefaultModel().ID,
			Models:       make([]ModelResponse, 0, len(svc.Models)),
		}
		for _, m := range svc.Models {
			resp.Models = append(resp.Models, ModelResponse{
				ID:        m.ID,
				Name:      m.DisplayName,
				IsDefault: m.ID == resp.DefaultModel,
			})
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

// HandleGenerate starts a generation in the background
func (h *Handler) HandleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Idea) == "" {
		ErrorResponse(c, http.StatusBadRequest, "idea must not be blank")
		return
	}

	// The generation outlives the request
	ctx := context.WithoutCancel(c.Request.Context())
	err := h.generator.Start(ctx, generator.Request{
		ServiceID: req.ServiceID,
		Idea:      req.Idea,
		ModelID:   req.ModelID,
	}, h.generationDone)

	switch {
	case errors.Is(err, llm.ErrUnknownService):
		ErrorResponse(c, http.StatusBadRequest, "unknown service: "+req.ServiceID)
		return
	case errors.Is(err, generator.ErrBusy):
		ErrorResponse(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, GenerateResponse{
		Status:  "generating",
		JobID:   h.generator.Status().Snapshot().JobID,
		Message: "Generation started",
	})
}

func (h *Handler) generationDone(res *generator.Result, err error) {
	if err != nil {
		h.logger.Info("generation ended without result", zap.Error(err))
		return
	}
	h.logger.Debug("generation finished", zap.String("app_id", res.AppID), zap.String("message", res.Message))
}

// HandleCancel cancels the running generation
func (h *Handler) HandleCancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cancelled": h.generator.Cancel()})
}

// HandleStatus returns the current status snapshot
func (h *Handler) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.generator.Status().Snapshot())
}

// HandleStatusStream handles the SSE status endpoint
func (h *Handler) HandleStatusStream(c *gin.Context) {
	HandleSSE(c, h.sseManager, h.generator.Status())
}

// HandleListApps returns all stored apps, newest first
func (h *Handler) HandleListApps(c *gin.Context) {
	records, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list apps", zap.Error(err))
		ErrorResponse(c, http.StatusInternalServerError, "failed to list apps")
		return
	}
	app.SortNewestFirst(records)
	h.metrics.SetAppsStored(len(records))
	c.JSON(http.StatusOK, records)
}

// HandleGetApp returns one stored app
func (h *Handler) HandleGetApp(c *gin.Context) {
	rec, err := h.store.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "App not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get app", zap.String("app_id", c.Param("id")), zap.Error(err))
		ErrorResponse(c, http.StatusInternalServerError, "failed to get app")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleDeleteApp removes one stored app
func (h *Handler) HandleDeleteApp(c *gin.Context) {
	deleted, err := h.store.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to delete app", zap.String("app_id", c.Param("id")), zap.Error(err))
		ErrorResponse(c, http.StatusInternalServerError, "failed to delete app")
		return
	}
	if !deleted {
		ErrorResponse(c, http.StatusNotFound, "App not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// HandleHealth handles health check
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "nbyapp",
		"generating": h.generator.Busy(),
	})
}

// RouterConfig configures SetupRouter
type RouterConfig struct {
	CORSOrigins []string
	Logger      *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}
	r.Use(corsMiddleware(cfg.CORSOrigins))

	api := r.Group("/api/v1")
	{
		api.GET("/services", handler.HandleListServices)
		api.POST("/generate", handler.HandleGenerate)
		api.POST("/generate/cancel", handler.HandleCancel)
		api.GET("/status", handler.HandleStatus)
		api.GET("/status/stream", handler.HandleStatusStream)
		api.GET("/apps", handler.HandleListApps)
		api.GET("/apps/:id", handler.HandleGetApp)
		api.DELETE("/apps/:id", handler.HandleDeleteApp)
	}

	r.GET("/health", handler.HandleHealth)
	if handler.metrics != nil {
		r.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// ErrorResponse writes a JSON error body
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}
