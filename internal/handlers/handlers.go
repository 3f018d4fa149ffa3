package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DextroByt/Sentinel-AI/internal/store"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

// AdhocRunner starts a background verification for one analysis record.
type AdhocRunner interface {
	RunAdhoc(ctx context.Context, analysisID uuid.UUID, queryText string)
}

// TaskSpawner matches the supervisor's supervised task set.
type TaskSpawner interface {
	Spawn(name string, fn func(ctx context.Context))
}

// Handlers serves the read API over monitored state plus the ad-hoc
// analysis entry point.
type Handlers struct {
	crises        store.CrisisStore
	timeline      store.TimelineStore
	notifications store.NotificationStore
	analyses      store.AnalysisStore
	runner        AdhocRunner
	spawner       TaskSpawner
	logger        logging.Logger
}

type Config struct {
	Crises        store.CrisisStore
	Timeline      store.TimelineStore
	Notifications store.NotificationStore
	Analyses      store.AnalysisStore
	Runner        AdhocRunner
	Spawner       TaskSpawner
	Logger        logging.Logger
}

func New(cfg Config) *Handlers {
	return &Handlers{
		crises:        cfg.Crises,
		timeline:      cfg.Timeline,
		notifications: cfg.Notifications,
		analyses:      cfg.Analyses,
		runner:        cfg.Runner,
		spawner:       cfg.Spawner,
		logger:        cfg.Logger,
	}
}

// Register mounts every route on the router.
func (h *Handlers) Register(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.GET("/crises", h.ListCrises)
	api.GET("/crises/:id", h.GetCrisis)
	api.GET("/crises/:id/timeline", h.GetTimeline)
	api.GET("/notifications/latest", h.LatestNotification)
	api.POST("/analyze", h.SubmitAnalysis)
	api.GET("/analyze/:id", h.GetAnalysis)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handlers) ListCrises(c *gin.Context) {
	crises, err := h.crises.List(c.Request.Context(), 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list crises")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list crises"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"crises": crisesJSON(crises)})
}

func (h *Handlers) GetCrisis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid crisis id"})
		return
	}
	crisis, err := h.crises.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load crisis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load crisis"})
		return
	}
	if crisis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "crisis not found"})
		return
	}
	c.JSON(http.StatusOK, crisisJSON(*crisis))
}

func (h *Handlers) GetTimeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid crisis id"})
		return
	}
	items, err := h.timeline.ListForCrisis(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load timeline")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load timeline"})
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":         item.ID,
			"claim_text": item.ClaimText,
			"summary":    item.Summary,
			"status":     item.Status,
			"location":   item.Location,
			"sources":    item.Sources,
			"confidence": item.Confidence,
			"reasoning":  item.Reasoning,
			"timestamp":  item.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"timeline": out})
}

func (h *Handlers) LatestNotification(c *gin.Context) {
	note, err := h.notifications.GetLatest(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notification"})
		return
	}
	if note == nil {
		c.JSON(http.StatusOK, gin.H{"notification": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": gin.H{
		"id":         note.ID,
		"content":    note.Content,
		"type":       note.Type,
		"crisis_id":  note.CrisisID,
		"created_at": note.CreatedAt,
	}})
}

type analyzeRequest struct {
	Query string `json:"query" binding:"required"`
}

// SubmitAnalysis accepts a user claim, records it PENDING, and hands
// verification to the supervised background set. The response carries the
// id the caller polls.
func (h *Handlers) SubmitAnalysis(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	query := strings.TrimSpace(req.Query)

	analysis, err := h.analyses.Create(c.Request.Context(), query)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create analysis"})
		return
	}

	h.spawner.Spawn("adhoc-analysis:"+analysis.ID.String(), func(ctx context.Context) {
		h.runner.RunAdhoc(ctx, analysis.ID, query)
	})

	c.JSON(http.StatusAccepted, gin.H{"id": analysis.ID, "status": analysis.Status})
}

func (h *Handlers) GetAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis id"})
		return
	}
	analysis, err := h.analyses.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analysis"})
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              analysis.ID,
		"query":           analysis.QueryText,
		"status":          analysis.Status,
		"verdict_status":  analysis.VerdictStatus,
		"verdict_summary": analysis.VerdictSummary,
		"sources":         analysis.Sources,
		"confidence":      analysis.Confidence,
		"reasoning":       analysis.Reasoning,
		"created_at":      analysis.CreatedAt,
	})
}

func crisisJSON(c store.Crisis) gin.H {
	return gin.H{
		"id":              c.ID,
		"name":            c.Name,
		"description":     c.Description,
		"keywords":        c.Keywords,
		"severity":        c.Severity,
		"location":        c.Location,
		"verdict_status":  c.VerdictStatus,
		"verdict_summary": c.VerdictSummary,
		"created_at":      c.CreatedAt,
		"updated_at":      c.UpdatedAt,
	}
}

func crisesJSON(crises []store.Crisis) []gin.H {
	out := make([]gin.H, 0, len(crises))
	for _, c := range crises {
		out = append(out, crisisJSON(c))
	}
	return out
}
