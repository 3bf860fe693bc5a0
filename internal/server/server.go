package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"bggsync/internal/config"
	"bggsync/internal/pipeline"
	"bggsync/internal/storage"
)

// Handler owns the run trigger endpoints. Runs are synchronous and one at a
// time: the platform mutations make a second concurrent run unsafe.
type Handler struct {
	cfg config.Config
	db  *storage.DB

	mu      sync.Mutex
	running bool
}

func NewHandler(db *storage.DB, cfg config.Config) *Handler {
	return &Handler{cfg: cfg, db: db}
}

func SetupRouter(db *storage.DB, cfg config.Config) *gin.Engine {
	handler := NewHandler(db, cfg)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handler.Health)
	router.POST("/push", handler.Push)
	router.GET("/runs", handler.Runs)

	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Push triggers a full reconciliation run and reports its counts.
func (h *Handler) Push(c *gin.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	h.running = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	svc := pipeline.NewRunService(h.db, h.cfg)
	result, err := svc.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"traceId": result.TraceID,
		"dryRun":  h.cfg.DryRun,
		"counts": gin.H{
			"fetched":  result.Counts.Fetched,
			"skipped":  result.Counts.Skipped,
			"assigned": result.Counts.Assigned,
			"tagged":   result.Counts.Tagged,
			"matched":  result.Counts.Matched,
			"failed":   result.Counts.Failed,
		},
	})
}

func (h *Handler) Runs(c *gin.Context) {
	runs, err := h.db.ListRecentRuns(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
