package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/entity"
	"github.com/Taverna-Hub/Projeto-AVD/internal/domain/usecase"
)

type SyncUseCase interface {
	SyncOnce(ctx context.Context, experiments []string) entity.CycleSummary
	Start(experiments []string, interval time.Duration) error
	Stop() bool
	Running() bool
	Status() usecase.SyncStatus
	CachedDevices() []entity.Device
	ClearCaches()
}

// OutcomeReader serves the audit log; nil disables the endpoint.
type OutcomeReader interface {
	RecentOutcomes(ctx context.Context, limit int) ([]entity.RunOutcome, error)
}

// CycleReader serves the last cycle summary; nil disables that field.
type CycleReader interface {
	LastCycle(ctx context.Context) (*entity.CycleSummary, error)
}

type SyncHandler struct {
	UseCase            SyncUseCase
	Outcomes           OutcomeReader
	Cycles             CycleReader
	DefaultExperiments []string
	DefaultInterval    time.Duration
}

func NewSyncHandler(uc SyncUseCase, outcomes OutcomeReader, cycles CycleReader, experiments []string, interval time.Duration) *SyncHandler {
	return &SyncHandler{
		UseCase:            uc,
		Outcomes:           outcomes,
		Cycles:             cycles,
		DefaultExperiments: experiments,
		DefaultInterval:    interval,
	}
}

func (h *SyncHandler) Register(group *gin.RouterGroup) {
	group.POST("/sync/start", h.StartSync)
	group.POST("/sync/stop", h.StopSync)
	group.POST("/sync/now", h.SyncNow)
	group.GET("/sync/status", h.GetStatus)
	group.GET("/sync/devices", h.ListDevices)
	group.GET("/sync/outcomes", h.ListOutcomes)
	group.DELETE("/sync/cache", h.ClearCache)
}

type startRequest struct {
	ExperimentNames  []string `json:"experiment_names"`
	CheckIntervalSec int      `json:"check_interval"`
}

func (h *SyncHandler) StartSync(c *gin.Context) {
	var req startRequest
	// An empty body means "use the configured defaults".
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	experiments := req.ExperimentNames
	if len(experiments) == 0 {
		experiments = h.DefaultExperiments
	}
	interval := h.DefaultInterval
	if req.CheckIntervalSec > 0 {
		interval = time.Duration(req.CheckIntervalSec) * time.Second
	}

	if err := h.UseCase.Start(experiments, interval); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "running": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":          true,
		"experiment_names": experiments,
		"check_interval":   int(interval.Seconds()),
	})
}

func (h *SyncHandler) StopSync(c *gin.Context) {
	if !h.UseCase.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "sync loop is not running", "running": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": false, "message": "stop requested"})
}

type syncNowRequest struct {
	ExperimentNames []string `json:"experiment_names"`
}

func (h *SyncHandler) SyncNow(c *gin.Context) {
	var req syncNowRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	experiments := req.ExperimentNames
	if len(experiments) == 0 {
		experiments = h.DefaultExperiments
	}

	summary := h.UseCase.SyncOnce(c.Request.Context(), experiments)
	c.JSON(http.StatusOK, summary)
}

func (h *SyncHandler) GetStatus(c *gin.Context) {
	status := h.UseCase.Status()
	response := gin.H{
		"running":           status.Running,
		"checkpoints":       status.Checkpoints,
		"device_cache_size": status.DeviceCacheSize,
	}

	if h.Cycles != nil {
		if cycle, err := h.Cycles.LastCycle(c.Request.Context()); err == nil && cycle != nil {
			response["last_cycle"] = cycle
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *SyncHandler) ListDevices(c *gin.Context) {
	devices := h.UseCase.CachedDevices()

	out := make([]gin.H, 0, len(devices))
	for _, device := range devices {
		out = append(out, gin.H{
			"id":    device.ID,
			"name":  device.Name,
			"token": maskToken(device.Token),
		})
	}
	c.JSON(http.StatusOK, gin.H{"devices": out, "total": len(out)})
}

func (h *SyncHandler) ListOutcomes(c *gin.Context) {
	if h.Outcomes == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "outcome log not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	outcomes, err := h.Outcomes.RecentOutcomes(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes, "total": len(outcomes)})
}

func (h *SyncHandler) ClearCache(c *gin.Context) {
	h.UseCase.ClearCaches()
	c.JSON(http.StatusOK, gin.H{"message": "device cache and checkpoints cleared"})
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
