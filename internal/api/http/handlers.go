package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/api/middleware"
	"github.com/GriffinCanCode/fsorch/internal/domain/batch"
	"github.com/GriffinCanCode/fsorch/internal/domain/cache"
	"github.com/GriffinCanCode/fsorch/internal/domain/transaction"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fsorch/internal/service"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
	"github.com/GriffinCanCode/fsorch/internal/shared/types"
	"github.com/GriffinCanCode/fsorch/internal/shared/utils"
)

// Version is reported by the root and health endpoints.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	registry     *service.Registry
	transactions *transaction.Engine
	batches      *batch.Engine
	cache        *cache.OperationCache
	metrics      *monitoring.Metrics
	log          *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	registry *service.Registry,
	transactions *transaction.Engine,
	batches *batch.Engine,
	cache *cache.OperationCache,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		registry:     registry,
		transactions: transactions,
		batches:      batches,
		cache:        cache,
		metrics:      metrics,
		log:          log.Named("http"),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/services", h.ListServices)
	r.POST("/services/discover", h.DiscoverServices)
	r.POST("/services/execute", h.ExecuteService)

	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.GET("/batches", h.ListBatches)
	r.GET("/batches/:id", h.GetBatch)

	r.GET("/metrics/summary", h.MetricsSummary)
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "fsorch",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        Version,
		"uptime_seconds": h.metrics.UptimeSeconds(),
		"services":       h.registry.Stats(),
		"cache":          h.cache.Stats(),
	})
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		cat := types.Category(raw)
		if cat != types.CategoryFilesystem && cat != types.CategorySystem {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + raw})
			return
		}
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// DiscoverRequest is the body of POST /services/discover.
type DiscoverRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// DiscoverServices ranks services against a free-text query
func (h *Handlers) DiscoverServices(c *gin.Context) {
	var req DiscoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateString(req.Query, "query", 1, 1000, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    req.Query,
		"services": h.registry.Discover(req.Query, req.Limit),
	})
}

// ExecuteService executes a service tool. Tool-level failures are
// returned with 200 and success false; only routing and provider faults
// map to error statuses.
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appID := req.AppID
	if appID == nil {
		if header := c.GetHeader(middleware.AppIDHeader); header != "" {
			appID = &header
		}
	}

	var appCtx *types.Context
	if appID != nil {
		if err := utils.ValidateID(*appID, "app_id", true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		appCtx = &types.Context{AppID: appID}
	}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrInvalidToolID):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrServiceNotFound):
			status = http.StatusNotFound
		default:
			h.log.Error("tool execution failed",
				zap.String("tool", req.ToolID),
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.Error(err),
			)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListTransactions lists known transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	list := h.transactions.List()
	c.JSON(http.StatusOK, gin.H{"transactions": list, "count": len(list)})
}

// GetTransaction returns one transaction
func (h *Handlers) GetTransaction(c *gin.Context) {
	raw := c.Param("id")
	if err := utils.ValidateID(raw, "id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactions.Status(id.TransactionID(raw))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ListBatches lists known batches
func (h *Handlers) ListBatches(c *gin.Context) {
	list := h.batches.List()
	c.JSON(http.StatusOK, gin.H{"batches": list, "count": len(list)})
}

// GetBatch returns one batch
func (h *Handlers) GetBatch(c *gin.Context) {
	raw := c.Param("id")
	if err := utils.ValidateID(raw, "id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.batches.Status(id.BatchID(raw))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, batch.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
