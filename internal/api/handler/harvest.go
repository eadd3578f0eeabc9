package handler

import (
	"net/http"
	"strconv"

	"github.com/consortial/counterharvest/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// defaultListLimit bounds list responses when the client does not pass one.
const defaultListLimit = 100

// HarvestHandler serves read-only harvest state for one-or-more tenants.
// The tenant is selected per request by consortium key.
type HarvestHandler struct {
	tenants *repository.TenantManager
}

// NewHarvestHandler creates a harvest handler.
func NewHarvestHandler(tenants *repository.TenantManager) *HarvestHandler {
	return &HarvestHandler{tenants: tenants}
}

func (h *HarvestHandler) store(c *gin.Context) (*repository.TenantStore, bool) {
	key := c.Query("tenant")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant query parameter is required"})
		return nil, false
	}
	store, err := h.tenants.Store(key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
		return nil, false
	}
	return store, true
}

// ListHarvests handles GET /api/v1/harvests.
func (h *HarvestHandler) ListHarvests(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	logs, err := store.ListIngests(c.Request.Context(), repository.IngestFilter{
		Status:    c.Query("status"),
		YearMonth: c.Query("yearmon"),
		Limit:     limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list harvests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"harvests": logs,
		"count":    len(logs),
	})
}

// GetHarvest handles GET /api/v1/harvests/:id and includes the failure
// audit trail of the ingest.
func (h *HarvestHandler) GetHarvest(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid harvest ID"})
		return
	}

	ing, err := store.IngestByID(c.Request.Context(), uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "harvest not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load harvest"})
		return
	}

	failed, err := store.FailedForIngest(c.Request.Context(), ing.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load failure trail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"harvest":         ing,
		"failed_attempts": failed,
	})
}
