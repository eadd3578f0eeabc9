package handler

import (
	"net/http"
	"strconv"

	"github.com/consortial/counterharvest/internal/repository"
	"github.com/gin-gonic/gin"
)

// AlertHandler serves the durable records of permanently failed harvests.
type AlertHandler struct {
	tenants *repository.TenantManager
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(tenants *repository.TenantManager) *AlertHandler {
	return &AlertHandler{tenants: tenants}
}

// ListAlerts handles GET /api/v1/alerts.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	key := c.Query("tenant")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant query parameter is required"})
		return
	}
	store, err := h.tenants.Store(key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	alerts, err := store.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
