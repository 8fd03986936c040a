package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/slotbook/internal/middleware"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/service"
	"go.uber.org/zap"
)

type MetricsHandler struct {
	metrics *service.MetricsService
	logger  *zap.Logger
}

func NewMetricsHandler(metrics *service.MetricsService, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, logger: logger}
}

// Dashboard handles GET /v1/metrics/dashboard?start=&end=
func (h *MetricsHandler) Dashboard(c *gin.Context) {
	start, ok := optionalTime(c, "start")
	if !ok {
		return
	}
	end, ok := optionalTime(c, "end")
	if !ok {
		return
	}

	dash, err := h.metrics.Dashboard(c.Request.Context(), middleware.GetTenantID(c), models.TimeRange{Start: start, End: end})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
