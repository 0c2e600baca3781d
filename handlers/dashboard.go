package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rbac-admin/services"
)

type DashboardHandler struct {
	stats *services.StatisticsService
	logs  *services.OperationLogService
}

func NewDashboardHandler(stats *services.StatisticsService, logs *services.OperationLogService) *DashboardHandler {
	return &DashboardHandler{stats: stats, logs: logs}
}

// GetStatistics 仪表盘统计
func (h *DashboardHandler) GetStatistics(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", stats)
}

// GetOperationLogs 操作日志列表
func (h *DashboardHandler) GetOperationLogs(c *gin.Context) {
	page, limit := pageParams(c)

	result, err := h.logs.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", result)
}
