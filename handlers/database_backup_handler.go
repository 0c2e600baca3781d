package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rbac-admin/services"
)

type DatabaseBackupHandler struct {
	backupService *services.DatabaseBackupService
}

func NewDatabaseBackupHandler(backupService *services.DatabaseBackupService) *DatabaseBackupHandler {
	return &DatabaseBackupHandler{backupService: backupService}
}

// ManualBackup 手动触发备份
// @Summary 手动触发备份
// @Tags DatabaseBackup
// @Produce json
// @Success 201 {object} models.BackupHistory
// @Router /api/backups [post]
func (h *DatabaseBackupHandler) ManualBackup(c *gin.Context) {
	history, err := h.backupService.RunNow(c.Request.Context(), services.BackupTriggerManual)
	switch {
	case errors.Is(err, services.ErrBackupUnsupported):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    "backup_unsupported",
			"message": err.Error(),
		})
		return
	case errors.Is(err, services.ErrBackupRunning):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"success": false,
			"code":    "backup_running",
			"message": err.Error(),
		})
		return
	case err != nil && history != nil:
		// 备份失败但已记录历史
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"code":    "backup_failed",
			"message": "备份失败",
			"data":    history,
		})
		return
	case err != nil:
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, "备份成功", history)
}

// GetBackupHistory 备份历史
// @Summary 获取备份历史
// @Tags DatabaseBackup
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Router /api/backups [get]
func (h *DatabaseBackupHandler) GetBackupHistory(c *gin.Context) {
	if !h.backupService.Supported() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"code":    "backup_unsupported",
			"message": services.ErrBackupUnsupported.Error(),
		})
		return
	}

	page, limit := pageParams(c)
	result, err := h.backupService.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", result)
}
