package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rbac-admin/models"
)

// DashboardStatistics 仪表盘统计
type DashboardStatistics struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalRoles       int64 `json:"totalRoles"`
	TotalPermissions int64 `json:"totalPermissions"`
	OperationLogs    int64 `json:"operationLogs"`
}

type StatisticsService struct {
	db   *gorm.DB
	logs *OperationLogService
}

func NewStatisticsService(db *gorm.DB, logs *OperationLogService) *StatisticsService {
	return &StatisticsService{db: db, logs: logs}
}

func (s *StatisticsService) Dashboard(ctx context.Context) (*DashboardStatistics, error) {
	stats := &DashboardStatistics{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Role{}).Count(&stats.TotalRoles).Error; err != nil {
		return nil, fmt.Errorf("count roles: %w", err)
	}
	if err := db.Model(&models.Permission{}).Count(&stats.TotalPermissions).Error; err != nil {
		return nil, fmt.Errorf("count permissions: %w", err)
	}

	count, err := s.logs.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.OperationLogs = count

	return stats, nil
}
