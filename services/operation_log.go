package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbac-admin/models"
)

// OperationLogRecorder 操作日志存储
type OperationLogRecorder interface {
	Record(ctx context.Context, entry *models.OperationLog) error
	List(ctx context.Context, offset, limit int) ([]models.OperationLog, int64, error)
	Count(ctx context.Context) (int64, error)
	StorageType() string
}

// GormOperationLogSink 默认存储，写入主数据库
type GormOperationLogSink struct {
	db *gorm.DB
}

func NewGormOperationLogSink(db *gorm.DB) *GormOperationLogSink {
	return &GormOperationLogSink{db: db}
}

func (s *GormOperationLogSink) Record(ctx context.Context, entry *models.OperationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("save operation log: %w", err)
	}
	return nil
}

func (s *GormOperationLogSink) List(ctx context.Context, offset, limit int) ([]models.OperationLog, int64, error) {
	var logs []models.OperationLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.OperationLog{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count operation logs: %w", err)
	}
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("list operation logs: %w", err)
	}
	return logs, total, nil
}

func (s *GormOperationLogSink) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.OperationLog{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count operation logs: %w", err)
	}
	return total, nil
}

func (s *GormOperationLogSink) StorageType() string {
	return "database"
}

// OperationLogService 记录失败只打日志，不影响请求
type OperationLogService struct {
	recorder OperationLogRecorder
	l        *zap.Logger
}

func NewOperationLogService(recorder OperationLogRecorder, l *zap.Logger) *OperationLogService {
	return &OperationLogService{recorder: recorder, l: l}
}

func (s *OperationLogService) Record(ctx context.Context, entry *models.OperationLog) {
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.l.Warn("failed to record operation log",
			zap.String("path", entry.Path),
			zap.String("user_id", entry.UserID),
			zap.Error(err),
		)
	}
}

// OperationLogPage 操作日志分页结果
type OperationLogPage struct {
	Data       []models.OperationLog `json:"data"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"totalPages"`
}

func (s *OperationLogService) List(ctx context.Context, page, limit int) (*OperationLogPage, error) {
	page, limit = NormalizePage(page, limit)

	logs, total, err := s.recorder.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.OperationLog{}
	}

	return &OperationLogPage{
		Data:       logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (s *OperationLogService) Count(ctx context.Context) (int64, error) {
	return s.recorder.Count(ctx)
}
