package services

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbac-admin/config"
	"rbac-admin/models"
)

const (
	BackupTriggerSchedule = "schedule"
	BackupTriggerManual   = "manual"
)

var (
	ErrBackupUnsupported = errors.New("仅 SQLite 数据库支持备份")
	ErrBackupRunning     = errors.New("已有备份任务正在执行")
)

// BackupPage 备份历史分页结果
type BackupPage struct {
	Data       []models.BackupHistory `json:"data"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"totalPages"`
}

type DatabaseBackupService struct {
	db      *gorm.DB
	cfg     *config.StorageConfig
	objects ObjectStore // 未启用 S3 时为 nil
	cron    *cron.Cron
	l       *zap.Logger
	now     func() time.Time

	running sync.Mutex
}

func NewDatabaseBackupService(db *gorm.DB, cfg *config.StorageConfig, objects ObjectStore, l *zap.Logger) *DatabaseBackupService {
	return &DatabaseBackupService{
		db:      db,
		cfg:     cfg,
		objects: objects,
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
		l:       l,
		now:     time.Now,
	}
}

// Supported 只有 SQLite 可以直接快照
func (s *DatabaseBackupService) Supported() bool {
	return s.db.Dialector.Name() == "sqlite"
}

// Start 按配置的 cron 表达式启动定时备份
func (s *DatabaseBackupService) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	if !s.Supported() {
		s.l.Warn("scheduled backup disabled", zap.Error(ErrBackupUnsupported))
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunNow(context.Background(), BackupTriggerSchedule); err != nil {
			s.l.Error("scheduled backup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	s.cron.Start()
	s.l.Info("backup scheduled", zap.String("schedule", s.cfg.Schedule), zap.String("storage", s.cfg.Type))
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (s *DatabaseBackupService) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow 同步执行一次备份，返回历史记录
func (s *DatabaseBackupService) RunNow(ctx context.Context, trigger string) (*models.BackupHistory, error) {
	if !s.Supported() {
		return nil, ErrBackupUnsupported
	}
	if !s.running.TryLock() {
		return nil, ErrBackupRunning
	}
	defer s.running.Unlock()

	history := &models.BackupHistory{
		Trigger:   trigger,
		Status:    models.BackupStatusRunning,
		StartedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(history).Error; err != nil {
		return nil, fmt.Errorf("failed to create backup history: %w", err)
	}

	backupErr := s.performBackup(ctx, history)

	completed := s.now()
	history.CompletedAt = &completed
	history.Duration = int64(completed.Sub(history.StartedAt).Seconds())
	if backupErr != nil {
		history.Status = models.BackupStatusFailed
		history.ErrorMessage = backupErr.Error()
	} else {
		history.Status = models.BackupStatusSuccess
	}

	if err := s.db.WithContext(ctx).Save(history).Error; err != nil {
		s.l.Error("failed to save backup history", zap.Uint("id", history.ID), zap.Error(err))
	}

	if backupErr != nil {
		s.l.Error("backup failed", zap.String("trigger", trigger), zap.Error(backupErr))
		return history, backupErr
	}

	s.l.Info("backup completed",
		zap.String("file", history.FileName),
		zap.Int64("size", history.FileSize),
		zap.String("trigger", trigger),
	)

	if removed := s.cleanupExpiredBackups(ctx); removed > 0 {
		s.l.Info("expired backups removed", zap.Int("count", removed))
	}

	return history, nil
}

func (s *DatabaseBackupService) performBackup(ctx context.Context, history *models.BackupHistory) error {
	timestamp := s.now().Format("20060102_150405")
	history.FileName = fmt.Sprintf("rbac_backup_%s.db.zip", timestamp)

	tempDir, err := os.MkdirTemp("", "rbac-backup-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	snapshot := filepath.Join(tempDir, "rbac.db")
	if err := s.snapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	data, err := compressFile(snapshot, history)
	if err != nil {
		return err
	}
	history.FileSize = int64(len(data))

	// 保存到本地（如果配置了本地路径）
	if s.cfg.LocalPath != "" {
		if err := s.saveToLocal(data, history); err != nil {
			return fmt.Errorf("failed to save locally: %w", err)
		}
	}

	// 上传到S3（如果启用）
	if s.objects != nil {
		key := fmt.Sprintf("%s/%s", strings.TrimSuffix(s.cfg.S3Prefix, "/"), history.FileName)
		if err := s.objects.Upload(ctx, key, data); err != nil {
			return err
		}
		history.S3Key = key
		history.S3Bucket = s.objects.Bucket()
	}

	return nil
}

// snapshot 使用 VACUUM INTO 生成一致的数据库副本，WAL 模式下不阻塞写入
func (s *DatabaseBackupService) snapshot(ctx context.Context, path string) error {
	return s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error
}

// compressFile 将文件压缩为 zip，返回压缩后的内容
func compressFile(path string, history *models.BackupHistory) ([]byte, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer src.Close()

	if stat, err := src.Stat(); err == nil {
		history.DatabaseSize = stat.Size()
	}

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	writer, err := zipWriter.Create(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create zip entry: %w", err)
	}
	if _, err := io.Copy(writer, src); err != nil {
		return nil, fmt.Errorf("failed to write to zip: %w", err)
	}
	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip: %w", err)
	}

	// 计算压缩比
	if history.DatabaseSize > 0 {
		history.CompressionRatio = float64(buf.Len()) / float64(history.DatabaseSize)
	}

	return buf.Bytes(), nil
}

func (s *DatabaseBackupService) saveToLocal(data []byte, history *models.BackupHistory) error {
	if err := os.MkdirAll(s.cfg.LocalPath, 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}

	dstPath := filepath.Join(s.cfg.LocalPath, history.FileName)
	if err := os.WriteFile(dstPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	history.FilePath = dstPath
	return nil
}

// cleanupExpiredBackups 清理过期备份，保留天数为 0 表示永久保留
func (s *DatabaseBackupService) cleanupExpiredBackups(ctx context.Context) int {
	if s.cfg.RetentionDays <= 0 {
		return 0
	}
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)

	var expired []models.BackupHistory
	if err := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&expired).Error; err != nil {
		s.l.Warn("failed to load expired backups", zap.Error(err))
		return 0
	}

	removed := 0
	for _, backup := range expired {
		if backup.S3Key != "" && s.objects != nil {
			if err := s.objects.Delete(ctx, backup.S3Key); err != nil {
				s.l.Warn("failed to delete S3 backup", zap.String("key", backup.S3Key), zap.Error(err))
				continue
			}
		}
		if backup.FilePath != "" {
			if err := os.Remove(backup.FilePath); err != nil && !os.IsNotExist(err) {
				s.l.Warn("failed to delete local backup", zap.String("path", backup.FilePath), zap.Error(err))
			}
		}
		if err := s.db.WithContext(ctx).Delete(&backup).Error; err != nil {
			s.l.Warn("failed to delete backup history", zap.Uint("id", backup.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed
}

func (s *DatabaseBackupService) List(ctx context.Context, page, limit int) (*BackupPage, error) {
	page, limit = NormalizePage(page, limit)

	var (
		items []models.BackupHistory
		total int64
	)
	query := s.db.WithContext(ctx).Model(&models.BackupHistory{})
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count backups: %w", err)
	}
	if err := query.Order("created_at DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if items == nil {
		items = []models.BackupHistory{}
	}

	return &BackupPage{
		Data:       items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}
