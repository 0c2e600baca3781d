package models

import (
	"time"
)

const (
	BackupStatusRunning = "running"
	BackupStatusSuccess = "success"
	BackupStatusFailed  = "failed"
)

// BackupHistory 备份历史记录表
type BackupHistory struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Trigger string `gorm:"type:varchar(20)" json:"trigger"` // schedule, manual
	Status  string `gorm:"type:varchar(20)" json:"status"`  // 状态：running, success, failed

	// 文件信息
	FileName string `gorm:"type:varchar(255)" json:"file_name"`
	FileSize int64  `json:"file_size"`
	FilePath string `gorm:"type:varchar(500)" json:"file_path,omitempty"` // 本地文件路径

	// S3信息
	S3Key    string `gorm:"type:varchar(500)" json:"s3_key,omitempty"`
	S3Bucket string `gorm:"type:varchar(255)" json:"s3_bucket,omitempty"`

	// 执行信息
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Duration     int64      `json:"duration,omitempty"` // 执行时长(秒)
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`

	DatabaseSize     int64   `json:"database_size,omitempty"` // 原始数据库大小
	CompressionRatio float64 `json:"compression_ratio,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
