package models

import "time"

// OperationLog 操作日志（审计）
type OperationLog struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index"`
	Method     string    `json:"method" gorm:"type:varchar(10)"`
	Path       string    `json:"path" gorm:"type:varchar(500);index"`
	Params     string    `json:"params" gorm:"type:text"`
	Response   string    `json:"response" gorm:"type:text"`
	StatusCode int       `json:"status_code"`
	IP         string    `json:"ip" gorm:"type:varchar(64)"`
	UserAgent  string    `json:"user_agent" gorm:"type:varchar(500)"`
	Duration   int64     `json:"duration"` // 毫秒
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}
