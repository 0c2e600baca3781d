package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"not null"`
	Code        string    `json:"code" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	RolePermissions []RolePermission `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Permissions 返回已预加载的权限
func (r *Role) Permissions() []Permission {
	perms := make([]Permission, 0, len(r.RolePermissions))
	for _, rp := range r.RolePermissions {
		perms = append(perms, rp.Permission)
	}
	return perms
}

// Permission 由 (resource, action) 唯一确定，Code 为 "resource:action"
type Permission struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null"`
	Resource  string    `json:"resource" gorm:"uniqueIndex:idx_resource_action;not null"`
	Action    string    `json:"action" gorm:"uniqueIndex:idx_resource_action;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Code == "" {
		p.Code = p.Key()
	}
	return nil
}

// Key 返回守卫比较使用的 "resource:action"
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}

type UserRole struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	RoleID    string    `json:"role_id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`

	Role Role `json:"role" gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

type RolePermission struct {
	RoleID       string    `json:"role_id" gorm:"primaryKey;type:varchar(36)"`
	PermissionID string    `json:"permission_id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt    time.Time `json:"created_at"`

	Permission Permission `json:"permission" gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}
