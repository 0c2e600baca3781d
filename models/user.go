package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string     `json:"username" gorm:"uniqueIndex;not null"`
	Email     string     `json:"email" gorm:"uniqueIndex;not null"`
	Password  string     `json:"-" gorm:"not null"` // 哈希后的密码
	Nickname  string     `json:"nickname"`
	Avatar    string     `json:"avatar"`
	Status    string     `json:"status" gorm:"type:varchar(20);default:active;not null"` // active, disabled
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	UserRoles []UserRole `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate 自动生成 UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Roles 返回已预加载的角色
func (u *User) Roles() []Role {
	roles := make([]Role, 0, len(u.UserRoles))
	for _, ur := range u.UserRoles {
		roles = append(roles, ur.Role)
	}
	return roles
}
