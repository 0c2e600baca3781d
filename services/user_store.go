package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rbac-admin/models"
)

// 用户 → 角色 → 权限 的完整预加载路径
const preloadRolePermissions = "UserRoles.Role.RolePermissions.Permission"

// UserStore 凭据存储，查询方法在记录不存在时返回 (nil, nil)
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	ExistsByEmailExcept(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	SetRoles(ctx context.Context, userID string, roleIDs []string) error
	TouchLastLogin(ctx context.Context, id string) error
}

// RoleStore 角色与权限的只读查询
type RoleStore interface {
	FindByCodes(ctx context.Context, codes []string) ([]models.Role, error)
	ListWithPermissions(ctx context.Context) ([]models.Role, error)
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload(preloadRolePermissions).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	return found(&user, err)
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload(preloadRolePermissions).
		First(&user, "id = ?", id).Error
	return found(&user, err)
}

func (s *GormUserStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (s *GormUserStore) ExistsByEmailExcept(ctx context.Context, email, excludeID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// Create 唯一索引冲突返回 ErrConflict，并发注册时由数据库兜底
func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormUserStore) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormUserStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("delete user roles: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func (s *GormUserStore) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	if err := query.Preload("UserRoles.Role").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

// SetRoles 整体替换用户的角色
func (s *GormUserStore) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if count == 0 {
			return ErrUserNotFound
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		if len(roleIDs) == 0 {
			return nil
		}

		rows := make([]models.UserRole, 0, len(roleIDs))
		for _, roleID := range roleIDs {
			rows = append(rows, models.UserRole{UserID: userID, RoleID: roleID})
		}
		if err := tx.Omit("Role").Create(&rows).Error; err != nil {
			return fmt.Errorf("assign user roles: %w", err)
		}
		return nil
	})
}

func (s *GormUserStore) TouchLastLogin(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", time.Now()).Error
}

type GormRoleStore struct {
	db *gorm.DB
}

func NewGormRoleStore(db *gorm.DB) *GormRoleStore {
	return &GormRoleStore{db: db}
}

func (s *GormRoleStore) FindByCodes(ctx context.Context, codes []string) ([]models.Role, error) {
	var roles []models.Role
	if len(codes) == 0 {
		return roles, nil
	}
	if err := s.db.WithContext(ctx).Where("code IN ?", codes).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("find roles: %w", err)
	}
	return roles, nil
}

func (s *GormRoleStore) ListWithPermissions(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).
		Preload("RolePermissions.Permission").
		Order("code").
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func found(user *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
