package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rbac-admin/models"
)

type passwordHasher interface {
	Hash(password string) (string, error)
}

type seedPermission struct {
	Name     string
	Resource string
	Action   string
}

var defaultPermissions = []seedPermission{
	{"创建用户", "user", "create"},
	{"查看用户", "user", "read"},
	{"更新用户", "user", "update"},
	{"删除用户", "user", "delete"},
	{"查看角色", "role", "read"},
	{"分配角色", "role", "assign"},
	{"查看操作日志", "log", "read"},
}

type seedRole struct {
	Name        string
	Code        string
	Description string
	Permissions []string // 为空表示全部权限
}

var defaultRoles = []seedRole{
	{Name: "超级管理员", Code: "admin", Description: "拥有全部权限"},
	{Name: "普通用户", Code: "user", Description: "只读访问", Permissions: []string{"user:read"}},
}

// Seed 初始化权限、角色和管理员账号，重复执行不会产生重复数据
func Seed(db *gorm.DB, hasher passwordHasher, adminPassword string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		perms := make(map[string]models.Permission, len(defaultPermissions))
		for _, sp := range defaultPermissions {
			p := models.Permission{
				Name:     sp.Name,
				Resource: sp.Resource,
				Action:   sp.Action,
				Code:     sp.Resource + ":" + sp.Action,
			}
			if err := tx.Where(models.Permission{Code: p.Code}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
			}
			perms[p.Code] = p
		}

		roleIDs := make(map[string]string, len(defaultRoles))
		for _, sr := range defaultRoles {
			r := models.Role{Name: sr.Name, Code: sr.Code, Description: sr.Description}
			if err := tx.Where(models.Role{Code: r.Code}).FirstOrCreate(&r).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", r.Code, err)
			}
			roleIDs[r.Code] = r.ID

			codes := sr.Permissions
			if len(codes) == 0 {
				for _, sp := range defaultPermissions {
					codes = append(codes, sp.Resource+":"+sp.Action)
				}
			}

			links := make([]models.RolePermission, 0, len(codes))
			for _, code := range codes {
				links = append(links, models.RolePermission{RoleID: r.ID, PermissionID: perms[code].ID})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Permission").Create(&links).Error; err != nil {
				return fmt.Errorf("failed to seed permissions of role %s: %w", r.Code, err)
			}
		}

		// 没有任何用户，添加初始管理员
		var counter int64
		if err := tx.Model(&models.User{}).Count(&counter).Error; err != nil {
			return fmt.Errorf("failed to get user count: %w", err)
		}
		if counter > 0 {
			return nil
		}

		password, err := hasher.Hash(adminPassword)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}

		admin := models.User{
			Username: "admin",
			Email:    "admin@example.com",
			Password: password,
			Nickname: "管理员",
			Status:   models.UserStatusActive,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		if err := tx.Omit("Role").Create(&models.UserRole{UserID: admin.ID, RoleID: roleIDs["admin"]}).Error; err != nil {
			return fmt.Errorf("failed to assign admin role: %w", err)
		}

		return nil
	})
}
