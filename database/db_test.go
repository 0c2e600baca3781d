package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"rbac-admin/models"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Seed(db, plainHasher{}, "pw"))
	require.NoError(t, Seed(db, plainHasher{}, "other"))

	var permCount, roleCount, userCount, linkCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permCount).Error)
	require.NoError(t, db.Model(&models.Role{}).Count(&roleCount).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&linkCount).Error)

	assert.EqualValues(t, len(defaultPermissions), permCount)
	assert.EqualValues(t, 2, roleCount)
	assert.EqualValues(t, 1, userCount)
	assert.EqualValues(t, len(defaultPermissions)+1, linkCount)

	var admin models.User
	require.NoError(t, db.Preload("UserRoles.Role.RolePermissions.Permission").First(&admin, "username = ?", "admin").Error)
	assert.Equal(t, "hashed:pw", admin.Password)
	require.Len(t, admin.UserRoles, 1)
	assert.Equal(t, "admin", admin.UserRoles[0].Role.Code)
	assert.Len(t, admin.UserRoles[0].Role.RolePermissions, len(defaultPermissions))
}

func TestPermissionCodeDerivedFromResourceAction(t *testing.T) {
	db := openTestDB(t)

	p := models.Permission{Resource: "report", Action: "export"}
	require.NoError(t, db.Create(&p).Error)
	assert.Equal(t, "report:export", p.Code)
	assert.NotEmpty(t, p.ID)

	dup := models.Permission{Resource: "report", Action: "export", Code: "other"}
	assert.Error(t, db.Create(&dup).Error, "resource/action must be unique")
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 3}, {Version: 1}, {Version: 2}}

	pending := pendingMigrations(all, map[int]bool{2: true})
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Version)
	assert.Equal(t, 3, pending[1].Version)

	assert.Empty(t, pendingMigrations(all, map[int]bool{1: true, 2: true, 3: true}))
	assert.Equal(t, 3, all[0].Version, "input must not be reordered")
}

func TestMigrationsDefineSQL(t *testing.T) {
	seen := map[int]bool{}
	for _, m := range migrations {
		assert.NotEmpty(t, m.SQL, "v%d", m.Version)
		assert.False(t, seen[m.Version], "duplicate version %d", m.Version)
		seen[m.Version] = true
	}

	// 空 SQL 在访问连接前就返回错误
	err := executeMigration(context.Background(), nil, Migration{Version: 9})
	assert.Error(t, err)
}
