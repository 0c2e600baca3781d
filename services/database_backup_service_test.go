package services

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rbac-admin/config"
	"rbac-admin/models"
)

type memoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (m *memoryObjectStore) Upload(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return nil
}

func (m *memoryObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryObjectStore) Bucket() string { return "test-bucket" }

func TestBackup_RunNow(t *testing.T) {
	env := newTestEnv(t)
	objects := newMemoryObjectStore()
	cfg := &config.StorageConfig{
		LocalPath:     filepath.Join(t.TempDir(), "backups"),
		RetentionDays: 30,
		S3Prefix:      "rbac-backups/",
	}
	svc := NewDatabaseBackupService(env.db, cfg, objects, zap.NewNop())

	history, err := svc.RunNow(context.Background(), BackupTriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.BackupStatusSuccess, history.Status)
	assert.NotNil(t, history.CompletedAt)
	assert.Greater(t, history.DatabaseSize, int64(0))

	// 本地文件是包含数据库快照的 zip
	data, err := os.ReadFile(history.FilePath)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "rbac.db", zr.File[0].Name)

	assert.Equal(t, "rbac-backups/"+history.FileName, history.S3Key)
	assert.Equal(t, "test-bucket", history.S3Bucket)
	assert.Equal(t, data, objects.objects[history.S3Key])

	page, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, history.ID, page.Data[0].ID)
}

func TestBackup_CleanupExpired(t *testing.T) {
	env := newTestEnv(t)
	objects := newMemoryObjectStore()
	dir := t.TempDir()
	cfg := &config.StorageConfig{LocalPath: dir, RetentionDays: 7, S3Prefix: "p"}
	svc := NewDatabaseBackupService(env.db, cfg, objects, zap.NewNop())

	oldFile := filepath.Join(dir, "old.db.zip")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	require.NoError(t, objects.Upload(context.Background(), "p/old.db.zip", []byte("x")))

	old := models.BackupHistory{
		Status:    models.BackupStatusSuccess,
		FilePath:  oldFile,
		S3Key:     "p/old.db.zip",
		CreatedAt: time.Now().AddDate(0, 0, -30),
	}
	require.NoError(t, env.db.Create(&old).Error)

	_, err := svc.RunNow(context.Background(), BackupTriggerManual)
	require.NoError(t, err)

	assert.NoFileExists(t, oldFile)
	assert.NotContains(t, objects.objects, "p/old.db.zip")

	var count int64
	require.NoError(t, env.db.Model(&models.BackupHistory{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBackup_StartDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDatabaseBackupService(env.db, &config.StorageConfig{Enabled: false}, nil, zap.NewNop())
	require.NoError(t, svc.Start())
	svc.Stop()
}

func TestBackup_StartInvalidSchedule(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDatabaseBackupService(env.db, &config.StorageConfig{Enabled: true, Schedule: "not a cron"}, nil, zap.NewNop())
	assert.Error(t, svc.Start())
}
