package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRotatingFile_RotatesAndCleansUp(t *testing.T) {
	dir := t.TempDir()

	// 一个过期文件和一个无法解析日期的文件
	stale := filepath.Join(dir, filePrefix+"2020-01-01"+fileSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("old\n"), 0644))
	junk := filepath.Join(dir, filePrefix+"garbage"+fileSuffix)
	require.NoError(t, os.WriteFile(junk, []byte("x\n"), 0644))

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.Local)
	r, err := NewRotatingFile(dir, 7)
	require.NoError(t, err)
	defer r.Close()

	r.now = func() time.Time { return day }
	_, err = r.Write([]byte("first\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = r.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, filePrefix+"2026-03-02"+fileSuffix))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, filePrefix+"2026-03-01"+fileSuffix))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale log should be removed")
	_, err = os.Stat(junk)
	assert.NoError(t, err, "unparseable file must be left alone")

	files, err := r.Files()
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join(dir, filePrefix+"2026-03-02"+fileSuffix))
	assert.NotContains(t, files, stale)
}

func TestNew_WritesToFile(t *testing.T) {
	dir := t.TempDir()

	l, closeFn, err := New(Options{Level: "debug", LogDir: dir, MaxDays: 3})
	require.NoError(t, err)

	l.Info("hello", zap.String("user", "alice"))
	closeFn()

	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"user":"alice"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
