package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "rbac-admin-"
	fileSuffix = ".log"
	dateLayout = "2006-01-02"
)

// RotatingFile 按天轮转的日志文件，实现 zapcore.WriteSyncer
type RotatingFile struct {
	logDir  string
	maxDays int
	now     func() time.Time

	mu          sync.Mutex
	file        *os.File
	currentDate string
}

func NewRotatingFile(logDir string, maxDays int) (*RotatingFile, error) {
	// 创建日志目录
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	r := &RotatingFile{
		logDir:  logDir,
		maxDays: maxDays,
		now:     time.Now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.rotateLocked(); err != nil {
		return nil, err
	}

	return r, nil
}

// Write 写入前检查日期，跨天时切换文件并清理过期文件
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.now().Format(dateLayout) != r.currentDate {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
		r.cleanup()
	}

	return r.file.Write(p)
}

func (r *RotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) rotateLocked() error {
	today := r.now().Format(dateLayout)

	// 如果日期没变，不需要轮转
	if r.currentDate == today && r.file != nil {
		return nil
	}

	// 关闭旧文件
	if r.file != nil {
		r.file.Close()
	}

	logFile := filepath.Join(r.logDir, filePrefix+today+fileSuffix)
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("创建日志文件失败: %w", err)
	}

	r.file = file
	r.currentDate = today
	return nil
}

// cleanup 删除超过 maxDays 的日志文件，maxDays <= 0 时保留全部
func (r *RotatingFile) cleanup() int {
	if r.maxDays <= 0 {
		return 0
	}

	files, err := filepath.Glob(filepath.Join(r.logDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return 0
	}

	cutoff := r.now().AddDate(0, 0, -r.maxDays)
	deleted := 0

	for _, file := range files {
		// 从文件名提取日期
		dateStr := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), filePrefix), fileSuffix)
		fileDate, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			if err := os.Remove(file); err == nil {
				deleted++
			}
		}
	}

	return deleted
}

// Files 返回现有日志文件，按日期倒序
func (r *RotatingFile) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.logDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i] > files[j]
	})

	return files, nil
}
