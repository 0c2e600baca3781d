package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"rbac-admin/models"
)

var ErrSinkClosed = errors.New("operation log sink closed")

// batchSender 批量写入接口
type batchSender interface {
	SendBatch(ctx context.Context, entries []models.OperationLog) error
}

// clickHouseBatchSender 使用 PrepareBatch 写入 operation_log 表
type clickHouseBatchSender struct {
	conn driver.Conn
}

func (s *clickHouseBatchSender) SendBatch(ctx context.Context, entries []models.OperationLog) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx,
		`INSERT INTO operation_log (
            created_at, user_id, method, path, params, response,
            status_code, ip, user_agent, duration_ms
        )`)
	if err != nil {
		return err
	}

	for _, e := range entries {
		err := batch.Append(
			e.CreatedAt,
			e.UserID,
			e.Method,
			e.Path,
			e.Params,
			e.Response,
			uint16(e.StatusCode),
			e.IP,
			e.UserAgent,
			uint32(e.Duration),
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// ClickHouseOperationLogSink 缓冲后批量写入 ClickHouse
type ClickHouseOperationLogSink struct {
	conn      driver.Conn
	sender    batchSender
	batchSize int
	interval  time.Duration
	l         *zap.Logger

	mu      sync.Mutex
	buffer  []models.OperationLog
	dropped int64
	started bool
	closed  bool

	stop chan struct{}
	done chan struct{}
}

func NewClickHouseOperationLogSink(conn driver.Conn, l *zap.Logger) *ClickHouseOperationLogSink {
	s := newBufferedSink(&clickHouseBatchSender{conn: conn}, 500, 5*time.Second, l)
	s.conn = conn
	return s
}

func newBufferedSink(sender batchSender, batchSize int, interval time.Duration, l *zap.Logger) *ClickHouseOperationLogSink {
	return &ClickHouseOperationLogSink{
		sender:    sender,
		batchSize: batchSize,
		interval:  interval,
		l:         l,
		buffer:    make([]models.OperationLog, 0, batchSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start 启动定时刷新
func (s *ClickHouseOperationLogSink) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				s.flush()
				return
			case <-ticker.C:
				s.flush()
			}
		}
	}()
}

// Close 刷新剩余数据后退出，之后的 Record 返回 ErrSinkClosed
func (s *ClickHouseOperationLogSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if !started {
		s.flush()
		return
	}
	close(s.stop)
	<-s.done
}

func (s *ClickHouseOperationLogSink) Record(_ context.Context, entry *models.OperationLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if s.closed {
		s.dropped++
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.buffer = append(s.buffer, *entry)
	full := len(s.buffer) >= s.batchSize
	s.mu.Unlock()

	// 缓冲区满了就刷新
	if full {
		s.flush()
	}
	return nil
}

func (s *ClickHouseOperationLogSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	pending := make([]models.OperationLog, len(s.buffer))
	copy(pending, s.buffer)
	s.buffer = s.buffer[:0]
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.sender.SendBatch(ctx, pending); err != nil {
		s.mu.Lock()
		s.dropped += int64(len(pending))
		s.mu.Unlock()
		s.l.Error("failed to send operation logs to clickhouse", zap.Int("count", len(pending)), zap.Error(err))
		return
	}
	s.l.Debug("operation logs sent to clickhouse", zap.Int("count", len(pending)), zap.Duration("took", time.Since(start)))
}

// Dropped 发送失败而丢弃的记录数
func (s *ClickHouseOperationLogSink) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *ClickHouseOperationLogSink) List(ctx context.Context, offset, limit int) ([]models.OperationLog, int64, error) {
	var total uint64
	if err := s.conn.QueryRow(ctx, "SELECT count() FROM operation_log").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count operation logs: %w", err)
	}

	rows, err := s.conn.Query(ctx, `
        SELECT created_at, user_id, method, path, params, response,
               status_code, ip, user_agent, duration_ms
        FROM operation_log
        ORDER BY created_at DESC
        LIMIT ? OFFSET ?`, uint64(limit), uint64(offset))
	if err != nil {
		return nil, 0, fmt.Errorf("query operation logs: %w", err)
	}
	defer rows.Close()

	var logs []models.OperationLog
	for rows.Next() {
		var (
			e          models.OperationLog
			statusCode uint16
			duration   uint32
		)
		if err := rows.Scan(&e.CreatedAt, &e.UserID, &e.Method, &e.Path, &e.Params, &e.Response,
			&statusCode, &e.IP, &e.UserAgent, &duration); err != nil {
			return nil, 0, fmt.Errorf("scan operation log: %w", err)
		}
		e.StatusCode = int(statusCode)
		e.Duration = int64(duration)
		logs = append(logs, e)
	}

	return logs, int64(total), rows.Err()
}

func (s *ClickHouseOperationLogSink) Count(ctx context.Context) (int64, error) {
	var total uint64
	if err := s.conn.QueryRow(ctx, "SELECT count() FROM operation_log").Scan(&total); err != nil {
		return 0, fmt.Errorf("count operation logs: %w", err)
	}
	return int64(total), nil
}

func (s *ClickHouseOperationLogSink) StorageType() string {
	return "clickhouse"
}
