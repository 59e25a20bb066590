// Package db 可选的SQLite预测审计日志
package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull 写入协程跟不上时Record返回
	ErrQueueFull = errors.New("prediction queue full")
	// ErrStoreClosed Close之后Record返回
	ErrStoreClosed = errors.New("prediction store closed")
)

// PredictionRecord 一条预测审计记录，只保存文本摘要
type PredictionRecord struct {
	ID         int64     `json:"id"`
	TextSHA256 string    `json:"text_sha256"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store 由单个后台协程写入预测记录，请求处理不阻塞在磁盘上
type Store struct {
	database *sql.DB
	queue    chan PredictionRecord
	logger   *zap.Logger
	wg       sync.WaitGroup
	once     sync.Once

	// mu 保护closed，关闭队列时持写锁
	mu     sync.RWMutex
	closed bool
}

// Open 初始化path处的SQLite数据库并启动写入协程
func Open(path string, queueSize int, logger *zap.Logger) (*Store, error) {
	if queueSize <= 0 {
		queueSize = 256
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// 单连接：内存库共享同一实例，写入串行
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        text_sha256 VARCHAR(64) NOT NULL,
        label TEXT NOT NULL,
        confidence REAL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		database: database,
		queue:    make(chan PredictionRecord, queueSize),
		logger:   logger,
	}
	s.wg.Add(1)
	go s.run()
	return s, nil
}

// NewRecord 为text构造记录，不保留原文
func NewRecord(text string, label any, confidence float64) PredictionRecord {
	sum := sha256.Sum256([]byte(text))
	return PredictionRecord{
		TextSHA256: hex.EncodeToString(sum[:]),
		Label:      labelString(label),
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
}

// Record 非阻塞入队
func (s *Store) Record(rec PredictionRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Store) run() {
	defer s.wg.Done()
	for rec := range s.queue {
		if err := s.insert(rec); err != nil {
			s.logger.Warn("failed to save prediction", zap.Error(err))
		}
	}
}

func (s *Store) insert(rec PredictionRecord) error {
	_, err := s.database.Exec(`
        INSERT INTO predictions (text_sha256, label, confidence, created_at)
        VALUES (?, ?, ?, ?)
    `, rec.TextSHA256, rec.Label, rec.Confidence, rec.CreatedAt)
	return err
}

// Recent 按时间倒序返回最多limit条记录
func (s *Store) Recent(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.Query(`
        SELECT id, text_sha256, label, confidence, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.TextSHA256, &rec.Label, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close 写完已入队的记录后关闭数据库，可重复调用
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		s.wg.Wait()
		err = s.database.Close()
	})
	return err
}

func labelString(label any) string {
	if s, ok := label.(string); ok {
		return s
	}
	b, err := json.Marshal(label)
	if err != nil {
		return fmt.Sprint(label)
	}
	return string(b)
}
