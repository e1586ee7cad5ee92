package store

import (
	"sync"
	"time"

	"github.com/youssef-attai/flask-chat-app/internal/models"
	"gorm.io/gorm"
)

// Store 是追加式消息日志。Append 在同一把锁内完成取时间戳和插入，
// 保证时间戳随插入顺序单调不减，且两次并发 Append 不会交错。
type Store struct {
	db     *gorm.DB
	mu     sync.Mutex
	lastTS int64
	nowFn  func() int64
}

func New(db *gorm.DB) *Store {
	s := &Store{db: db, nowFn: func() int64 { return time.Now().UnixMilli() }}
	// 重启后从日志里恢复水位，避免时钟回退打乱既有顺序。
	var last int64
	_ = db.Model(&models.Message{}).Select("COALESCE(MAX(timestamp), 0)").Scan(&last).Error
	s.lastTS = last
	return s
}

// Append 持久化一条消息并返回带 ID 和时间戳的完整记录。
func (s *Store) Append(text string, userID uint) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.nowFn()
	if ts < s.lastTS {
		ts = s.lastTS
	}
	msg := models.Message{Text: text, UserID: userID, Timestamp: ts}
	if err := s.db.Create(&msg).Error; err != nil {
		return models.Message{}, err
	}
	s.lastTS = ts
	return msg, nil
}

// ListOrdered 按时间戳升序返回全部消息，时间戳相同时按插入顺序。
func (s *Store) ListOrdered() ([]models.Message, error) {
	var msgs []models.Message
	if err := s.db.Order("timestamp asc, id asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
