package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message 是追加式日志中的一条记录，写入后不可变、不删除。
// Timestamp 为毫秒时钟值，按插入顺序单调不减。
type Message struct {
	ID        uint   `gorm:"primaryKey"`
	Text      string `gorm:"type:text;not null"`
	UserID    uint   `gorm:"index;not null"`
	Timestamp int64  `gorm:"index:idx_msg_ts;not null"`
	CreatedAt time.Time
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
