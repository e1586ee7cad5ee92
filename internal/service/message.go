package service

import (
	"github.com/youssef-attai/flask-chat-app/internal/hub"
)

// MessageService 组装页面水合所需的历史消息视图。
type MessageService struct {
	store hub.MessageStore
	users hub.UserDirectory
}

func NewMessageService(store hub.MessageStore, users hub.UserDirectory) *MessageService {
	return &MessageService{store: store, users: users}
}

// MessageDTO 是对外输出的消息数据，和广播载荷保持同一形状。
type MessageDTO struct {
	Text      string           `json:"text"`
	User      hub.OutboundUser `json:"user"`
	Timestamp int64            `json:"timestamp"`
}

// History 按时间戳升序返回全部消息，并把 userId 解析成用户名。
func (s *MessageService) History() ([]MessageDTO, error) {
	msgs, err := s.store.ListOrdered()
	if err != nil {
		return nil, err
	}
	// 同一用户只查一次。
	usernames := make(map[uint]string)
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		name, ok := usernames[m.UserID]
		if !ok {
			user, err := s.users.FindByID(m.UserID)
			if err != nil {
				return nil, err
			}
			name = user.Username
			usernames[m.UserID] = name
		}
		out = append(out, MessageDTO{Text: m.Text, User: hub.OutboundUser{Username: name}, Timestamp: m.Timestamp})
	}
	return out, nil
}
