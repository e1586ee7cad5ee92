package hub

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/youssef-attai/flask-chat-app/internal/metrics"
	"github.com/youssef-attai/flask-chat-app/internal/models"
)

// 单条消息的长度上限（按 rune 计）。
const maxMessageLen = 4096

// MessageStore 是追加式消息日志的写入与读取契约。
type MessageStore interface {
	Append(text string, userID uint) (models.Message, error)
	ListOrdered() ([]models.Message, error)
}

// UserDirectory 是用户的只读查询契约。
type UserDirectory interface {
	FindByID(id uint) (models.User, error)
	FindByUsername(name string) (models.User, error)
}

// Hub 串起入站消息的写路径：会话校验 → 文本校验 → 持久化 → 广播。
// 先持久化后广播是硬性约束，append 失败时不会有任何投递。
type Hub struct {
	registry *Registry
	store    MessageStore
	users    UserDirectory
}

func New(registry *Registry, store MessageStore, users UserDirectory) *Hub {
	return &Hub{registry: registry, store: store, users: users}
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Store() MessageStore { return h.store }

func (h *Hub) Users() UserDirectory { return h.users }

type OutboundUser struct {
	Username string `json:"username"`
}

// OutboundMessage 是广播给所有连接的消息载荷。
type OutboundMessage struct {
	Type      string       `json:"type"`
	Text      string       `json:"text"`
	User      OutboundUser `json:"user"`
	Timestamp int64        `json:"timestamp"`
}

// HandleInbound 处理一条入站消息。未登记的连接拿不到任何持久化
// 或广播；空白或超长文本同样在持久化之前被拒绝。
func (h *Hub) HandleInbound(connID, text string) error {
	sess, ok := h.registry.Session(connID)
	if !ok {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > maxMessageLen {
		return ErrInvalidMessage
	}
	user, err := h.users.FindByID(sess.UserID)
	if err != nil {
		return fmt.Errorf("%w: user %d: %v", ErrUserNotFound, sess.UserID, err)
	}
	msg, err := h.store.Append(text, user.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	out := OutboundMessage{Type: "message", Text: msg.Text, User: OutboundUser{Username: user.Username}, Timestamp: msg.Timestamp}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	metrics.WsMessagesTotal.Inc()
	h.registry.Broadcast(b)
	return nil
}

type outboundTyping struct {
	Type     string       `json:"type"`
	User     OutboundUser `json:"user"`
	IsTyping bool         `json:"is_typing"`
}

// HandleTyping 广播输入状态，不做持久化。
func (h *Hub) HandleTyping(connID string, isTyping bool) error {
	sess, ok := h.registry.Session(connID)
	if !ok {
		return ErrUnauthenticated
	}
	user, err := h.users.FindByID(sess.UserID)
	if err != nil {
		return fmt.Errorf("%w: user %d: %v", ErrUserNotFound, sess.UserID, err)
	}
	b, err := json.Marshal(outboundTyping{Type: "typing", User: OutboundUser{Username: user.Username}, IsTyping: isTyping})
	if err != nil {
		return err
	}
	h.registry.Broadcast(b)
	return nil
}
