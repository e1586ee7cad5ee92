package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/youssef-attai/flask-chat-app/internal/metrics"
)

// Session 是认证通过后绑定到连接上的身份。
type Session struct {
	UserID uint
}

// Channel 是连接的推送通道。Send 不得阻塞，失败返回错误。
type Channel interface {
	Send(payload []byte) error
	Close() error
}

type connection struct {
	id   string
	sess Session
	ch   Channel
}

// Registry 持有当前在线的已认证连接，是它们的唯一属主。
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Register 在认证通过后登记连接。
func (r *Registry) Register(id string, sess Session, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connection{id: id, sess: sess, ch: ch}
	metrics.WsConnections.Set(float64(len(r.conns)))
}

// Unregister 移除连接，重复移除是 no-op。
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	metrics.WsConnections.Set(float64(len(r.conns)))
}

// Session 查询连接对应的会话，未登记返回 false。
func (r *Registry) Session(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return Session{}, false
	}
	return c.sess, true
}

// Len 返回当前在线连接数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast 把 payload 投递给快照时刻的全部连接，包括触发者本身。
// 单个连接投递失败只会让它自己被移除，不影响其余连接。
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	snapshot := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.ch.Send(payload); err != nil {
			metrics.BroadcastFailuresTotal.Inc()
			log.Warn().Err(err).Str("conn_id", c.id).Uint("user_id", c.sess.UserID).Msg("broadcast delivery failed, dropping connection")
			r.Unregister(c.id)
			_ = c.ch.Close()
		}
	}
}
