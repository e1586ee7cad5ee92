package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/youssef-attai/flask-chat-app/internal/auth"
	"github.com/youssef-attai/flask-chat-app/internal/hub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var errSendBufferFull = errors.New("send buffer full")

// Client 是一条 WebSocket 连接，实现 hub.Channel。
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// Send 把载荷排入发送缓冲，缓冲满立即报错，绝不阻塞广播。
func (c *Client) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}

type envelope struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func errorPayload(msg string) []byte {
	b, _ := json.Marshal(errorEvent{Type: "error", Error: msg})
	return b
}

// Serve 处理 WebSocket 握手。认证失败的连接在升级之前就被拒绝，
// 只有拿到有效会话的连接才会登记进 Registry。
func Serve(h *hub.Hub, authr *auth.Authenticator) gin.HandlerFunc {
	table := h.DispatchTable()
	return func(c *gin.Context) {
		sess, err := authr.Authenticate(auth.TokenFromRequest(c))
		if err != nil {
			log.Info().Err(err).Msg("ws handshake rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 256)}
		h.Registry().Register(client.id, sess, client)

		go client.writePump()
		client.readPump(h.Registry(), table)
	}
}

func (c *Client) readPump(reg *hub.Registry, table map[string]hub.EventHandler) {
	defer func() {
		reg.Unregister(c.id)
		_ = c.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = c.Send(errorPayload("malformed frame"))
			continue
		}
		handler, ok := table[env.Type]
		if !ok {
			_ = c.Send(errorPayload("unknown event type"))
			continue
		}
		if err := handler(c.id, data); err != nil {
			c.handleEventError(err)
			if errors.Is(err, hub.ErrUnauthenticated) || errors.Is(err, hub.ErrUserNotFound) {
				break
			}
		}
	}
}

func (c *Client) handleEventError(err error) {
	switch {
	case errors.Is(err, hub.ErrUnauthenticated), errors.Is(err, hub.ErrUserNotFound):
		log.Info().Err(err).Str("conn_id", c.id).Msg("event rejected: unauthenticated")
		_ = c.Send(errorPayload("unauthenticated"))
	case errors.Is(err, hub.ErrInvalidMessage):
		_ = c.Send(errorPayload("invalid message"))
	case errors.Is(err, hub.ErrStoreUnavailable):
		log.Error().Err(err).Str("conn_id", c.id).Msg("message not persisted")
		_ = c.Send(errorPayload("message not delivered"))
	default:
		log.Error().Err(err).Str("conn_id", c.id).Msg("event handler failed")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
