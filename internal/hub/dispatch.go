package hub

import "encoding/json"

// EventHandler 处理一个具名入站事件，data 是完整的原始帧。
type EventHandler func(connID string, data json.RawMessage) error

type inboundMessage struct {
	Text string `json:"text"`
}

type inboundTyping struct {
	IsTyping bool `json:"is_typing"`
}

// DispatchTable 在启动时构建一次事件名到处理函数的映射，
// 传输层按帧里的 type 字段查表分发。
func (h *Hub) DispatchTable() map[string]EventHandler {
	return map[string]EventHandler{
		"message": func(connID string, data json.RawMessage) error {
			var in inboundMessage
			if err := json.Unmarshal(data, &in); err != nil {
				return ErrInvalidMessage
			}
			return h.HandleInbound(connID, in.Text)
		},
		"typing": func(connID string, data json.RawMessage) error {
			var in inboundTyping
			if err := json.Unmarshal(data, &in); err != nil {
				return ErrInvalidMessage
			}
			return h.HandleTyping(connID, in.IsTyping)
		},
	}
}
