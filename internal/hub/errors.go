package hub

import "errors"

// 核心错误分类。认证与校验错误在边界被拒绝，不会触及消息日志；
// 存储错误只终止触发它的那一条消息，不会广播未持久化的内容。
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrUserNotFound     = errors.New("user not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)
