package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/youssef-attai/flask-chat-app/internal/auth"
	"github.com/youssef-attai/flask-chat-app/internal/config"
	"github.com/youssef-attai/flask-chat-app/internal/directory"
	"github.com/youssef-attai/flask-chat-app/internal/hub"
	"github.com/youssef-attai/flask-chat-app/internal/metrics"
	"github.com/youssef-attai/flask-chat-app/internal/mw"
	"github.com/youssef-attai/flask-chat-app/internal/service"
	"github.com/youssef-attai/flask-chat-app/internal/ws"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
// 所有依赖在这里构建一次并显式传递，不使用任何全局单例。
func SetupRouter(cfg config.Config, gdb *gorm.DB, h *hub.Hub) *gin.Engine {
	users := directory.New(gdb)
	userSvc := service.NewUserService(gdb, cfg)
	msgSvc := service.NewMessageService(h.Store(), users)
	handler := NewHandler(userSvc, msgSvc)
	authr := auth.NewAuthenticator(users, cfg.JWTSecret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/auth/register", handler.Register)
	api.POST("/auth/login", handler.Login)
	api.POST("/auth/refresh", handler.RefreshToken)
	api.POST("/auth/logout", handler.Logout)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, users))
	authed.GET("/messages", handler.ListMessages)

	r.GET("/ws", ws.Serve(h, authr))

	r.Static("/static", "./web")
	return r
}
