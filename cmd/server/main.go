package main

import (
	"github.com/rs/zerolog/log"

	"github.com/youssef-attai/flask-chat-app/internal/config"
	"github.com/youssef-attai/flask-chat-app/internal/db"
	"github.com/youssef-attai/flask-chat-app/internal/directory"
	"github.com/youssef-attai/flask-chat-app/internal/hub"
	clog "github.com/youssef-attai/flask-chat-app/internal/log"
	"github.com/youssef-attai/flask-chat-app/internal/server"
	"github.com/youssef-attai/flask-chat-app/internal/store"
)

func main() {
	// main 负责加载配置、初始化日志、连接数据库并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	h := hub.New(hub.NewRegistry(), store.New(gdb), directory.New(gdb))
	r := server.SetupRouter(cfg, gdb, h)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
