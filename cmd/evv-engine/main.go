package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"premier-care-hub/internal/config"
	"premier-care-hub/internal/engine"
	"premier-care-hub/internal/logger"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.Load()

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "evv-engine")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建引擎
	eng, err := engine.NewEngine(cfg, log)
	if err != nil {
		log.Fatal("Failed to create engine",
			zap.Error(err),
		)
	}
	defer eng.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动引擎
	if err := eng.Start(ctx); err != nil {
		log.Fatal("Failed to start engine",
			zap.Error(err),
		)
	}

	// 6. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal, shutting down",
		zap.String("signal", sig.String()),
	)
	cancel()

	log.Info("EVV engine stopped")
}
