package main

import (
	"log"

	"gamevault/internal/pkg/config"
	"gamevault/internal/pkg/paynow"
	"gamevault/pkg/logger"

	"go.uber.org/zap"
)

// 本地联调：模拟身份校验、服务器列表与 PayNow 二维码接口
func main() {
	config.LoadConfig()
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Env, cfg.App.Debug); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	r := paynow.NewSandboxRouter(paynow.SandboxOptions{
		UEN:          cfg.Sandbox.UEN,
		MerchantName: cfg.Sandbox.MerchantName,
		QRTTL:        cfg.Sandbox.QRTTL,
	})

	addr := ":" + cfg.Sandbox.Port
	logger.Log.Info("PayNow sandbox listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Log.Fatal("Sandbox stopped", zap.Error(err))
	}
}
