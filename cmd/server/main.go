package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/ayase-lite/ayase-lite/internal/app"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
)

func main() {
	var configPath string
	var mode string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认在工作目录下查找 config.toml")
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner()

	cfg := config.Load(configPath)
	logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.App.Mode == "release" {
		if cfg.Moderation.Enabled && isWeakSecret(cfg.Moderation.AuthSecret) {
			stdLog.Fatalf("auth secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Moderation.Enabled && isWeakSecret(cfg.Moderation.AuthSecret) {
		stdLog.Printf("警告: auth secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + ansiBold + "ayase-lite archive server" + ansiReset)
	fmt.Println(ansiBlue + "• https://github.com/ayase-lite/ayase-lite" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
