package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/loader"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/provider"
)

const usage = `usage: index [-config path] <command> [boards...]

commands:
  load              全量重建：清空索引后按板块重新灌入
  load-incremental  增量加载：从索引中每板块最大帖号之后续灌
  wipe              清空 posts 索引
  stats             打印索引文档统计
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)
	boards := flag.Args()[1:]

	cfg := config.Load(configPath)
	logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	container, err := provider.NewContainer(cfg)
	if err != nil {
		stdLog.Fatalf("初始化失败: %v", err)
	}
	defer container.Close()

	if container.IndexProvider == nil {
		stdLog.Fatalf("index_search 未启用，无法执行 %s", command)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(boards) == 0 {
		boards = container.Boards.All()
	} else if err := container.Boards.ValidateAll(boards); err != nil {
		stdLog.Fatalf("板块参数无效: %v", err)
	}

	l := loader.NewLoader(container.Adapter, container.IndexProvider)

	switch command {
	case "load":
		if err := container.IndexProvider.PostsWipe(ctx); err != nil {
			stdLog.Fatalf("清空索引失败: %v", err)
		}
		if err := container.IndexProvider.InitIndexes(ctx); err != nil {
			stdLog.Fatalf("声明索引失败: %v", err)
		}
		if err := l.LoadFull(ctx, boards); err != nil {
			stdLog.Fatalf("全量加载失败: %v", err)
		}
	case "load-incremental":
		if err := container.IndexProvider.InitIndexes(ctx); err != nil {
			stdLog.Fatalf("声明索引失败: %v", err)
		}
		if err := l.LoadIncremental(ctx, boards); err != nil {
			stdLog.Fatalf("增量加载失败: %v", err)
		}
	case "wipe":
		if err := container.IndexProvider.PostsWipe(ctx); err != nil {
			stdLog.Fatalf("清空索引失败: %v", err)
		}
	case "stats":
		stats, err := container.IndexProvider.PostStats(ctx)
		if err != nil {
			stdLog.Fatalf("读取统计失败: %v", err)
		}
		fmt.Printf("documents: %d\n", stats.Documents)
		for k, v := range stats.Raw {
			fmt.Printf("%s: %v\n", k, v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}
