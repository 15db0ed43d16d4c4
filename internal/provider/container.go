package provider

import (
	"context"
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/authz"
	"github.com/ayase-lite/ayase-lite/internal/cache"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/db"
	"github.com/ayase-lite/ayase-lite/internal/filtercache"
	"github.com/ayase-lite/ayase-lite/internal/index"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
	"github.com/ayase-lite/ayase-lite/internal/moderation"
	"github.com/ayase-lite/ayase-lite/internal/queue"
	"github.com/ayase-lite/ayase-lite/internal/search"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	Pools   *db.Pools
	Boards  *asagi.Boards
	Adapter *asagi.Adapter

	FilterCache   filtercache.Cache
	IndexProvider index.Provider // 索引搜索未启用时为 nil

	SearchService     *search.Service
	ReportStore       *moderation.ReportStore
	ModerationService *moderation.Service
	AuthService       *moderation.AuthService
	AuthzService      *authz.Service
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	if err := c.initArchive(); err != nil {
		return nil, err
	}
	if err := c.initModeration(); err != nil {
		return nil, err
	}
	if err := c.initSearch(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Container) initArchive() error {
	cfg := c.Config
	c.Pools = db.NewPools(db.PoolsConfig{
		Type:    cfg.DB.Type,
		DSN:     cfg.DB.DSN,
		ModDSN:  cfg.DB.ModDSN,
		ArchDSN: cfg.DB.ArchDSN,
		Pool: db.PoolConfig{
			MaxOpenConns:           cfg.DB.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.DB.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.DB.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.DB.Pool.ConnMaxIdleTimeSeconds,
		},
	})

	queryClient, err := c.Pools.Get(db.RoleQuery)
	if err != nil {
		return fmt.Errorf("open archive db failed: %w", err)
	}
	boards, err := asagi.NewBoards(cfg.DB.Boards)
	if err != nil {
		return fmt.Errorf("invalid board list: %w", err)
	}
	c.Boards = boards
	c.Adapter = asagi.NewAdapter(queryClient, boards)
	return nil
}

func (c *Container) initModeration() error {
	cfg := c.Config
	modClient, err := c.Pools.Get(db.RoleModeration)
	if err != nil {
		return fmt.Errorf("open moderation db failed: %w", err)
	}
	if err := models.AutoMigrate(modClient.Gorm()); err != nil {
		return fmt.Errorf("migrate moderation tables failed: %w", err)
	}

	fcache, err := filtercache.New(&cfg.Moderation, c.Adapter, modClient, cache.Client(), cfg.Redis.Prefix)
	if err != nil {
		return fmt.Errorf("build filter cache failed: %w", err)
	}
	if err := fcache.Init(context.Background()); err != nil {
		return fmt.Errorf("init filter cache failed: %w", err)
	}
	c.FilterCache = fcache

	authzService, err := authz.NewService(modClient.Gorm())
	if err != nil {
		return fmt.Errorf("init authz failed: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap builtin roles failed: %w", err)
	}
	c.AuthzService = authzService

	c.AuthService = moderation.NewAuthService(&cfg.Moderation, modClient.Gorm())
	if cfg.Moderation.Enabled {
		if err := c.AuthService.EnsureAdmin(context.Background()); err != nil {
			return fmt.Errorf("seed admin failed: %w", err)
		}
		adminUser := cfg.Moderation.AdminUser
		if adminUser == "" {
			adminUser = "admin"
		}
		if err := authzService.SetUserRoles(adminUser, []string{"admin"}); err != nil {
			return fmt.Errorf("grant admin role failed: %w", err)
		}
	}

	c.ReportStore = moderation.NewReportStore(modClient.Gorm())
	media := moderation.NewMedia(cfg.Media.RootPath, cfg.Moderation.HiddenImagesPath)
	c.ModerationService = moderation.NewService(&cfg.Moderation, c.Adapter, fcache, c.ReportStore, media, authzService)
	return nil
}

func (c *Container) initSearch() error {
	cfg := c.Config
	if cfg.IndexSearch.Enabled {
		provider, err := index.New(&cfg.IndexSearch)
		if err != nil {
			return fmt.Errorf("init index provider failed: %w", err)
		}
		c.IndexProvider = provider
	}
	c.SearchService = search.NewService(&cfg.IndexSearch, &cfg.VanillaSearch, &cfg.Media, c.Adapter, c.IndexProvider, c.FilterCache)
	return nil
}

// Close 释放容器持有的连接
func (c *Container) Close() error {
	if c.QueueClient != nil {
		_ = c.QueueClient.Close()
	}
	if c.Pools != nil {
		return c.Pools.Close()
	}
	return nil
}
