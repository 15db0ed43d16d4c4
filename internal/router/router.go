package router

import (
	"fmt"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/cache"
	"github.com/ayase-lite/ayase-lite/internal/config"
	adminhandlers "github.com/ayase-lite/ayase-lite/internal/http/handlers/admin"
	publichandlers "github.com/ayase-lite/ayase-lite/internal/http/handlers/public"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.App.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ayase"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:mod_login", redisPrefix),
		WindowSeconds: cfg.Moderation.RateLimitWindowSeconds,
		MaxRequests:   cfg.Moderation.RateLimitMaxAttempts,
		BlockSeconds:  cfg.Moderation.RateLimitBlockedSeconds,
		Message:       "too many login attempts",
	}
	reportRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:report", redisPrefix),
		WindowSeconds: cfg.Moderation.RateLimitWindowSeconds,
		MaxRequests:   cfg.Moderation.RateLimitMaxAttempts,
		BlockSeconds:  cfg.Moderation.RateLimitBlockedSeconds,
		Message:       "too many reports",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(CORSConfig{AllowedOrigins: []string{"*"}}))

	api := r.Group("/api/v1")
	{
		api.GET("/boards", publicHandler.GetBoards)
		api.GET("/boards/:board", publicHandler.GetBoardIndex)
		api.GET("/boards/:board/catalog", publicHandler.GetBoardCatalog)
		api.GET("/boards/:board/thread/:num", publicHandler.GetThread)
		api.GET("/boards/:board/post/:num", publicHandler.GetSinglePost)
		api.GET("/latest", publicHandler.GetLatestOps)

		api.GET("/search", publicHandler.SearchIndex)
		api.GET("/search/sql", publicHandler.SearchSQL)

		api.POST("/report",
			RateLimitMiddleware(redisClient, reportRule, KeyByIP),
			publicHandler.CreateReport,
		)

		admin := api.Group("/admin")
		{
			admin.POST("/login",
				RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")),
				adminHandler.Login,
			)

			authed := admin.Group("")
			authed.Use(ModJWTAuthMiddleware(c.AuthService))
			{
				authed.GET("/reports", adminHandler.ListReports)
				authed.GET("/reports/:id", adminHandler.GetReport)
				authed.POST("/reports/:id/action", adminHandler.ApplyReportAction)
				authed.POST("/reports/actions", adminHandler.ApplyBulkReportAction)

				// 账号与角色管理只对管理员开放
				users := authed.Group("")
				users.Use(AdminOnlyMiddleware(c.AuthzService))
				{
					users.GET("/users", adminHandler.ListUsers)
					users.POST("/users", adminHandler.CreateUser)
					users.PUT("/users/:username/active", adminHandler.SetUserActive)
					users.PUT("/users/:username/roles", adminHandler.SetUserRoles)
					users.GET("/roles", adminHandler.ListRoles)
					users.POST("/roles/:role/permissions", adminHandler.GrantRolePermission)
					users.DELETE("/roles/:role/permissions", adminHandler.RevokeRolePermission)
				}
			}
		}
	}

	r.GET("/media/:board/:kind/:filename", publicHandler.GetMedia)

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	return r
}
