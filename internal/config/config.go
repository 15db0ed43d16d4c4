package config

import (
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	App           AppConfig        `mapstructure:"app"`
	Site          SiteConfig       `mapstructure:"site"`
	Archive       ArchiveConfig    `mapstructure:"archive"`
	Log           LogConfig        `mapstructure:"log"`
	DB            DBConfig         `mapstructure:"db"`
	IndexSearch   SearchConfig     `mapstructure:"index_search"`
	VanillaSearch SearchConfig     `mapstructure:"vanilla_search"`
	Media         MediaConfig      `mapstructure:"media"`
	Moderation    ModerationConfig `mapstructure:"moderation"`
	Redis         RedisConfig      `mapstructure:"redis"`
	Queue         QueueConfig      `mapstructure:"queue"`
}

// AppConfig 应用配置
type AppConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"` // debug / release
	Secret        string `mapstructure:"secret"`
	LoginEndpoint string `mapstructure:"login_endpoint"`
	Testing       bool   `mapstructure:"testing"`
}

// SiteConfig 站点展示配置
type SiteConfig struct {
	Name  string `mapstructure:"name"`
	Theme string `mapstructure:"theme"`
}

// ArchiveConfig 归档源配置
type ArchiveConfig struct {
	CanonicalHost string `mapstructure:"canonical_host"`
	CanonicalName string `mapstructure:"canonical_name"`
	ThreadPath    string `mapstructure:"thread_path"`
	PostPath      string `mapstructure:"post_path"`
	CatalogPath   string `mapstructure:"catalog_path"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Type    string       `mapstructure:"type"` // mysql / sqlite / postgres
	DSN     string       `mapstructure:"dsn"`
	ModDSN  string       `mapstructure:"moderation_dsn"`  // 版务库，留空时复用主库
	ArchDSN string       `mapstructure:"archivepost_dsn"` // 存档发帖库，留空时复用主库
	Boards  []string     `mapstructure:"boards"`          // 板块白名单
	Pool    DBPoolConfig `mapstructure:"pool"`
}

// SearchConfig 搜索入口配置（索引搜索与 SQL 搜索共用同一结构）
type SearchConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Provider         string `mapstructure:"provider"`
	Host             string `mapstructure:"host"`
	APIKey           string `mapstructure:"api_key"`
	HitsPerPage      int    `mapstructure:"hits_per_page"`
	MaxHits          int    `mapstructure:"max_hits"`
	MultiBoardSearch int    `mapstructure:"multi_board_search"` // 多板搜索时的板块上限，0 为单板
	Highlight        bool   `mapstructure:"highlight"`
	Version          string `mapstructure:"version"` // quickwit 的索引配置版本号
}

// MediaConfig 媒体服务配置
type MediaConfig struct {
	Endpoint        string   `mapstructure:"endpoint"`
	RootPath        string   `mapstructure:"root_path"`
	ImageURI        string   `mapstructure:"image_uri"` // 含 {board} 占位符
	ThumbURI        string   `mapstructure:"thumb_uri"`
	ValidExtensions []string `mapstructure:"valid_extensions"`
	BoardsWithImage []string `mapstructure:"boards_with_image"`
	BoardsWithThumb []string `mapstructure:"boards_with_thumb"`
	XAccelRedirect  bool     `mapstructure:"x_accel_redirect"`
}

// FilterCacheConfig 过滤缓存配置
type FilterCacheConfig struct {
	Type               string  `mapstructure:"type"` // sqlite / redis / null
	BloomCapacity      int64   `mapstructure:"bloom_capacity"`
	BloomErrorRate     float64 `mapstructure:"bloom_error_rate"`
	BloomExpansion     int     `mapstructure:"bloom_expansion"`
	CuckooCapacity     int64   `mapstructure:"cuckoo_capacity"`
	CuckooBucketSize   int     `mapstructure:"cuckoo_bucket_size"`
	CuckooMaxIteration int     `mapstructure:"cuckoo_max_iterations"`
}

// ModerationConfig 版务配置
type ModerationConfig struct {
	Enabled                 bool              `mapstructure:"enabled"`
	AdminUser               string            `mapstructure:"admin_user"`
	AdminPassword           string            `mapstructure:"admin_password"`
	DefaultReportedAccess   string            `mapstructure:"default_reported_post_public_access"` // visible / hidden
	HideDeletedPosts        bool              `mapstructure:"hide_post_if_deleted"`
	RemoveRepliesToHidden   bool              `mapstructure:"remove_replies_to_hidden_op"`
	RegexFilter             string            `mapstructure:"regex_filter"`
	NReportsThenHide        int               `mapstructure:"n_reports_then_hide"`
	FilterCache             FilterCacheConfig `mapstructure:"filter_cache"`
	HiddenImagesPath        string            `mapstructure:"hidden_images_path"`
	AuthSecret              string            `mapstructure:"auth_secret"`
	AuthExpireHours         int               `mapstructure:"auth_expire_hours"`
	RateLimitWindowSeconds  int               `mapstructure:"rate_limit_window_seconds"`
	RateLimitMaxAttempts    int               `mapstructure:"rate_limit_max_attempts"`
	RateLimitBlockedSeconds int               `mapstructure:"rate_limit_block_seconds"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled             bool           `mapstructure:"enabled"`
	Host                string         `mapstructure:"host"`
	Port                int            `mapstructure:"port"`
	Password            string         `mapstructure:"password"`
	DB                  int            `mapstructure:"db"`
	Concurrency         int            `mapstructure:"concurrency"`
	Queues              map[string]int `mapstructure:"queues"`
	IncrementalLoadCron string         `mapstructure:"incremental_load_cron"`
}

// Load 从 TOML 配置文件加载配置
func Load(path string) *Config {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("../")
		viper.AddConfigPath("./etc")
	}

	viper.SetDefault("app.host", "0.0.0.0")
	viper.SetDefault("app.port", "9003")
	viper.SetDefault("app.mode", "debug")
	viper.SetDefault("app.login_endpoint", "/login")
	viper.SetDefault("app.testing", false)
	viper.SetDefault("site.name", "Ayase Lite")
	viper.SetDefault("site.theme", "tomorrow")
	viper.SetDefault("archive.canonical_host", "https://boards.4chan.org")
	viper.SetDefault("archive.canonical_name", "4chan")
	viper.SetDefault("archive.thread_path", "/{board}/thread/{thread_num}")
	viper.SetDefault("archive.post_path", "/{board}/thread/{thread_num}#p{num}")
	viper.SetDefault("archive.catalog_path", "/{board}/catalog")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.dsn", "./db/archive.db")
	viper.SetDefault("db.moderation_dsn", "")
	viper.SetDefault("db.archivepost_dsn", "")
	viper.SetDefault("db.boards", []string{})
	viper.SetDefault("db.pool.max_open_conns", 10)
	viper.SetDefault("db.pool.max_idle_conns", 2)
	viper.SetDefault("db.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("db.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("index_search.enabled", false)
	viper.SetDefault("index_search.provider", "meili")
	viper.SetDefault("index_search.host", "http://127.0.0.1:7700")
	viper.SetDefault("index_search.api_key", "")
	viper.SetDefault("index_search.hits_per_page", 50)
	viper.SetDefault("index_search.max_hits", 10000)
	viper.SetDefault("index_search.multi_board_search", 5)
	viper.SetDefault("index_search.highlight", true)
	viper.SetDefault("vanilla_search.enabled", true)
	viper.SetDefault("vanilla_search.hits_per_page", 50)
	viper.SetDefault("vanilla_search.max_hits", 10000)
	viper.SetDefault("vanilla_search.multi_board_search", 5)
	viper.SetDefault("vanilla_search.highlight", false)
	viper.SetDefault("media.endpoint", "/srv")
	viper.SetDefault("media.root_path", "")
	viper.SetDefault("media.image_uri", "/srv/{board}/image")
	viper.SetDefault("media.thumb_uri", "/srv/{board}/thumb")
	viper.SetDefault("media.valid_extensions", []string{"jpg", "jpeg", "png", "gif", "webm", "mp4", "pdf"})
	viper.SetDefault("media.boards_with_image", []string{})
	viper.SetDefault("media.boards_with_thumb", []string{})
	viper.SetDefault("media.x_accel_redirect", false)
	viper.SetDefault("moderation.enabled", false)
	viper.SetDefault("moderation.admin_user", "admin")
	viper.SetDefault("moderation.admin_password", "")
	viper.SetDefault("moderation.default_reported_post_public_access", "visible")
	viper.SetDefault("moderation.hide_post_if_deleted", false)
	viper.SetDefault("moderation.remove_replies_to_hidden_op", false)
	viper.SetDefault("moderation.regex_filter", "")
	viper.SetDefault("moderation.n_reports_then_hide", 0)
	viper.SetDefault("moderation.filter_cache.type", "sqlite")
	viper.SetDefault("moderation.filter_cache.bloom_capacity", 8_000_000)
	viper.SetDefault("moderation.filter_cache.bloom_error_rate", 0.01)
	viper.SetDefault("moderation.filter_cache.bloom_expansion", 2)
	viper.SetDefault("moderation.filter_cache.cuckoo_capacity", 10_000)
	viper.SetDefault("moderation.filter_cache.cuckoo_bucket_size", 1000)
	viper.SetDefault("moderation.filter_cache.cuckoo_max_iterations", 10)
	viper.SetDefault("moderation.hidden_images_path", "")
	viper.SetDefault("moderation.auth_secret", "change-me-in-production")
	viper.SetDefault("moderation.auth_expire_hours", 24)
	viper.SetDefault("moderation.rate_limit_window_seconds", 300)
	viper.SetDefault("moderation.rate_limit_max_attempts", 5)
	viper.SetDefault("moderation.rate_limit_block_seconds", 900)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "aq")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("queue.incremental_load_cron", "@every 1h")

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
