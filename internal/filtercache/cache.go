package filtercache

import (
	"context"
	"fmt"
	"regexp"

	"github.com/redis/go-redis/v9"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// BoardNum 过滤缓存的成员键
type BoardNum struct {
	Board string
	Num   uint32
}

// Cache 版务过滤缓存。后端由配置选择，读操作是最终一致的：
// 并发写入后的瞬时漏读是允许的。
type Cache interface {
	// Init 建立后端结构，空缓存时执行一次性填充
	Init(ctx context.Context) error
	// IsPostRemoved 单帖是否被过滤
	IsPostRemoved(ctx context.Context, board string, num uint32) (bool, error)
	// GetOpThreadRemovedCount 被过滤的 OP 数
	GetOpThreadRemovedCount(ctx context.Context, board string) (int, error)
	// GetBoardNumPairs 批量成员测试，返回命中的 (板块, 帖号) 集合
	GetBoardNumPairs(ctx context.Context, posts []*models.Post) (map[BoardNum]struct{}, error)
	// InsertPost / DeletePost 版务写入口
	InsertPost(ctx context.Context, board string, num uint32, op bool) error
	DeletePost(ctx context.Context, board string, num uint32, op bool) error
	// FilterReportedPosts 对帖子列表应用过滤；员工视角保留但打标记
	FilterReportedPosts(ctx context.Context, posts []*models.Post, isAuthority bool) ([]*models.Post, error)
	// Teardown 清空缓存内容
	Teardown(ctx context.Context) error
}

// New 按配置构建过滤缓存后端
func New(cfg *config.ModerationConfig, adapter *asagi.Adapter, mod ModDB, rdb redis.UniversalClient, prefix string) (Cache, error) {
	rules, err := newRules(cfg)
	if err != nil {
		return nil, err
	}
	base := base{rules: rules, adapter: adapter, mod: mod}
	switch cfg.FilterCache.Type {
	case constants.FilterCacheSQLite, "":
		return &sqliteCache{base: base}, nil
	case constants.FilterCacheRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis filter cache requires a redis connection")
		}
		return &redisCache{base: base, rdb: rdb, prefix: prefix, tuning: cfg.FilterCache}, nil
	case constants.FilterCacheNull:
		return &nullCache{base: base}, nil
	default:
		return nil, fmt.Errorf("unknown filter cache type: %s", cfg.FilterCache.Type)
	}
}

// ModDB 过滤缓存对版务库的最小依赖
type ModDB interface {
	QueryRows(ctx context.Context, query string, args ...interface{}) ([][]interface{}, error)
	Exec(ctx context.Context, query string, args ...interface{}) error
	RunScript(ctx context.Context, script string) error
	Type() string
}

// rules 过滤判定规则，所有后端共用
type rules struct {
	enabled                 bool
	removeRepliesToHiddenOp bool
	hideUpstreamDeleted     bool
	regex                   *regexp.Regexp
}

func newRules(cfg *config.ModerationConfig) (rules, error) {
	r := rules{
		enabled:                 cfg.Enabled,
		removeRepliesToHiddenOp: cfg.RemoveRepliesToHidden,
		hideUpstreamDeleted:     cfg.HideDeletedPosts,
	}
	if cfg.RegexFilter != "" {
		re, err := regexp.Compile("(?is)" + cfg.RegexFilter)
		if err != nil {
			return rules{}, fmt.Errorf("invalid moderation regex filter: %w", err)
		}
		r.regex = re
	}
	return r, nil
}

// shouldFilter 判定单帖是否过滤：本帖被隐藏、所在线程 OP 被隐藏、
// 上游删除、或评论命中正则，任一成立即过滤
func (r rules) shouldFilter(pairs map[BoardNum]struct{}, post *models.Post) bool {
	if _, ok := pairs[BoardNum{Board: post.Board, Num: post.Num}]; ok {
		return true
	}
	if r.removeRepliesToHiddenOp {
		if _, ok := pairs[BoardNum{Board: post.Board, Num: post.ThreadNum}]; ok {
			return true
		}
	}
	if r.hideUpstreamDeleted && post.IsDeleted() {
		return true
	}
	if r.regex != nil && post.Comment != "" && r.regex.MatchString(post.Comment) {
		return true
	}
	return false
}

// base 后端共享部分：规则、归档适配器、版务库
type base struct {
	rules   rules
	adapter *asagi.Adapter
	mod     ModDB
}

// filterReported 实现共享的过滤应用；成员测试委托给具体后端
func (b *base) filterReported(ctx context.Context, c Cache, posts []*models.Post, isAuthority bool) ([]*models.Post, error) {
	if !b.rules.enabled || len(posts) == 0 {
		return posts, nil
	}
	pairs, err := c.GetBoardNumPairs(ctx, posts)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Post, 0, len(posts))
	for _, post := range posts {
		if !b.rules.shouldFilter(pairs, post) {
			out = append(out, post)
			continue
		}
		if isAuthority {
			marked := *post
			marked.Deleted = constants.StaffOnlyDeletedMarker
			out = append(out, &marked)
		}
	}
	return out, nil
}

// numOpSource 填充数据来源：正则命中与上游删除的 (帖号, op)
type numOpSource func(ctx context.Context, board string) ([]asagi.NumOp, error)

// populateSources 按规则开关返回启用的数据来源
func (b *base) populateSources() []numOpSource {
	var sources []numOpSource
	if b.rules.regex != nil {
		pattern := b.rules.regex.String()
		sources = append(sources, func(ctx context.Context, board string) ([]asagi.NumOp, error) {
			return b.adapter.GetNumOpsByRegex(ctx, board, pattern)
		})
	}
	if b.rules.hideUpstreamDeleted {
		sources = append(sources, b.adapter.GetDeletedNumOps)
	}
	return sources
}

// hiddenReportRows 版务库里当前处于 open+hidden 的举报父行
func (b *base) hiddenReportRows(ctx context.Context) ([][]interface{}, error) {
	return b.mod.QueryRows(ctx, `
		select board, num, op
		from report_parent
		where public_access = ? and mod_status = ?
		group by board, num, op`,
		constants.PublicAccessHidden, constants.ModStatusOpen)
}
