package filtercache

import (
	"context"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/db"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

func newTestDeps(t *testing.T) (*asagi.Adapter, *db.Client, *db.Client) {
	t.Helper()
	ctx := context.Background()

	arch, err := db.Open("sqlite", ":memory:", db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open archive db failed: %v", err)
	}
	archClient := db.NewClient(arch, "sqlite")
	t.Cleanup(func() { _ = archClient.Close() })

	if err := archClient.RunScript(ctx, `
		create table g (
			num integer not null,
			thread_num integer not null,
			op integer not null default 0,
			deleted integer not null default 0,
			comment text
		)`); err != nil {
		t.Fatalf("create archive schema failed: %v", err)
	}

	mod, err := db.Open("sqlite", ":memory:", db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open moderation db failed: %v", err)
	}
	modClient := db.NewClient(mod, "sqlite")
	t.Cleanup(func() { _ = modClient.Close() })

	if err := modClient.RunScript(ctx, `
		create table report_parent (
			report_parent_id integer primary key autoincrement,
			board text not null,
			num integer not null,
			op integer not null default 0,
			public_access text not null,
			mod_status text not null
		)`); err != nil {
		t.Fatalf("create moderation schema failed: %v", err)
	}

	boards, err := asagi.NewBoards([]string{"g"})
	if err != nil {
		t.Fatalf("new boards failed: %v", err)
	}
	return asagi.NewAdapter(archClient, boards), modClient, archClient
}

func newSqliteCache(t *testing.T, cfg *config.ModerationConfig) Cache {
	t.Helper()
	adapter, mod, _ := newTestDeps(t)
	cache, err := New(cfg, adapter, mod, nil, constants.RedisPrefixDefault)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return cache
}

func enabledConfig() *config.ModerationConfig {
	return &config.ModerationConfig{
		Enabled: true,
		FilterCache: config.FilterCacheConfig{
			Type: constants.FilterCacheSQLite,
		},
	}
}

func post(board string, num, threadNum uint32) *models.Post {
	return &models.Post{Board: board, Num: num, ThreadNum: threadNum, Deleted: "0"}
}

func TestSqliteCacheInsertAndMembership(t *testing.T) {
	cache := newSqliteCache(t, enabledConfig())
	ctx := context.Background()

	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := cache.InsertPost(ctx, "g", 100, true); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	// 幂等
	if err := cache.InsertPost(ctx, "g", 100, true); err != nil {
		t.Fatalf("repeat insert failed: %v", err)
	}

	removed, err := cache.IsPostRemoved(ctx, "g", 100)
	if err != nil {
		t.Fatalf("is removed failed: %v", err)
	}
	if !removed {
		t.Fatalf("post 100 should be removed")
	}
	removed, err = cache.IsPostRemoved(ctx, "g", 999)
	if err != nil {
		t.Fatalf("is removed failed: %v", err)
	}
	if removed {
		t.Fatalf("post 999 should not be removed")
	}

	count, err := cache.GetOpThreadRemovedCount(ctx, "g")
	if err != nil {
		t.Fatalf("op count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("op count want 1 got %d", count)
	}

	if err := cache.DeletePost(ctx, "g", 100, true); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	removed, _ = cache.IsPostRemoved(ctx, "g", 100)
	if removed {
		t.Fatalf("post 100 should be gone after delete")
	}
}

func TestSqliteCacheBoardNumPairs(t *testing.T) {
	cache := newSqliteCache(t, enabledConfig())
	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	_ = cache.InsertPost(ctx, "g", 1, false)
	_ = cache.InsertPost(ctx, "g", 3, false)

	pairs, err := cache.GetBoardNumPairs(ctx, []*models.Post{
		post("g", 1, 1), post("g", 2, 1), post("g", 3, 1),
	})
	if err != nil {
		t.Fatalf("pairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs want 2 got %d", len(pairs))
	}
	if _, ok := pairs[BoardNum{Board: "g", Num: 2}]; ok {
		t.Fatalf("pair (g,2) should be absent")
	}
}

func TestFilterReportedPosts(t *testing.T) {
	cache := newSqliteCache(t, enabledConfig())
	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	_ = cache.InsertPost(ctx, "g", 2, false)

	posts := []*models.Post{post("g", 1, 1), post("g", 2, 1), post("g", 3, 1)}

	visible, err := cache.FilterReportedPosts(ctx, posts, false)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("public view want 2 posts got %d", len(visible))
	}
	for _, p := range visible {
		if p.Num == 2 {
			t.Fatalf("hidden post leaked to public view")
		}
	}

	staff, err := cache.FilterReportedPosts(ctx, posts, true)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(staff) != 3 {
		t.Fatalf("staff view want 3 posts got %d", len(staff))
	}
	if staff[1].Deleted != constants.StaffOnlyDeletedMarker {
		t.Fatalf("hidden post should carry staff marker, got %q", staff[1].Deleted)
	}
	// 原帖不被改写
	if posts[1].Deleted != "0" {
		t.Fatalf("input post mutated: %q", posts[1].Deleted)
	}
}

func TestFilterRepliesToHiddenOp(t *testing.T) {
	cfg := enabledConfig()
	cfg.RemoveRepliesToHidden = true
	cache := newSqliteCache(t, cfg)
	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	_ = cache.InsertPost(ctx, "g", 10, true)

	visible, err := cache.FilterReportedPosts(ctx, []*models.Post{
		post("g", 10, 10), post("g", 11, 10), post("g", 20, 20),
	}, false)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(visible) != 1 || visible[0].Num != 20 {
		t.Fatalf("replies to hidden op should be filtered, got %+v", visible)
	}
}

func TestFilterUpstreamDeletedAndRegex(t *testing.T) {
	cfg := enabledConfig()
	cfg.HideDeletedPosts = true
	cfg.RegexFilter = "forbidden"
	cache := newSqliteCache(t, cfg)
	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	deleted := post("g", 1, 1)
	deleted.Deleted = "1"
	matching := post("g", 2, 1)
	matching.Comment = "very FORBIDDEN text"
	clean := post("g", 3, 1)

	visible, err := cache.FilterReportedPosts(ctx, []*models.Post{deleted, matching, clean}, false)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(visible) != 1 || visible[0].Num != 3 {
		t.Fatalf("want only post 3 visible, got %+v", visible)
	}
}

func TestFilterDisabledPassesThrough(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	cache := newSqliteCache(t, cfg)
	ctx := context.Background()
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	posts := []*models.Post{post("g", 1, 1)}
	visible, err := cache.FilterReportedPosts(ctx, posts, false)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("disabled cache should pass posts through")
	}
}

func TestInitPopulatesFromSources(t *testing.T) {
	adapter, mod, arch := newTestDeps(t)
	ctx := context.Background()

	cfg := enabledConfig()
	cfg.HideDeletedPosts = true
	cfg.RegexFilter = "spam"
	cache, err := New(cfg, adapter, mod, nil, constants.RedisPrefixDefault)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	// 上游删除一条、正则命中一条、隐藏举报一条
	if err := mod.Exec(ctx, `
		insert into report_parent (board, num, op, public_access, mod_status)
		values ('g', 30, 1, ?, ?)`,
		constants.PublicAccessHidden, constants.ModStatusOpen); err != nil {
		t.Fatalf("seed report failed: %v", err)
	}
	seedArchive := []string{
		"insert into g (num, thread_num, op, deleted, comment) values (10, 10, 1, 1, 'gone')",
		"insert into g (num, thread_num, op, deleted, comment) values (20, 10, 0, 0, 'pure spam here')",
		"insert into g (num, thread_num, op, deleted, comment) values (40, 10, 0, 0, 'fine')",
	}
	for _, stmt := range seedArchive {
		if err := arch.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed archive failed: %v", err)
		}
	}

	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for _, num := range []uint32{10, 20, 30} {
		removed, err := cache.IsPostRemoved(ctx, "g", num)
		if err != nil {
			t.Fatalf("is removed %d failed: %v", num, err)
		}
		if !removed {
			t.Fatalf("post %d should be in cache after populate", num)
		}
	}
	removed, _ := cache.IsPostRemoved(ctx, "g", 40)
	if removed {
		t.Fatalf("post 40 should not be in cache")
	}
}

func TestNullCache(t *testing.T) {
	cfg := enabledConfig()
	cfg.FilterCache.Type = constants.FilterCacheNull
	adapter, mod, _ := newTestDeps(t)
	cache, err := New(cfg, adapter, mod, nil, constants.RedisPrefixDefault)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	ctx := context.Background()

	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	removed, err := cache.IsPostRemoved(ctx, "g", 1)
	if err != nil || removed {
		t.Fatalf("null cache should never hide, got %v %v", removed, err)
	}
	posts := []*models.Post{post("g", 1, 1)}
	visible, err := cache.FilterReportedPosts(ctx, posts, false)
	if err != nil || len(visible) != 1 {
		t.Fatalf("null cache should pass through, got %v %v", visible, err)
	}
}

func TestNewRejectsBadRegex(t *testing.T) {
	cfg := enabledConfig()
	cfg.RegexFilter = "["
	adapter, mod, _ := newTestDeps(t)
	if _, err := New(cfg, adapter, mod, nil, constants.RedisPrefixDefault); err == nil {
		t.Fatalf("bad regex should fail construction")
	}
}

func TestRedisKeyAndEncoding(t *testing.T) {
	r := &redisCache{prefix: "aq"}
	if got := r.bloomKey("g"); got != "aq:fc:del:g" {
		t.Fatalf("bloom key got %q", got)
	}
	if got := r.cuckooKey("g"); got != "aq:fc:rep:g" {
		t.Fatalf("cuckoo key got %q", got)
	}
	if got := r.opCountKey("g"); got != "aq:fc:opc:g" {
		t.Fatalf("op count key got %q", got)
	}
	b := u32Bytes(0x01020304)
	if b != "\x01\x02\x03\x04" {
		t.Fatalf("u32 encoding got %q", b)
	}
}
