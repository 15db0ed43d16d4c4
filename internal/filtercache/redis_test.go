package filtercache

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// fakeRedis 内存模拟过滤缓存用到的 RedisBloom 命令子集
type fakeRedis struct {
	redis.UniversalClient
	bloom    map[string]map[string]struct{}
	cuckoo   map[string]map[string]int
	counters map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		bloom:    make(map[string]map[string]struct{}),
		cuckoo:   make(map[string]map[string]int),
		counters: make(map[string]int64),
	}
}

func boolInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (f *fakeRedis) Do(ctx context.Context, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx, args...)
	name, _ := args[0].(string)
	key, _ := args[1].(string)
	switch name {
	case "BF.RESERVE", "CF.RESERVE":
		cmd.SetVal("OK")
	case "BF.CARD":
		cmd.SetVal(int64(len(f.bloom[key])))
	case "BF.MADD":
		if f.bloom[key] == nil {
			f.bloom[key] = make(map[string]struct{})
		}
		out := make([]interface{}, 0, len(args)-2)
		for _, item := range args[2:] {
			f.bloom[key][item.(string)] = struct{}{}
			out = append(out, int64(1))
		}
		cmd.SetVal(out)
	case "BF.MEXISTS":
		out := make([]interface{}, 0, len(args)-2)
		for _, item := range args[2:] {
			_, ok := f.bloom[key][item.(string)]
			out = append(out, boolInt64(ok))
		}
		cmd.SetVal(out)
	case "CF.ADD":
		if f.cuckoo[key] == nil {
			f.cuckoo[key] = make(map[string]int)
		}
		f.cuckoo[key][args[2].(string)]++
		cmd.SetVal(int64(1))
	case "CF.ADDNX":
		if f.cuckoo[key] == nil {
			f.cuckoo[key] = make(map[string]int)
		}
		member := args[2].(string)
		if f.cuckoo[key][member] > 0 {
			cmd.SetVal(int64(0))
		} else {
			f.cuckoo[key][member] = 1
			cmd.SetVal(int64(1))
		}
	case "CF.DEL":
		member := args[2].(string)
		if f.cuckoo[key][member] > 0 {
			f.cuckoo[key][member]--
			cmd.SetVal(int64(1))
		} else {
			cmd.SetVal(int64(0))
		}
	case "CF.MEXISTS":
		out := make([]interface{}, 0, len(args)-2)
		for _, item := range args[2:] {
			out = append(out, boolInt64(f.cuckoo[key][item.(string)] > 0))
		}
		cmd.SetVal(out)
	default:
		cmd.SetErr(fmt.Errorf("unexpected command %q", name))
	}
	return cmd
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counters[key])
	return cmd
}

func (f *fakeRedis) Decr(ctx context.Context, key string) *redis.IntCmd {
	f.counters[key]--
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counters[key])
	return cmd
}

func (f *fakeRedis) IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd {
	f.counters[key] += value
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counters[key])
	return cmd
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.counters[key]; ok {
		cmd.SetVal(strconv.FormatInt(v, 10))
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.bloom, key)
		delete(f.cuckoo, key)
		delete(f.counters, key)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func redisEnabledConfig() *config.ModerationConfig {
	cfg := enabledConfig()
	cfg.FilterCache.Type = constants.FilterCacheRedis
	return cfg
}

func TestRedisCacheHideShowRoundTrip(t *testing.T) {
	adapter, mod, _ := newTestDeps(t)
	ctx := context.Background()
	fr := newFakeRedis()

	cache, err := New(redisEnabledConfig(), adapter, mod, fr, constants.RedisPrefixDefault)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	// 过滤器阳性要经版务库确认，先落举报行
	if err := mod.Exec(ctx, `
		insert into report_parent (board, num, op, public_access, mod_status)
		values (?, ?, 1, ?, ?)`,
		"g", 100, constants.PublicAccessHidden, constants.ModStatusOpen); err != nil {
		t.Fatalf("seed report failed: %v", err)
	}

	if err := cache.InsertPost(ctx, "g", 100, true); err != nil {
		t.Fatalf("hide failed: %v", err)
	}
	removed, err := cache.IsPostRemoved(ctx, "g", 100)
	if err != nil {
		t.Fatalf("is removed failed: %v", err)
	}
	if !removed {
		t.Fatalf("hidden post 100 should be removed")
	}

	// 重复隐藏不叠加 OP 计数
	if err := cache.InsertPost(ctx, "g", 100, true); err != nil {
		t.Fatalf("repeat hide failed: %v", err)
	}
	count, err := cache.GetOpThreadRemovedCount(ctx, "g")
	if err != nil {
		t.Fatalf("op count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("op count want 1 got %d", count)
	}

	if err := cache.DeletePost(ctx, "g", 100, true); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	removed, err = cache.IsPostRemoved(ctx, "g", 100)
	if err != nil {
		t.Fatalf("is removed failed: %v", err)
	}
	if removed {
		t.Fatalf("post 100 should be visible again")
	}
	count, err = cache.GetOpThreadRemovedCount(ctx, "g")
	if err != nil {
		t.Fatalf("op count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("op count want 0 got %d", count)
	}

	// 解除隐藏是幂等的
	if err := cache.DeletePost(ctx, "g", 100, true); err != nil {
		t.Fatalf("repeat show failed: %v", err)
	}
	count, err = cache.GetOpThreadRemovedCount(ctx, "g")
	if err != nil {
		t.Fatalf("op count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("op count want 0 got %d", count)
	}
}

func TestRedisCachePopulateCountsHiddenOps(t *testing.T) {
	adapter, mod, _ := newTestDeps(t)
	ctx := context.Background()

	// 两条隐藏 OP、一条隐藏回复，Init 后 OP 计数应为 2
	for _, row := range []struct {
		num uint32
		op  int
	}{{10, 1}, {20, 1}, {30, 0}} {
		if err := mod.Exec(ctx, `
			insert into report_parent (board, num, op, public_access, mod_status)
			values (?, ?, ?, ?, ?)`,
			"g", row.num, row.op, constants.PublicAccessHidden, constants.ModStatusOpen); err != nil {
			t.Fatalf("seed report failed: %v", err)
		}
	}

	cache, err := New(redisEnabledConfig(), adapter, mod, newFakeRedis(), constants.RedisPrefixDefault)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	if err := cache.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	count, err := cache.GetOpThreadRemovedCount(ctx, "g")
	if err != nil {
		t.Fatalf("op count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("op count want 2 got %d", count)
	}
	removed, err := cache.IsPostRemoved(ctx, "g", 10)
	if err != nil {
		t.Fatalf("is removed failed: %v", err)
	}
	if !removed {
		t.Fatalf("hidden op 10 should be removed")
	}
}
