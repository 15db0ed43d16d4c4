package filtercache

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

const filterInsertBatch = 1000

// redisCache 基于 RedisBloom 模块：
// 每板块一个布隆过滤器跟踪上游删除（不支持删除，整体重建），
// 一个布谷鸟过滤器跟踪被隐藏的举报帖（支持删除）。
// 过滤器阳性要再过一遍权威 SQL 才算命中。
type redisCache struct {
	base
	rdb    redis.UniversalClient
	prefix string
	tuning config.FilterCacheConfig
}

func (r *redisCache) bloomKey(board string) string {
	return fmt.Sprintf("%s:fc:%s:%s", r.prefix, constants.RedisSubkeyDeleted, board)
}

func (r *redisCache) cuckooKey(board string) string {
	return fmt.Sprintf("%s:fc:%s:%s", r.prefix, constants.RedisSubkeyReported, board)
}

func (r *redisCache) opCountKey(board string) string {
	return fmt.Sprintf("%s:fc:%s:%s", r.prefix, constants.RedisSubkeyOpCount, board)
}

// u32Bytes 帖号的过滤器成员编码：4 字节大端
func u32Bytes(num uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], num)
	return string(b[:])
}

func (r *redisCache) Init(ctx context.Context) error {
	if !r.rules.enabled {
		return nil
	}
	for _, board := range r.adapter.Boards().All() {
		// 已存在时 RESERVE 返回错误，忽略
		_ = r.rdb.Do(ctx, "BF.RESERVE", r.bloomKey(board),
			r.tuning.BloomErrorRate, r.tuning.BloomCapacity,
			"EXPANSION", r.tuning.BloomExpansion).Err()
		_ = r.rdb.Do(ctx, "CF.RESERVE", r.cuckooKey(board),
			r.tuning.CuckooCapacity,
			"BUCKETSIZE", r.tuning.CuckooBucketSize,
			"MAXITERATIONS", r.tuning.CuckooMaxIteration).Err()
	}
	populated, err := r.isPopulated(ctx)
	if err != nil {
		return err
	}
	if populated {
		return nil
	}
	return r.populate(ctx)
}

func (r *redisCache) isPopulated(ctx context.Context) (bool, error) {
	for _, board := range r.adapter.Boards().All() {
		card, err := r.rdb.Do(ctx, "BF.CARD", r.bloomKey(board)).Int64()
		if err != nil && !isRedisNil(err) {
			return false, err
		}
		if card > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *redisCache) populate(ctx context.Context) error {
	for _, source := range r.populateSources() {
		for _, board := range r.adapter.Boards().All() {
			numOps, err := source(ctx, board)
			if err != nil {
				return err
			}
			if len(numOps) == 0 {
				continue
			}
			nums := make([]uint32, 0, len(numOps))
			opCount := int64(0)
			for _, no := range numOps {
				nums = append(nums, no.Num)
				if no.Op {
					opCount++
				}
			}
			if err := r.bloomAdd(ctx, board, nums); err != nil {
				return err
			}
			if opCount > 0 {
				if err := r.rdb.IncrBy(ctx, r.opCountKey(board), opCount).Err(); err != nil {
					return err
				}
			}
		}
	}

	rows, err := r.hiddenReportRows(ctx)
	if err != nil {
		return err
	}
	boardNums := make(map[string][]uint32)
	boardOps := make(map[string]int64)
	for _, row := range rows {
		board, _ := row[0].(string)
		boardNums[board] = append(boardNums[board], uint32(toInt64(row[1])))
		if toInt64(row[2]) != 0 {
			boardOps[board]++
		}
	}
	for board, nums := range boardNums {
		if err := r.cuckooAdd(ctx, board, nums); err != nil {
			return err
		}
		if boardOps[board] > 0 {
			if err := r.rdb.IncrBy(ctx, r.opCountKey(board), boardOps[board]).Err(); err != nil {
				return err
			}
		}
	}
	logger.Infow("filter_cache_populated", "backend", "redis")
	return nil
}

func (r *redisCache) bloomAdd(ctx context.Context, board string, nums []uint32) error {
	for start := 0; start < len(nums); start += filterInsertBatch {
		end := start + filterInsertBatch
		if end > len(nums) {
			end = len(nums)
		}
		args := make([]interface{}, 0, len(nums[start:end])+2)
		args = append(args, "BF.MADD", r.bloomKey(board))
		for _, num := range nums[start:end] {
			args = append(args, u32Bytes(num))
		}
		if err := r.rdb.Do(ctx, args...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *redisCache) cuckooAdd(ctx context.Context, board string, nums []uint32) error {
	for start := 0; start < len(nums); start += filterInsertBatch {
		end := start + filterInsertBatch
		if end > len(nums) {
			end = len(nums)
		}
		for _, num := range nums[start:end] {
			if err := r.rdb.Do(ctx, "CF.ADD", r.cuckooKey(board), u32Bytes(num)).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// filterMaybeNums 过滤器批量成员测试，返回可能命中的帖号
func (r *redisCache) filterMaybeNums(ctx context.Context, cmd, key string, nums []uint32) ([]uint32, error) {
	args := make([]interface{}, 0, len(nums)+2)
	args = append(args, cmd, key)
	for _, num := range nums {
		args = append(args, u32Bytes(num))
	}
	res, err := r.rdb.Do(ctx, args...).Int64Slice()
	if err != nil {
		return nil, err
	}
	var maybe []uint32
	for i, flag := range res {
		if i < len(nums) && flag != 0 {
			maybe = append(maybe, nums[i])
		}
	}
	return maybe, nil
}

// getDeleted 布隆阳性经归档库确认
func (r *redisCache) getDeleted(ctx context.Context, board string, nums []uint32) ([]uint32, error) {
	maybe, err := r.filterMaybeNums(ctx, "BF.MEXISTS", r.bloomKey(board), nums)
	if err != nil || len(maybe) == 0 {
		return nil, err
	}
	return r.adapter.ConfirmDeletedNums(ctx, board, maybe)
}

// getReported 布谷鸟阳性经版务库确认
func (r *redisCache) getReported(ctx context.Context, board string, nums []uint32) ([]uint32, error) {
	maybe, err := r.filterMaybeNums(ctx, "CF.MEXISTS", r.cuckooKey(board), nums)
	if err != nil || len(maybe) == 0 {
		return nil, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(maybe)), ",")
	args := []interface{}{board, constants.PublicAccessHidden, constants.ModStatusOpen}
	for _, num := range maybe {
		args = append(args, num)
	}
	rows, err := r.mod.QueryRows(ctx, fmt.Sprintf(`
		select num from report_parent
		where board = ? and public_access = ? and mod_status = ? and num in (%s)`,
		placeholders), args...)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, len(rows))
	for _, row := range rows {
		out = append(out, uint32(toInt64(row[0])))
	}
	return out, nil
}

func (r *redisCache) IsPostRemoved(ctx context.Context, board string, num uint32) (bool, error) {
	deleted, err := r.getDeleted(ctx, board, []uint32{num})
	if err != nil {
		return false, err
	}
	if len(deleted) > 0 {
		return true, nil
	}
	reported, err := r.getReported(ctx, board, []uint32{num})
	if err != nil {
		return false, err
	}
	return len(reported) > 0, nil
}

func (r *redisCache) GetOpThreadRemovedCount(ctx context.Context, board string) (int, error) {
	count, err := r.rdb.Get(ctx, r.opCountKey(board)).Int()
	if err != nil {
		if isRedisNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (r *redisCache) GetBoardNumPairs(ctx context.Context, posts []*models.Post) (map[BoardNum]struct{}, error) {
	pairs := make(map[BoardNum]struct{})
	if len(posts) == 0 {
		return pairs, nil
	}
	boardNums := make(map[string][]uint32)
	for _, post := range posts {
		boardNums[post.Board] = append(boardNums[post.Board], post.Num)
	}
	for board, nums := range boardNums {
		deleted, err := r.getDeleted(ctx, board, nums)
		if err != nil {
			return nil, err
		}
		reported, err := r.getReported(ctx, board, nums)
		if err != nil {
			return nil, err
		}
		for _, num := range deleted {
			pairs[BoardNum{Board: board, Num: num}] = struct{}{}
		}
		for _, num := range reported {
			pairs[BoardNum{Board: board, Num: num}] = struct{}{}
		}
	}
	return pairs, nil
}

// InsertPost 版务隐藏一条举报帖：写入布谷鸟过滤器。
// 上游删除只在 populate 时进布隆过滤器，运行期没有写入口。
// ADDNX 保证重复隐藏不会堆积副本，也让 OP 计数只在首次命中时递增。
func (r *redisCache) InsertPost(ctx context.Context, board string, num uint32, op bool) error {
	added, err := r.rdb.Do(ctx, "CF.ADDNX", r.cuckooKey(board), u32Bytes(num)).Int64()
	if err != nil {
		return err
	}
	if op && added == 1 {
		return r.rdb.Incr(ctx, r.opCountKey(board)).Err()
	}
	return nil
}

// DeletePost 版务解除隐藏：从布谷鸟过滤器里删除
func (r *redisCache) DeletePost(ctx context.Context, board string, num uint32, op bool) error {
	removed, err := r.rdb.Do(ctx, "CF.DEL", r.cuckooKey(board), u32Bytes(num)).Int64()
	if err != nil {
		return err
	}
	if op && removed == 1 {
		return r.rdb.Decr(ctx, r.opCountKey(board)).Err()
	}
	return nil
}

func (r *redisCache) FilterReportedPosts(ctx context.Context, posts []*models.Post, isAuthority bool) ([]*models.Post, error) {
	return r.filterReported(ctx, r, posts, isAuthority)
}

func (r *redisCache) Teardown(ctx context.Context) error {
	var keys []string
	for _, board := range r.adapter.Boards().All() {
		keys = append(keys, r.bloomKey(board), r.cuckooKey(board), r.opCountKey(board))
	}
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func isRedisNil(err error) bool {
	return err == redis.Nil
}
