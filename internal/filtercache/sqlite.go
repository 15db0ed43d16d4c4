package filtercache

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

const boardNumsCacheSchema = `
	create table if not exists board_nums_cache (
		board text not null,
		num integer not null,
		op integer not null default 0,
		primary key (board, num)
	)
`

const pairBatchSize = 500

// sqliteCache 把过滤集合存在版务库的一张表里。
// 任何 gorm 方言都能跑，默认配置下版务库是 sqlite。
type sqliteCache struct {
	base
}

func (s *sqliteCache) Init(ctx context.Context) error {
	if !s.rules.enabled {
		return nil
	}
	if err := s.mod.RunScript(ctx, boardNumsCacheSchema); err != nil {
		return fmt.Errorf("create board_nums_cache failed: %w", err)
	}
	populated, err := s.isPopulated(ctx)
	if err != nil {
		return err
	}
	if populated {
		return nil
	}
	return s.populate(ctx)
}

func (s *sqliteCache) isPopulated(ctx context.Context) (bool, error) {
	rows, err := s.mod.QueryRows(ctx, "select count(*) from board_nums_cache")
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && toInt64(rows[0][0]) > 0, nil
}

func (s *sqliteCache) populate(ctx context.Context) error {
	for _, source := range s.populateSources() {
		for _, board := range s.adapter.Boards().All() {
			numOps, err := source(ctx, board)
			if err != nil {
				return err
			}
			for _, no := range numOps {
				if err := s.insertIgnore(ctx, board, no.Num, no.Op); err != nil {
					return err
				}
			}
		}
	}

	rows, err := s.hiddenReportRows(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		board, _ := row[0].(string)
		if err := s.insertIgnore(ctx, board, uint32(toInt64(row[1])), toInt64(row[2]) != 0); err != nil {
			return err
		}
	}
	logger.Infow("filter_cache_populated", "backend", "sqlite")
	return nil
}

func (s *sqliteCache) insertIgnore(ctx context.Context, board string, num uint32, op bool) error {
	var stmt string
	switch s.mod.Type() {
	case "mysql":
		stmt = "insert ignore into board_nums_cache (board, num, op) values (?, ?, ?)"
	case "postgres":
		stmt = "insert into board_nums_cache (board, num, op) values (?, ?, ?) on conflict (board, num) do nothing"
	default:
		stmt = "insert or ignore into board_nums_cache (board, num, op) values (?, ?, ?)"
	}
	return s.mod.Exec(ctx, stmt, board, num, boolFlag(op))
}

func (s *sqliteCache) IsPostRemoved(ctx context.Context, board string, num uint32) (bool, error) {
	rows, err := s.mod.QueryRows(ctx,
		"select num from board_nums_cache where board = ? and num = ?", board, num)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *sqliteCache) GetOpThreadRemovedCount(ctx context.Context, board string) (int, error) {
	rows, err := s.mod.QueryRows(ctx,
		"select count(*) from board_nums_cache where board = ? and op = 1", board)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(toInt64(rows[0][0])), nil
}

func (s *sqliteCache) GetBoardNumPairs(ctx context.Context, posts []*models.Post) (map[BoardNum]struct{}, error) {
	pairs := make(map[BoardNum]struct{})
	for start := 0; start < len(posts); start += pairBatchSize {
		end := start + pairBatchSize
		if end > len(posts) {
			end = len(posts)
		}
		if err := s.queryPairBatch(ctx, posts[start:end], pairs); err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

func (s *sqliteCache) queryPairBatch(ctx context.Context, posts []*models.Post, pairs map[BoardNum]struct{}) error {
	placeholders := make([]string, len(posts))
	args := make([]interface{}, 0, len(posts)*2)
	for i, post := range posts {
		placeholders[i] = "(?, ?)"
		args = append(args, post.Board, post.Num)
	}
	sql := fmt.Sprintf(`
		select board, num
		from board_nums_cache
		where (board, num) in (%s)`, strings.Join(placeholders, ","))

	rows, err := s.mod.QueryRows(ctx, sql, args...)
	if err != nil {
		return err
	}
	for _, row := range rows {
		board, _ := row[0].(string)
		pairs[BoardNum{Board: board, Num: uint32(toInt64(row[1]))}] = struct{}{}
	}
	return nil
}

func (s *sqliteCache) InsertPost(ctx context.Context, board string, num uint32, op bool) error {
	return s.insertIgnore(ctx, board, num, op)
}

func (s *sqliteCache) DeletePost(ctx context.Context, board string, num uint32, op bool) error {
	return s.mod.Exec(ctx,
		"delete from board_nums_cache where board = ? and num = ? and op = ?",
		board, num, boolFlag(op))
}

func (s *sqliteCache) FilterReportedPosts(ctx context.Context, posts []*models.Post, isAuthority bool) ([]*models.Post, error) {
	return s.filterReported(ctx, s, posts, isAuthority)
}

func (s *sqliteCache) Teardown(ctx context.Context) error {
	return s.mod.Exec(ctx, "delete from board_nums_cache")
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		var out int64
		_, _ = fmt.Sscan(n, &out)
		return out
	default:
		return 0
	}
}
