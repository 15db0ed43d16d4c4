package asagi

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/models"
)

// SearchParams SQL 搜索条件；零值字段不参与过滤
type SearchParams struct {
	Boards []string

	Title         string
	Comment       string
	MediaFilename string
	MediaHash     string
	Trip          string

	DateBefore int64
	DateAfter  int64

	HasFile   bool
	HasNoFile bool

	IsOp         bool
	IsNotOp      bool
	IsDeleted    bool
	IsNotDeleted bool
	IsSticky     bool
	IsNotSticky  bool

	Width   uint32
	Height  uint32
	Capcode string
	Num     uint32

	// OP 分面：约束到标题/评论匹配的线程
	OpTitle   string
	OpComment string

	// 插件交集：各板块允许的帖号集合
	BoardNums map[string][]uint32

	OrderBy     string
	HitsPerPage int
	Page        int
}

// SearchPosts SQL 搜索路径：逐板块统计命中数，把当前页的配额
// 分摊到各板块后逐板块取行，按 ts_unix 排序
func (a *Adapter) SearchPosts(ctx context.Context, p *SearchParams, maxHits int) ([]*models.Post, int, error) {
	boards := p.Boards
	if len(boards) == 0 {
		return nil, 0, nil
	}
	if p.BoardNums != nil {
		boards = intersectBoards(boards, p.BoardNums)
		if len(boards) == 0 {
			return nil, 0, nil
		}
	}
	if err := a.boards.ValidateAll(boards); err != nil {
		return nil, 0, err
	}

	orderBy := p.OrderBy
	if orderBy != "asc" {
		orderBy = "desc"
	}

	hitsPerPage := p.HitsPerPage
	if hitsPerPage < 1 {
		hitsPerPage = 1
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if maxHits > 0 && page*hitsPerPage > maxHits {
		page = maxHits / hitsPerPage
		if page < 1 {
			page = 1
		}
	}

	// 每板块命中数
	boardHits := make([]int, len(boards))
	total := 0
	for i, board := range boards {
		where, args := a.buildWhere(board, p)
		countSQL := fmt.Sprintf("select count(*) from %s %s",
			quoteIdent(a.client.Type(), board), where)
		rows, err := a.client.QueryRows(ctx, countSQL, args...)
		if err != nil {
			return nil, 0, err
		}
		if len(rows) > 0 {
			boardHits[i] = int(valueToInt64(rows[0][0]))
		}
		total += boardHits[i]
	}
	if maxHits > 0 && total > maxHits {
		total = maxHits
	}
	if total == 0 {
		return nil, 0, nil
	}

	// 把全局 offset 映射到各板块的 (offset, limit)
	globalOffset := (page - 1) * hitsPerPage
	remainingSkip := globalOffset
	remainingTake := hitsPerPage

	var posts []*models.Post
	for i, board := range boards {
		if remainingTake <= 0 {
			break
		}
		if boardHits[i] == 0 {
			continue
		}
		if remainingSkip >= boardHits[i] {
			remainingSkip -= boardHits[i]
			continue
		}
		take := boardHits[i] - remainingSkip
		if take > remainingTake {
			take = remainingTake
		}

		where, args := a.buildWhere(board, p)
		sql := fmt.Sprintf(`%s
			from %s
			%s
			order by ts_unix %s, num asc
			limit %d offset %d`,
			getSelector(a.client.Type(), board), quoteIdent(a.client.Type(), board),
			where, orderBy, take, remainingSkip)

		rows, err := a.client.QueryMaps(ctx, sql, args...)
		if err != nil {
			return nil, 0, err
		}
		for _, row := range rows.Rows {
			posts = append(posts, rowToPost(row))
		}
		remainingSkip = 0
		remainingTake -= take
	}
	return posts, total, nil
}

// buildWhere 生成单板块 where 子句；占位符生成器对每条语句都是新的
func (a *Adapter) buildWhere(board string, p *SearchParams) (string, []interface{}) {
	phg := a.client.Placeholder()
	var parts []string
	var args []interface{}

	addLike := func(column, value string) {
		if value == "" {
			return
		}
		parts = append(parts, fmt.Sprintf("%s like %s", column, phg.Qty()))
		args = append(args, "%"+value+"%")
	}
	addEq := func(fragment string, value interface{}) {
		parts = append(parts, fmt.Sprintf(fragment, phg.Qty()))
		args = append(args, value)
	}

	addLike("title", p.Title)
	addLike("comment", p.Comment)
	addLike("media_filename", p.MediaFilename)
	if p.MediaHash != "" {
		addEq("media_hash = %s", p.MediaHash)
	}
	if p.Trip != "" {
		addEq("trip = %s", p.Trip)
	}
	if p.DateBefore > 0 {
		addEq("timestamp <= %s", p.DateBefore)
	}
	if p.DateAfter > 0 {
		addEq("timestamp >= %s", p.DateAfter)
	}
	if p.HasNoFile {
		parts = append(parts, "media_filename is null")
	}
	if p.HasFile {
		parts = append(parts, "media_filename is not null")
	}
	if p.IsOp {
		parts = append(parts, "op = 1")
	}
	if p.IsNotOp {
		parts = append(parts, "op = 0")
	}
	if p.IsDeleted {
		parts = append(parts, "deleted = 1")
	}
	if p.IsNotDeleted {
		parts = append(parts, "deleted = 0")
	}
	if p.IsSticky {
		parts = append(parts, "sticky = 1")
	}
	if p.IsNotSticky {
		parts = append(parts, "sticky = 0")
	}
	if p.Width > 0 {
		addEq("media_w >= %s", p.Width)
	}
	if p.Height > 0 {
		addEq("media_h >= %s", p.Height)
	}
	if p.Capcode != "" && p.Capcode != "any" {
		addEq("capcode = %s", models.CapcodeToLetter(p.Capcode))
	}
	if p.Num > 0 {
		addEq("num = %s", p.Num)
	}

	// OP 分面子查询
	table := quoteIdent(a.client.Type(), board)
	switch {
	case p.OpTitle != "" && p.OpComment != "":
		parts = append(parts, fmt.Sprintf(
			"thread_num in (select thread_num from %s where op = 1 and title like %s and comment like %s)",
			table, phg.Qty(), phg.Qty()))
		args = append(args, "%"+p.OpTitle+"%", "%"+p.OpComment+"%")
	case p.OpTitle != "":
		parts = append(parts, fmt.Sprintf(
			"thread_num in (select thread_num from %s where op = 1 and title like %s)",
			table, phg.Qty()))
		args = append(args, "%"+p.OpTitle+"%")
	case p.OpComment != "":
		parts = append(parts, fmt.Sprintf(
			"thread_num in (select thread_num from %s where op = 1 and comment like %s)",
			table, phg.Qty()))
		args = append(args, "%"+p.OpComment+"%")
	}

	// 插件给出的帖号集合
	if nums, ok := p.BoardNums[board]; ok && len(nums) > 0 {
		parts = append(parts, fmt.Sprintf("num in (%s)", phg.Size(len(nums))))
		args = append(args, numArgs(nums)...)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "where " + strings.Join(parts, " and "), args
}

// intersectBoards 只保留插件结果中出现的板块
func intersectBoards(boards []string, boardNums map[string][]uint32) []string {
	var out []string
	for _, board := range boards {
		if _, ok := boardNums[board]; ok {
			out = append(out, board)
		}
	}
	return out
}
