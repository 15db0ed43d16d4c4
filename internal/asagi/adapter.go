package asagi

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/ayase-lite/ayase-lite/internal/db"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

const (
	indexThreadCount   = 10
	indexLatestReplies = 3
	catalogThreadCount = 150
	CatalogPageSize    = 15 // 每页 OP 数，目录分页总数也按它折算
	latestOpsPerBoard  = 5
)

// Adapter 将按板块分表的 Asagi 模式翻译为统一帖子记录
type Adapter struct {
	client *db.Client
	boards *Boards
}

// NewAdapter 创建适配器
func NewAdapter(client *db.Client, boards *Boards) *Adapter {
	return &Adapter{client: client, boards: boards}
}

// Boards 返回板块白名单
func (a *Adapter) Boards() *Boards {
	return a.boards
}

// NumOp (帖号, 是否OP) 对
type NumOp struct {
	Num uint32
	Op  bool
}

// CatalogPage 目录页分桶
type CatalogPage struct {
	Page    int            `json:"page"`
	Threads []*models.Post `json:"threads"`
}

// GenerateIndex 生成板块首页：按 time_bump 倒序取 10 个线程，
// 每个线程为 OP 加最新 3 条回帖，并附带线程内的反向引用表。
func (a *Adapter) GenerateIndex(ctx context.Context, board string, page int) (*models.BoardPage, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	dbType := a.client.Type()
	threadsTable := quoteIdent(dbType, board+"_threads")

	threadsSQL := fmt.Sprintf(`
		select thread_num, nreplies, nimages
		from %s
		order by time_bump desc
		limit %d
		%s`, threadsTable, indexThreadCount, offsetClause(page, indexThreadCount))

	threads, err := a.client.QueryMaps(ctx, threadsSQL)
	if err != nil {
		return nil, err
	}
	if len(threads.Rows) == 0 {
		return &models.BoardPage{Quotelinks: map[uint32][]uint32{}}, nil
	}

	threadNums := make([]uint32, 0, len(threads.Rows))
	threadSummaries := make(map[uint32]map[string]interface{}, len(threads.Rows))
	for _, row := range threads.Rows {
		num := rowUint32(row, "thread_num")
		threadNums = append(threadNums, num)
		threadSummaries[num] = row
	}

	args := numArgs(threadNums)
	inList := a.client.Placeholder().Size(len(threadNums))
	boardTable := quoteIdent(dbType, board)

	opSQL := fmt.Sprintf(`%s
		from %s
		where op = 1 and thread_num in (%s)`,
		getSelector(dbType, board), boardTable, inList)

	repliesSQL := fmt.Sprintf(`
		with latest_replies as (
			select
				num as reply_num,
				row_number() over (
					partition by %[1]s.thread_num order by %[1]s.num desc
				) as reply_number
			from %[1]s
			where op = 0 and thread_num in (%[2]s)
		)
		%[3]s
		from latest_replies
		left join %[1]s on latest_replies.reply_num = %[1]s.num
		where latest_replies.reply_number <= %[4]d`,
		boardTable, a.client.Placeholder().Size(len(threadNums)),
		getSelector(dbType, board), indexLatestReplies)

	ops, err := a.client.QueryMaps(ctx, opSQL, args...)
	if err != nil {
		return nil, err
	}
	replies, err := a.client.QueryMaps(ctx, repliesSQL, args...)
	if err != nil {
		return nil, err
	}
	quotelinks, err := a.threadQuotelinks(ctx, board, threadNums)
	if err != nil {
		return nil, err
	}

	threadPosts := make(map[uint32][]*models.Post, len(threadNums))
	for _, row := range ops.Rows {
		post := rowToPost(row)
		post.Title = HTMLTitle(post.Title)
		post.CommentHTML = HTMLComment(post.Comment, post.Num, board, false)
		if summary, ok := threadSummaries[post.Num]; ok {
			post.NReplies = rowUint32(summary, "nreplies")
			post.NImages = rowUint32(summary, "nimages")
		}
		threadPosts[post.Num] = append(threadPosts[post.Num], post)
	}
	// 回帖按 num 升序挂到各自线程后面
	replyPosts := make([]*models.Post, 0, len(replies.Rows))
	for _, row := range replies.Rows {
		replyPosts = append(replyPosts, rowToPost(row))
	}
	sort.Slice(replyPosts, func(i, j int) bool { return replyPosts[i].Num < replyPosts[j].Num })
	for _, post := range replyPosts {
		post.Title = HTMLTitle(post.Title)
		post.CommentHTML = HTMLComment(post.Comment, post.ThreadNum, board, false)
		threadPosts[post.ThreadNum] = append(threadPosts[post.ThreadNum], post)
	}

	pageOut := &models.BoardPage{Quotelinks: quotelinks}
	for _, num := range threadNums {
		if posts := threadPosts[num]; len(posts) > 0 {
			pageOut.Threads = append(pageOut.Threads, &models.Thread{Posts: posts})
		}
	}
	return pageOut, nil
}

// GenerateCatalog 生成目录：150 个 OP 按 time_bump 倒序，15 个一页分桶
func (a *Adapter) GenerateCatalog(ctx context.Context, board string, page int) ([]*CatalogPage, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	dbType := a.client.Type()

	threadsSQL := fmt.Sprintf(`
		select thread_num, nreplies, nimages
		from %s
		order by time_bump desc
		limit %d
		%s`, quoteIdent(dbType, board+"_threads"), catalogThreadCount, offsetClause(page, catalogThreadCount))

	threads, err := a.client.QueryMaps(ctx, threadsSQL)
	if err != nil {
		return nil, err
	}
	if len(threads.Rows) == 0 {
		return nil, nil
	}

	threadNums := make([]uint32, 0, len(threads.Rows))
	summaries := make(map[uint32]map[string]interface{}, len(threads.Rows))
	for _, row := range threads.Rows {
		num := rowUint32(row, "thread_num")
		threadNums = append(threadNums, num)
		summaries[num] = row
	}

	postsSQL := fmt.Sprintf(`%s
		from %s
		where op = 1 and thread_num in (%s)
		order by thread_num desc`,
		getSelector(dbType, board), quoteIdent(dbType, board),
		a.client.Placeholder().Size(len(threadNums)))

	rows, err := a.client.QueryMaps(ctx, postsSQL, numArgs(threadNums)...)
	if err != nil {
		return nil, err
	}

	var pages []*CatalogPage
	var current *CatalogPage
	for i, row := range rows.Rows {
		post := rowToPost(row)
		post.Title = HTMLTitle(post.Title)
		post.Comment = HTMLTitle(post.Comment)
		if summary, ok := summaries[post.Num]; ok {
			post.NReplies = rowUint32(summary, "nreplies")
			post.NImages = rowUint32(summary, "nimages")
		}
		if i%CatalogPageSize == 0 {
			current = &CatalogPage{Page: len(pages)}
			pages = append(pages, current)
		}
		current.Threads = append(current.Threads, post)
	}
	return pages, nil
}

// GenerateThread 生成线程视图：全部帖子按 num 升序，OP 带 nreplies/nimages
func (a *Adapter) GenerateThread(ctx context.Context, board string, threadNum uint32) (map[uint32][]uint32, *models.Thread, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, nil, err
	}
	dbType := a.client.Type()

	threadSQL := fmt.Sprintf(`
		select nreplies, nimages
		from %s
		where thread_num = %s`,
		quoteIdent(dbType, board+"_threads"), a.client.Placeholder().Qty())

	postsSQL := fmt.Sprintf(`%s
		from %s
		where thread_num = %s
		order by num asc`,
		getSelector(dbType, board), quoteIdent(dbType, board), a.client.Placeholder().Qty())

	summary, err := a.client.QueryMaps(ctx, threadSQL, threadNum)
	if err != nil {
		return nil, nil, err
	}
	rows, err := a.client.QueryMaps(ctx, postsSQL, threadNum)
	if err != nil {
		return nil, nil, err
	}
	if len(summary.Rows) == 0 || len(rows.Rows) == 0 {
		return map[uint32][]uint32{}, &models.Thread{}, nil
	}

	numComments := make(map[uint32]string, len(rows.Rows))
	order := make([]uint32, 0, len(rows.Rows))
	posts := make([]*models.Post, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		post := rowToPost(row)
		numComments[post.Num] = post.Comment
		order = append(order, post.Num)
		post.Title = HTMLTitle(post.Title)
		post.CommentHTML = HTMLComment(post.Comment, threadNum, board, false)
		posts = append(posts, post)
	}
	quotelinks := QuotelinkLookup(numComments, order)

	posts[0].NReplies = rowUint32(summary.Rows[0], "nreplies")
	posts[0].NImages = rowUint32(summary.Rows[0], "nimages")

	return quotelinks, &models.Thread{Posts: posts}, nil
}

// GeneratePost 取单帖并渲染
func (a *Adapter) GeneratePost(ctx context.Context, board string, num uint32) (map[uint32][]uint32, *models.Post, error) {
	post, err := a.GetPost(ctx, board, num)
	if err != nil || post == nil {
		return nil, nil, err
	}
	quotelinks := map[uint32][]uint32{}
	for _, quoted := range ExtractQuotelinks(post.Comment, false) {
		quotelinks[quoted] = append(quotelinks[quoted], post.Num)
	}
	post.Title = HTMLTitle(post.Title)
	post.CommentHTML = HTMLComment(post.Comment, post.ThreadNum, board, false)
	return quotelinks, post, nil
}

// GetPost 取单帖原始记录；不存在时返回 nil
func (a *Adapter) GetPost(ctx context.Context, board string, num uint32) (*models.Post, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	dbType := a.client.Type()
	sql := fmt.Sprintf(`%s
		from %s
		where num = %s`,
		getSelector(dbType, board), quoteIdent(dbType, board), a.client.Placeholder().Qty())
	rows, err := a.client.QueryMaps(ctx, sql, num)
	if err != nil {
		return nil, err
	}
	if len(rows.Rows) == 0 {
		return nil, nil
	}
	return rowToPost(rows.Rows[0]), nil
}

// GetOpThreadCount 线程总数
func (a *Adapter) GetOpThreadCount(ctx context.Context, board string) (int, error) {
	if err := a.boards.Validate(board); err != nil {
		return 0, err
	}
	rows, err := a.client.QueryRows(ctx,
		fmt.Sprintf("select count(*) from %s", quoteIdent(a.client.Type(), board+"_threads")))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(valueToInt64(rows[0][0])), nil
}

// GetLatestOpsAsCatalog 各板块最新 OP 汇成一页目录（落地页用）
func (a *Adapter) GetLatestOpsAsCatalog(ctx context.Context, boards []string) ([]*CatalogPage, error) {
	if err := a.boards.ValidateAll(boards); err != nil {
		return nil, err
	}
	dbType := a.client.Type()
	page := &CatalogPage{Page: 1}
	for _, board := range boards {
		sql := fmt.Sprintf(`%s
			from %s
			where op = 1
			order by num desc
			limit %d`,
			getSelector(dbType, board), quoteIdent(dbType, board), latestOpsPerBoard)
		rows, err := a.client.QueryMaps(ctx, sql)
		if err != nil {
			return nil, err
		}
		for _, row := range rows.Rows {
			post := rowToPost(row)
			post.Title = HTMLTitle(post.Title)
			post.Comment = HTMLTitle(post.Comment)
			page.Threads = append(page.Threads, post)
		}
	}
	return []*CatalogPage{page}, nil
}

// GetThreadNumsAfter 按升序取 after 之后的线程号，一次最多 limit 个。
// 装载管线靠它做键集翻页，避免大偏移扫描。
func (a *Adapter) GetThreadNumsAfter(ctx context.Context, board string, after uint32, limit int) ([]uint32, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf(`
		select thread_num from %s
		where op = 1 and thread_num > %s
		order by thread_num asc
		limit %d`,
		quoteIdent(a.client.Type(), board), a.client.Placeholder().Qty(), limit)
	rows, err := a.client.QueryRows(ctx, sql, after)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, len(rows))
	for _, row := range rows {
		out = append(out, uint32(valueToInt64(row[0])))
	}
	return out, nil
}

// GetThreadPosts 取一批线程的全部帖子，按帖号升序。
// 同一批内线程完整，反向引用表可以就地构建。
func (a *Adapter) GetThreadPosts(ctx context.Context, board string, threadNums []uint32) ([]*models.Post, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	if len(threadNums) == 0 {
		return nil, nil
	}
	dbType := a.client.Type()
	sql := fmt.Sprintf(`%s
		from %s
		where thread_num in (%s)
		order by num asc`,
		getSelector(dbType, board), quoteIdent(dbType, board),
		a.client.Placeholder().Size(len(threadNums)))
	rows, err := a.client.QueryMaps(ctx, sql, numArgs(threadNums)...)
	if err != nil {
		return nil, err
	}
	posts := make([]*models.Post, 0, len(rows.Rows))
	for _, row := range rows.Rows {
		posts = append(posts, rowToPost(row))
	}
	return posts, nil
}

// GetDeletedNumOps 被上游标记删除的所有 (帖号, op)
func (a *Adapter) GetDeletedNumOps(ctx context.Context, board string) ([]NumOp, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("select num, op from %s where deleted = 1",
		quoteIdent(a.client.Type(), board))
	return a.queryNumOps(ctx, sql)
}

// GetNumOpsByRegex 评论匹配正则的所有 (帖号, op)。
// MySQL/Postgres 在库内匹配；SQLite 无内建 regexp，退回到客户端过滤。
func (a *Adapter) GetNumOpsByRegex(ctx context.Context, board, pattern string) ([]NumOp, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, nil
	}
	dbType := a.client.Type()
	table := quoteIdent(dbType, board)

	switch dbType {
	case "mysql":
		sql := fmt.Sprintf("select num, op from %s where comment is not null and comment regexp %s",
			table, a.client.Placeholder().Qty())
		return a.queryNumOps(ctx, sql, pattern)
	case "postgres":
		sql := fmt.Sprintf("select num, op from %s where comment is not null and comment ~ %s",
			table, a.client.Placeholder().Qty())
		return a.queryNumOps(ctx, sql, pattern)
	default:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex filter: %w", err)
		}
		rows, err := a.client.QueryRows(ctx,
			fmt.Sprintf("select num, op, comment from %s where comment is not null", table))
		if err != nil {
			return nil, err
		}
		var out []NumOp
		for _, row := range rows {
			comment, _ := row[2].(string)
			if re.MatchString(comment) {
				out = append(out, NumOp{
					Num: uint32(valueToInt64(row[0])),
					Op:  valueToInt64(row[1]) != 0,
				})
			}
		}
		return out, nil
	}
}

// ConfirmDeletedNums 在候选帖号中确认真正带上游删除标记的子集
func (a *Adapter) ConfirmDeletedNums(ctx context.Context, board string, nums []uint32) ([]uint32, error) {
	if err := a.boards.Validate(board); err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf("select num from %s where deleted = 1 and num in (%s)",
		quoteIdent(a.client.Type(), board), a.client.Placeholder().Size(len(nums)))
	rows, err := a.client.QueryRows(ctx, sql, numArgs(nums)...)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, len(rows))
	for _, row := range rows {
		out = append(out, uint32(valueToInt64(row[0])))
	}
	return out, nil
}

// MovePostToDeleteTable 把帖子搬到 {board}_deleted 表并从原表删除。
// 目标表不存在时保留原行并返回错误。
func (a *Adapter) MovePostToDeleteTable(ctx context.Context, board string, num uint32) error {
	if err := a.boards.Validate(board); err != nil {
		return err
	}
	dbType := a.client.Type()
	srcTable := quoteIdent(dbType, board)
	dstTable := quoteIdent(dbType, board+"_deleted")

	phg := a.client.Placeholder()
	insertSQL := fmt.Sprintf(`
		insert into %s (num, thread_num, op, timestamp, timestamp_expired,
			preview_orig, preview_w, preview_h,
			media_filename, media_w, media_h, media_size, media_hash, media_orig,
			spoiler, deleted, capcode, name, trip, title, comment,
			sticky, locked, poster_hash, poster_country, exif,
			media_id, poster_ip, subnum)
		select num, thread_num, op, timestamp, timestamp_expired,
			preview_orig, preview_w, preview_h,
			media_filename, media_w, media_h, media_size, media_hash, media_orig,
			spoiler, deleted, capcode, name, trip, title, comment,
			sticky, locked, poster_hash, poster_country, exif,
			0, '0', 0
		from %s where num = %s`, dstTable, srcTable, phg.Qty())

	if err := a.client.Exec(ctx, insertSQL, num); err != nil {
		logger.Warnw("move_post_to_delete_table_insert_failed",
			"board", board, "num", num, "error", err)
		return fmt.Errorf("insert into %s_deleted failed: %w", board, err)
	}

	deleteSQL := fmt.Sprintf("delete from %s where num = %s",
		srcTable, a.client.Placeholder().Qty())
	return a.client.Exec(ctx, deleteSQL, num)
}

// threadQuotelinks 查询线程集合的评论并构建反向引用表
func (a *Adapter) threadQuotelinks(ctx context.Context, board string, threadNums []uint32) (map[uint32][]uint32, error) {
	if len(threadNums) == 0 {
		return map[uint32][]uint32{}, nil
	}
	dbType := a.client.Type()
	sql := fmt.Sprintf(`
		select num, comment
		from %s
		where comment is not null and thread_num in (%s)
		order by num asc`,
		quoteIdent(dbType, board), a.client.Placeholder().Size(len(threadNums)))

	rows, err := a.client.QueryRows(ctx, sql, numArgs(threadNums)...)
	if err != nil {
		return nil, err
	}
	numComments := make(map[uint32]string, len(rows))
	order := make([]uint32, 0, len(rows))
	for _, row := range rows {
		num := uint32(valueToInt64(row[0]))
		comment, _ := row[1].(string)
		numComments[num] = comment
		order = append(order, num)
	}
	return QuotelinkLookup(numComments, order), nil
}

func (a *Adapter) queryNumOps(ctx context.Context, sql string, args ...interface{}) ([]NumOp, error) {
	rows, err := a.client.QueryRows(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out := make([]NumOp, 0, len(rows))
	for _, row := range rows {
		out = append(out, NumOp{
			Num: uint32(valueToInt64(row[0])),
			Op:  valueToInt64(row[1]) != 0,
		})
	}
	return out, nil
}

func numArgs(nums []uint32) []interface{} {
	args := make([]interface{}, len(nums))
	for i, n := range nums {
		args[i] = n
	}
	return args
}
