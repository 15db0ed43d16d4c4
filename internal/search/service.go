package search

import (
	"context"
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/codec"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/filtercache"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/index"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// Service 搜索编排：SQL 与索引两条路径，共用表单校验、
// 过滤缓存、渲染与分页
type Service struct {
	indexCfg *config.SearchConfig
	sqlCfg   *config.SearchConfig
	mediaCfg *config.MediaConfig
	adapter  *asagi.Adapter
	provider index.Provider
	fcache   filtercache.Cache
	plugins  []Plugin
}

// NewService 创建搜索服务；provider 在索引搜索关闭时可为 nil，
// mediaCfg 为 nil 时画廊搜索不做媒体板块限制
func NewService(indexCfg, sqlCfg *config.SearchConfig, mediaCfg *config.MediaConfig, adapter *asagi.Adapter, provider index.Provider, fcache filtercache.Cache) *Service {
	return &Service{
		indexCfg: indexCfg,
		sqlCfg:   sqlCfg,
		mediaCfg: mediaCfg,
		adapter:  adapter,
		provider: provider,
		fcache:   fcache,
	}
}

// Result 一次搜索的完整结果
type Result struct {
	Posts      []*models.Post `json:"posts"`
	TotalHits  int            `json:"total_hits"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	PageWindow []int          `json:"page_window"`
	Gallery    bool           `json:"gallery,omitempty"`
	Flash      string         `json:"flash,omitempty"`
}

// emptyResult 带提示语的空结果页；后端故障或画廊无可用板块时
// 搜索页保持 200，用户可以修改条件重试
func (s *Service) emptyResult(f *Form, flash string) *Result {
	return &Result{
		Posts:      []*models.Post{},
		Page:       1,
		TotalPages: 1,
		PageWindow: pageWindow(1, 1),
		Gallery:    f.GalleryMode,
		Flash:      flash,
	}
}

// galleryBoards 画廊模式只保留提供媒体服务的板块；
// 一个都不剩时返回 false，调用方给空结果加提示
func (s *Service) galleryBoards(f *Form) bool {
	if !f.GalleryMode || s.mediaCfg == nil {
		return true
	}
	serving := make(map[string]struct{}, len(s.mediaCfg.BoardsWithImage)+len(s.mediaCfg.BoardsWithThumb))
	for _, board := range s.mediaCfg.BoardsWithImage {
		serving[board] = struct{}{}
	}
	for _, board := range s.mediaCfg.BoardsWithThumb {
		serving[board] = struct{}{}
	}
	kept := f.Boards[:0]
	for _, board := range f.Boards {
		if _, ok := serving[board]; ok {
			kept = append(kept, board)
		}
	}
	f.Boards = kept
	return len(f.Boards) > 0
}

// SearchSQL SQL 搜索路径
func (s *Service) SearchSQL(ctx context.Context, f *Form, isAuthority bool) (*Result, error) {
	if !s.sqlCfg.Enabled {
		return nil, response.NewUserInputError("sql search is disabled")
	}
	f.Normalize(s.sqlCfg)
	if err := f.Validate(s.adapter.Boards()); err != nil {
		return nil, err
	}
	if !s.galleryBoards(f) {
		return s.emptyResult(f, "none of the selected boards serve media"), nil
	}

	boardNums, pluginApplied, err := s.runPlugins(ctx, f)
	if err != nil {
		return nil, err
	}
	if pluginApplied && len(boardNums) == 0 {
		return s.finish(ctx, f, nil, 0, pluginApplied, isAuthority, false)
	}

	after, before, err := f.DateBounds()
	if err != nil {
		return nil, err
	}
	params := &asagi.SearchParams{
		Boards:        f.Boards,
		Title:         f.Title,
		Comment:       f.Comment,
		MediaFilename: f.MediaFile,
		MediaHash:     f.MediaHash,
		Trip:          f.Tripcode,
		DateBefore:    before,
		DateAfter:     after,
		HasFile:       f.HasFile,
		HasNoFile:     f.HasNoFile,
		IsOp:          f.IsOp,
		IsNotOp:       f.IsNotOp,
		IsDeleted:     f.IsDeleted,
		IsNotDeleted:  f.IsNotDeleted,
		IsSticky:      f.IsSticky,
		IsNotSticky:   f.IsNotSticky,
		Width:         f.Width,
		Height:        f.Height,
		Capcode:       f.Capcode,
		Num:           f.Num,
		OpTitle:       f.OpTitle,
		OpComment:     f.OpComment,
		BoardNums:     boardNums,
		OrderBy:       f.OrderBy,
		HitsPerPage:   f.HitsPerPage,
		Page:          f.Page,
	}
	posts, total, err := s.adapter.SearchPosts(ctx, params, s.sqlCfg.MaxHits)
	if err != nil {
		return nil, err
	}

	// SQL 路径的高亮在本地打标记，渲染时统一替换成 span
	if s.sqlCfg.Highlight && !f.GalleryMode {
		commentRe := termPattern(f.Comment)
		titleRe := termPattern(f.Title)
		for _, post := range posts {
			post.Comment = markTerms(commentRe, post.Comment)
			post.Title = markTerms(titleRe, post.Title)
		}
	}
	return s.finish(ctx, f, posts, total, pluginApplied, isAuthority, s.sqlCfg.Highlight && !f.GalleryMode)
}

// SearchIndex 索引搜索路径
func (s *Service) SearchIndex(ctx context.Context, f *Form, isAuthority bool) (*Result, error) {
	if !s.indexCfg.Enabled || s.provider == nil {
		return nil, response.NewUserInputError("index search is disabled")
	}
	f.Normalize(s.indexCfg)
	if err := f.Validate(s.adapter.Boards()); err != nil {
		return nil, err
	}
	if !s.galleryBoards(f) {
		return s.emptyResult(f, "none of the selected boards serve media"), nil
	}

	boardNums, pluginApplied, err := s.runPlugins(ctx, f)
	if err != nil {
		return nil, err
	}
	if pluginApplied && len(boardNums) == 0 {
		return s.finish(ctx, f, nil, 0, pluginApplied, isAuthority, false)
	}

	var hits []*index.Hit
	var total int
	if f.OpTitle != "" || f.OpComment != "" {
		hits, total, err = s.searchOpFaceted(ctx, f)
	} else {
		q, qerr := s.buildIndexQuery(f, f.Boards, nil)
		if qerr != nil {
			return nil, qerr
		}
		hits, total, err = s.provider.SearchPosts(ctx, q)
		// 请求页超出结果范围时压回最后一页重查
		if err == nil && len(hits) == 0 && total > 0 && q.Page > 1 {
			page := q.Page
			q.ClampPage(total)
			if q.Page != page {
				f.Page = q.Page
				hits, total, err = s.provider.SearchPosts(ctx, q)
			}
		}
	}
	if err != nil {
		// 后端短暂故障不打断搜索页，空结果加提示放行
		logger.Warnw("index_search_failed", "error", err)
		return s.emptyResult(f, "search backend is unavailable, try again shortly"), nil
	}

	posts := make([]*models.Post, 0, len(hits))
	for _, hit := range hits {
		post, uerr := codec.Unpack(hit.Data, hit.Comment)
		if uerr != nil {
			return nil, fmt.Errorf("hit payload unpack failed: %w", uerr)
		}
		posts = append(posts, post)
	}
	if pluginApplied {
		posts = intersectPosts(posts, boardNums)
		total = len(posts)
	}

	// 引擎只高亮评论，标题在本地补标记
	if s.indexCfg.Highlight && !f.GalleryMode && f.Title != "" {
		titleRe := termPattern(f.Title)
		for _, post := range posts {
			post.Title = markTerms(titleRe, post.Title)
		}
	}
	return s.finish(ctx, f, posts, total, pluginApplied, isAuthority, s.indexCfg.Highlight && !f.GalleryMode)
}

// searchOpFaceted 两段式 OP 分面：先用 op=true 找匹配线程，
// 再逐板块按线程号约束取帖，命中数累加
func (s *Service) searchOpFaceted(ctx context.Context, f *Form) ([]*index.Hit, int, error) {
	facet := &index.SearchQuery{
		Comment:     f.OpComment,
		Title:       f.OpTitle,
		Boards:      boardInts(f.Boards),
		Op:          index.BoolPtr(true),
		HitsPerPage: s.indexCfg.MaxHits,
		Page:        1,
	}
	facet.Clamp(s.indexCfg.MaxHits)
	boardThreads, _, err := s.provider.SearchPostsGetThreadNums(ctx, facet)
	if err != nil {
		return nil, 0, err
	}

	var hits []*index.Hit
	var total int
	// 板块必须逐个查，保住 board:thread_num 的对应关系
	for board, threadNums := range boardThreads {
		q, err := s.buildIndexQuery(f, []string{board}, threadNums)
		if err != nil {
			return nil, 0, err
		}
		boardHits, boardTotal, err := s.provider.SearchPosts(ctx, q)
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, boardHits...)
		total += boardTotal
	}
	return hits, total, nil
}

func (s *Service) buildIndexQuery(f *Form, boards []string, threadNums []uint32) (*index.SearchQuery, error) {
	after, before, err := f.DateBounds()
	if err != nil {
		return nil, err
	}
	q := &index.SearchQuery{
		Comment:     f.Comment,
		Title:       f.Title,
		Boards:      boardInts(boards),
		ThreadNums:  threadNums,
		Num:         f.Num,
		MediaFile:   f.MediaFile,
		MediaHash:   f.MediaHash,
		Trip:        f.Tripcode,
		Width:       f.Width,
		Height:      f.Height,
		Capcode:     f.Capcode,
		Before:      before,
		After:       after,
		HasFile:     f.HasFile,
		HasNoFile:   f.HasNoFile,
		HitsPerPage: f.HitsPerPage,
		Page:        f.Page,
		Sort:        f.OrderBy,
		SortBy:      "timestamp",
		Highlight:   s.indexCfg.Highlight && !f.GalleryMode,
	}
	if f.IsOp {
		q.Op = index.BoolPtr(true)
	}
	if f.IsNotOp {
		q.Op = index.BoolPtr(false)
	}
	if f.IsDeleted {
		q.Deleted = index.BoolPtr(true)
	}
	if f.IsNotDeleted {
		q.Deleted = index.BoolPtr(false)
	}
	if f.IsSticky {
		q.Sticky = index.BoolPtr(true)
	}
	if f.IsNotSticky {
		q.Sticky = index.BoolPtr(false)
	}
	q.Clamp(s.indexCfg.MaxHits)
	return q, nil
}

// finish 两条路径共用的收尾：过滤缓存、渲染、分页
func (s *Service) finish(ctx context.Context, f *Form, posts []*models.Post, total int, pluginApplied, isAuthority, highlight bool) (*Result, error) {
	before := len(posts)
	filtered, err := s.fcache.FilterReportedPosts(ctx, posts, isAuthority)
	if err != nil {
		return nil, err
	}
	// 被过滤掉的命中从总数里扣除
	total -= before - len(filtered)
	if total < 0 {
		total = 0
	}

	if !f.GalleryMode {
		for _, post := range filtered {
			post.CommentHTML = asagi.HTMLComment(post.Comment, post.ThreadNum, post.Board, highlight)
			post.Title = asagi.HTMLHighlight(asagi.HTMLTitle(post.Title))
		}
	}

	result := &Result{
		Posts:     filtered,
		TotalHits: total,
		Page:      f.Page,
		Gallery:   f.GalleryMode,
	}
	if pluginApplied {
		// 插件过滤的结果只给一页
		result.TotalPages = 1
		result.Page = 1
	} else {
		result.TotalPages = totalPages(total, f.HitsPerPage)
	}
	result.PageWindow = pageWindow(result.Page, result.TotalPages)
	return result, nil
}

func boardInts(boards []string) []uint32 {
	out := make([]uint32, 0, len(boards))
	for _, board := range boards {
		out = append(out, codec.BoardToU32(board))
	}
	return out
}

// intersectPosts 只留下插件选中的 (板块, 帖号)
func intersectPosts(posts []*models.Post, boardNums map[string][]uint32) []*models.Post {
	allowed := make(map[string]map[uint32]struct{}, len(boardNums))
	for board, nums := range boardNums {
		set := make(map[uint32]struct{}, len(nums))
		for _, num := range nums {
			set[num] = struct{}{}
		}
		allowed[board] = set
	}
	out := posts[:0]
	for _, post := range posts {
		if set, ok := allowed[post.Board]; ok {
			if _, ok := set[post.Num]; ok {
				out = append(out, post)
			}
		}
	}
	return out
}
