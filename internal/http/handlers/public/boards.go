package public

import (
	"strconv"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/cache"
	"github.com/ayase-lite/ayase-lite/internal/http/handlers/shared"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/models"

	"github.com/gin-gonic/gin"
)

// GetBoards 获取板块白名单
func (h *Handler) GetBoards(c *gin.Context) {
	response.Success(c, gin.H{
		"boards": h.Boards.All(),
		"site":   h.Config.Site.Name,
	})
}

// GetBoardIndex 获取板块首页：线程按 time_bump 倒序，每线程 OP 加最新回帖
func (h *Handler) GetBoardIndex(c *gin.Context) {
	board := c.Param("board")
	page := parsePage(c)
	authority := shared.Username(c) != ""

	if !authority {
		if cached, ok, _ := cache.GetIndexPage(c.Request.Context(), board, page); ok {
			response.Success(c, cached)
			return
		}
	}

	bp, err := h.Adapter.GenerateIndex(c.Request.Context(), board, page)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	bp, err = h.filterBoardPage(c, bp, authority)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	if !authority {
		_ = cache.SetIndexPage(c.Request.Context(), board, page, bp)
	}
	response.Success(c, bp)
}

// GetBoardCatalog 获取板块目录页
func (h *Handler) GetBoardCatalog(c *gin.Context) {
	board := c.Param("board")
	page := parsePage(c)
	authority := shared.Username(c) != ""

	catalogPages, err := h.catalogPageCount(c, board, authority)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	if !authority {
		if cached, ok, _ := cache.GetCatalog(c.Request.Context(), board, page); ok {
			response.Success(c, gin.H{"pages": cached, "catalog_pages": catalogPages})
			return
		}
	}

	pages, err := h.Adapter.GenerateCatalog(c.Request.Context(), board, page)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	for _, p := range pages {
		p.Threads, err = h.FilterCache.FilterReportedPosts(c.Request.Context(), p.Threads, authority)
		if err != nil {
			shared.RespondAppError(c, err)
			return
		}
	}

	if !authority {
		_ = cache.SetCatalog(c.Request.Context(), board, page, pages)
	}
	response.Success(c, gin.H{"pages": pages, "catalog_pages": catalogPages})
}

// catalogPageCount 目录分页总数：线程总数扣掉对外隐藏的 OP，
// 按每页 OP 数折算
func (h *Handler) catalogPageCount(c *gin.Context, board string, authority bool) (int, error) {
	total, err := h.Adapter.GetOpThreadCount(c.Request.Context(), board)
	if err != nil {
		return 0, err
	}
	if !authority {
		removed, err := h.FilterCache.GetOpThreadRemovedCount(c.Request.Context(), board)
		if err != nil {
			return 0, err
		}
		total -= removed
	}
	if total < 0 {
		total = 0
	}
	return (total + asagi.CatalogPageSize - 1) / asagi.CatalogPageSize, nil
}

// GetThread 获取完整线程与反向引用表
func (h *Handler) GetThread(c *gin.Context) {
	board := c.Param("board")
	num, ok := parseNum(c)
	if !ok {
		response.BadRequest(c, "invalid thread number")
		return
	}
	authority := shared.Username(c) != ""

	quotelinks, thread, err := h.Adapter.GenerateThread(c.Request.Context(), board, num)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	posts, err := h.FilterCache.FilterReportedPosts(c.Request.Context(), thread.Posts, authority)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	if len(posts) == 0 || (!authority && !posts[0].Op) {
		// OP 被隐藏时整条线程不对外
		response.NotFound(c, "thread not found")
		return
	}
	thread.Posts = posts

	response.Success(c, gin.H{
		"thread":     thread,
		"quotelinks": quotelinks,
	})
}

// GetSinglePost 获取单帖及其所在线程的反向引用
func (h *Handler) GetSinglePost(c *gin.Context) {
	board := c.Param("board")
	num, ok := parseNum(c)
	if !ok {
		response.BadRequest(c, "invalid post number")
		return
	}
	authority := shared.Username(c) != ""

	quotelinks, post, err := h.Adapter.GeneratePost(c.Request.Context(), board, num)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	if !authority {
		removed, err := h.FilterCache.IsPostRemoved(c.Request.Context(), board, num)
		if err != nil {
			shared.RespondAppError(c, err)
			return
		}
		if removed {
			response.NotFound(c, "post not found")
			return
		}
	}

	response.Success(c, gin.H{
		"post":       post,
		"quotelinks": quotelinks,
	})
}

// GetLatestOps 跨板块最新 OP，作为落地页数据源
func (h *Handler) GetLatestOps(c *gin.Context) {
	boards := h.Boards.All()
	if raw := strings.TrimSpace(c.Query("boards")); raw != "" {
		boards = strings.Split(raw, ",")
		if err := h.Boards.ValidateAll(boards); err != nil {
			shared.RespondAppError(c, err)
			return
		}
	}
	authority := shared.Username(c) != ""

	pages, err := h.Adapter.GetLatestOpsAsCatalog(c.Request.Context(), boards)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	for _, p := range pages {
		p.Threads, err = h.FilterCache.FilterReportedPosts(c.Request.Context(), p.Threads, authority)
		if err != nil {
			shared.RespondAppError(c, err)
			return
		}
	}
	response.Success(c, pages)
}

// filterBoardPage 过滤板块页：OP 被隐藏的线程整体剔除
func (h *Handler) filterBoardPage(c *gin.Context, bp *models.BoardPage, authority bool) (*models.BoardPage, error) {
	kept := make([]*models.Thread, 0, len(bp.Threads))
	for _, thread := range bp.Threads {
		posts, err := h.FilterCache.FilterReportedPosts(c.Request.Context(), thread.Posts, authority)
		if err != nil {
			return nil, err
		}
		if len(posts) == 0 || (!authority && !posts[0].Op) {
			continue
		}
		thread.Posts = posts
		kept = append(kept, thread)
	}
	bp.Threads = kept
	return bp, nil
}

func parsePage(c *gin.Context) int {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	return page
}

func parseNum(c *gin.Context) (uint32, bool) {
	raw := c.Param("num")
	num, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || num == 0 {
		return 0, false
	}
	return uint32(num), true
}
