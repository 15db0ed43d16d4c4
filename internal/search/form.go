package search

import (
	"strings"
	"time"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
)

const dateLayout = "2006-01-02"

// Form 搜索入口的查询参数。boards 以逗号串提交
type Form struct {
	BoardsCSV    string `form:"boards"`
	Title        string `form:"title"`
	Comment      string `form:"comment"`
	OpTitle      string `form:"op_title"`
	OpComment    string `form:"op_comment"`
	Num          uint32 `form:"num"`
	MediaFile    string `form:"media_filename"`
	MediaHash    string `form:"media_hash"`
	Tripcode     string `form:"tripcode"`
	DateAfter    string `form:"date_after"`  // yyyy-mm-dd
	DateBefore   string `form:"date_before"` // yyyy-mm-dd
	HasFile      bool   `form:"has_file"`
	HasNoFile    bool   `form:"has_no_file"`
	IsOp         bool   `form:"is_op"`
	IsNotOp      bool   `form:"is_not_op"`
	IsDeleted    bool   `form:"is_deleted"`
	IsNotDeleted bool   `form:"is_not_deleted"`
	IsSticky     bool   `form:"is_sticky"`
	IsNotSticky  bool   `form:"is_not_sticky"`
	Width        uint32 `form:"width"`
	Height       uint32 `form:"height"`
	Capcode      string `form:"capcode"`
	OrderBy      string `form:"order_by"`
	HitsPerPage  int    `form:"hits_per_page"`
	Page         int    `form:"page"`
	GalleryMode  bool   `form:"gallery_mode"`

	Boards []string `form:"-"`
}

// Normalize 整理提交值：拆板块、去空白、收分页参数到配置区间。
// 画廊模式只看带文件的帖子。
func (f *Form) Normalize(cfg *config.SearchConfig) {
	f.Boards = f.Boards[:0]
	for _, board := range strings.Split(f.BoardsCSV, ",") {
		board = strings.TrimSpace(board)
		if board != "" {
			f.Boards = append(f.Boards, board)
		}
	}
	if cfg.MultiBoardSearch <= 0 && len(f.Boards) > 1 {
		f.Boards = f.Boards[:1]
	}
	if cfg.MultiBoardSearch > 0 && len(f.Boards) > cfg.MultiBoardSearch {
		f.Boards = f.Boards[:cfg.MultiBoardSearch]
	}

	f.Title = strings.TrimSpace(f.Title)
	f.OpTitle = strings.TrimSpace(f.OpTitle)
	f.OpComment = strings.TrimSpace(f.OpComment)
	f.MediaFile = strings.TrimSpace(f.MediaFile)
	f.MediaHash = strings.TrimSpace(f.MediaHash)
	f.Tripcode = strings.TrimSpace(f.Tripcode)
	if strings.TrimSpace(f.Comment) == "" {
		f.Comment = ""
	}

	if f.OrderBy != "asc" && f.OrderBy != "desc" {
		f.OrderBy = "desc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.HitsPerPage < 1 {
		f.HitsPerPage = cfg.HitsPerPage
	}
	if cfg.HitsPerPage > 0 && f.HitsPerPage > cfg.HitsPerPage {
		f.HitsPerPage = cfg.HitsPerPage
	}

	if f.GalleryMode {
		f.HasFile = true
		f.HasNoFile = false
	}
}

// Validate 校验矛盾条件；全部以用户输入错误返回
func (f *Form) Validate(boards *asagi.Boards) error {
	if len(f.Boards) == 0 {
		return response.NewUserInputError("select a board")
	}
	if err := boards.ValidateAll(f.Boards); err != nil {
		return response.NewUserInputError(err.Error())
	}
	if f.GalleryMode && f.HasNoFile {
		return response.NewUserInputError("gallery mode only shows files")
	}
	if f.HasFile && f.HasNoFile {
		return response.NewUserInputError("has_file is contradicted")
	}
	if f.IsOp && f.IsNotOp {
		return response.NewUserInputError("is_op is contradicted")
	}
	if f.IsDeleted && f.IsNotDeleted {
		return response.NewUserInputError("is_deleted is contradicted")
	}
	if f.IsSticky && f.IsNotSticky {
		return response.NewUserInputError("is_sticky is contradicted")
	}

	after, before, err := f.DateBounds()
	if err != nil {
		return err
	}
	if after > 0 && before > 0 && before < after {
		return response.NewUserInputError("the dates are contradicted")
	}
	return nil
}

// DateBounds 把 yyyy-mm-dd 边界解析为 unix 秒；零值表示未设置
func (f *Form) DateBounds() (after, before int64, err error) {
	if f.DateAfter != "" {
		t, perr := time.Parse(dateLayout, f.DateAfter)
		if perr != nil {
			return 0, 0, response.NewUserInputError("date_after must be yyyy-mm-dd")
		}
		after = t.Unix()
	}
	if f.DateBefore != "" {
		t, perr := time.Parse(dateLayout, f.DateBefore)
		if perr != nil {
			return 0, 0, response.NewUserInputError("date_before must be yyyy-mm-dd")
		}
		before = t.Unix()
	}
	return after, before, nil
}
