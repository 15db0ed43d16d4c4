package index

import (
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// SearchQuery 索引搜索查询。数值 0 与空串表示未设置；
// 三态布尔条件用指针表达
type SearchQuery struct {
	Comment    string
	Title      string
	Boards     []uint32
	ThreadNums []uint32
	MediaOrigs []string
	Num        uint32
	MediaFile  string
	MediaHash  string
	Trip       string
	Width      uint32
	Height     uint32
	Capcode    string
	Before     int64
	After      int64
	HasFile    bool
	HasNoFile  bool
	Deleted    *bool
	Op         *bool
	Sticky     *bool

	HitsPerPage int
	Page        int
	Sort        string // asc / desc
	SortBy      string // timestamp / num
	Highlight   bool
}

// Terms 全文检索词；评论与标题共用一个词项入口
func (q *SearchQuery) Terms() string {
	if q.Comment != "" {
		return q.Comment
	}
	return q.Title
}

// Clamp 把分页参数压到合法区间：hits_per_page ∈ [1, maxHits]，page ≥ 1
func (q *SearchQuery) Clamp(maxHits int) {
	if q.HitsPerPage < 1 {
		q.HitsPerPage = 1
	}
	if maxHits > 0 && q.HitsPerPage > maxHits {
		q.HitsPerPage = maxHits
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Sort != constants.SortAsc && q.Sort != constants.SortDesc {
		q.Sort = constants.SortDesc
	}
	if q.SortBy == "" {
		q.SortBy = "timestamp"
	}
}

// ClampPage 已知总命中数后把 page 压到 [1, total_pages]
func (q *SearchQuery) ClampPage(totalHits int) {
	totalPages := totalHits / q.HitsPerPage
	if totalHits%q.HitsPerPage != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}
	if q.Page > totalPages {
		q.Page = totalPages
	}
}

// Offset 0 起点的偏移量
func (q *SearchQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.HitsPerPage
}

// BoolPtr 三态布尔条件的字面量辅助
func BoolPtr(v bool) *bool {
	return &v
}
