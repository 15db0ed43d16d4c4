package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/codec"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// postsIndex 所有提供方共用的索引名
const postsIndex = "posts"

// Document 索引文档。可搜索/可过滤字段之外的帖子内容
// 全部折叠进 Data 的打包负载里
type Document struct {
	PK            string `json:"pk"`
	Title         string `json:"title,omitempty"`
	Comment       string `json:"comment,omitempty"`
	Board         uint32 `json:"board"`
	ThreadNum     uint32 `json:"thread_num"`
	MediaFilename string `json:"media_filename,omitempty"`
	MediaHash     string `json:"media_hash,omitempty"`
	MediaW        uint32 `json:"media_w"`
	MediaH        uint32 `json:"media_h"`
	Trip          string `json:"trip,omitempty"`
	Capcode       string `json:"capcode,omitempty"`
	Num           uint32 `json:"num"`
	Timestamp     uint32 `json:"timestamp"`
	Op            bool   `json:"op"`
	Deleted       bool   `json:"deleted"`
	Sticky        bool   `json:"sticky"`
	Data          string `json:"data"`
}

// Hit 检索命中：评论（可能含高亮标记）加打包负载
type Hit struct {
	Comment string
	Data    string
}

// Stats 索引统计
type Stats struct {
	Documents int64                  `json:"documents"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

// Provider 全文索引后端的能力集
type Provider interface {
	// InitIndexes 声明 posts 索引（主键、可搜索/过滤/排序字段、分词配置）
	InitIndexes(ctx context.Context) error
	// AddPosts 按主键去重插入
	AddPosts(ctx context.Context, docs []*Document) error
	// AddPostsBytes 插入 EncodeBatch 预序列化的批次
	AddPostsBytes(ctx context.Context, raw []byte, count int) error
	// EncodeBatch 把文档批预序列化为该后端批量端点的格式
	EncodeBatch(docs []*Document) ([]byte, error)
	// RemovePosts 按主键删除；不支持删除的后端为空操作
	RemovePosts(ctx context.Context, pks []uint64) error
	PostsWipe(ctx context.Context) error
	PostsReady(ctx context.Context) (bool, error)
	PostStats(ctx context.Context) (*Stats, error)
	// SearchPosts 返回命中与总命中数
	SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error)
	// SearchPostsGetThreadNums OP 分面第一阶段：板块 -> 线程号
	SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error)
	// BoardLastNum 板块在索引中的最大帖号；空索引返回 0
	BoardLastNum(ctx context.Context, board string) (uint32, error)
	Close() error
}

// New 按配置构建索引提供方
func New(cfg *config.SearchConfig) (Provider, error) {
	switch cfg.Provider {
	case constants.IndexProviderMeili:
		return newMeili(cfg), nil
	case constants.IndexProviderTypesense:
		return newTypesense(cfg), nil
	case constants.IndexProviderManticore:
		return newManticore(cfg), nil
	case constants.IndexProviderLnx:
		return newLnx(cfg), nil
	case constants.IndexProviderQuickwit:
		return newQuickwit(cfg), nil
	default:
		return nil, fmt.Errorf("unknown index search provider: %s", cfg.Provider)
	}
}

// fieldSpec 统一的字段模式；各后端据此生成自己的建索引配置
type fieldSpec struct {
	name       string
	kind       string // string / int / bool
	optional   bool
	sortable   bool
	searchable bool
	filterable bool
}

var indexFields = []fieldSpec{
	{name: "pk", kind: "string", filterable: true},
	{name: "title", kind: "string", searchable: true, optional: true},
	{name: "comment", kind: "string", searchable: true, optional: true},
	{name: "board", kind: "int", filterable: true},
	{name: "thread_num", kind: "int", filterable: true},
	{name: "media_filename", kind: "string", filterable: true, optional: true},
	{name: "media_hash", kind: "string", filterable: true, optional: true},
	{name: "media_w", kind: "int", filterable: true},
	{name: "media_h", kind: "int", filterable: true},
	{name: "trip", kind: "string", filterable: true, optional: true},
	{name: "capcode", kind: "string", filterable: true, optional: true},
	{name: "num", kind: "int", sortable: true, filterable: true},
	{name: "timestamp", kind: "int", sortable: true, filterable: true},
	{name: "op", kind: "bool", filterable: true},
	{name: "deleted", kind: "bool", filterable: true},
	{name: "sticky", kind: "bool", filterable: true},
	{name: "data", kind: "string"},
}

// encodeNDJSON 一行一文档
func encodeNDJSON(docs []*Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func fieldNames(pred func(fieldSpec) bool) []string {
	var out []string
	for _, f := range indexFields {
		if pred(f) {
			out = append(out, f.name)
		}
	}
	return out
}

// searchThreadNums 分面第一阶段的共享实现：解包命中取 (板块, 线程号)
func searchThreadNums(ctx context.Context, p Provider, q *SearchQuery) (map[string][]uint32, int, error) {
	hits, total, err := p.SearchPosts(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string][]uint32)
	for _, hit := range hits {
		post, err := codec.Unpack(hit.Data, "")
		if err != nil {
			return nil, 0, err
		}
		out[post.Board] = append(out[post.Board], post.Num)
	}
	return out, total, nil
}

// boardLastNum 增量装载断点的共享实现：按帖号倒序取第一条
func boardLastNum(ctx context.Context, p Provider, board string) (uint32, error) {
	q := &SearchQuery{
		Boards:      []uint32{codec.BoardToU32(board)},
		Sort:        constants.SortDesc,
		SortBy:      "num",
		HitsPerPage: 1,
		Page:        1,
	}
	hits, total, err := p.SearchPosts(ctx, q)
	if err != nil {
		return 0, err
	}
	if total == 0 || len(hits) == 0 {
		return 0, nil
	}
	post, err := codec.Unpack(hits[0].Data, "")
	if err != nil {
		return 0, err
	}
	return post.Num, nil
}
