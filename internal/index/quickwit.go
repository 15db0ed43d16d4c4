package index

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// quickwitProvider Quickwit 后端；查询走查询串语法，
// 文本与过滤条件统一 AND 连接
type quickwitProvider struct {
	rest    *restClient
	version string
	maxHits int
}

func newQuickwit(cfg *config.SearchConfig) *quickwitProvider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	version := cfg.Version
	if version == "" {
		version = "0.8"
	}
	return &quickwitProvider{
		rest:    newRESTClient(cfg.Host, headers),
		version: version,
		maxHits: cfg.MaxHits,
	}
}

func quickwitFieldType(f fieldSpec) string {
	switch f.kind {
	case "int":
		return "u64"
	case "bool":
		return "bool"
	default:
		return "text"
	}
}

func (w *quickwitProvider) InitIndexes(ctx context.Context) error {
	fieldMappings := make([]map[string]interface{}, 0, len(indexFields))
	for _, f := range indexFields {
		mapping := map[string]interface{}{
			"name": f.name,
			"type": quickwitFieldType(f),
		}
		if f.kind == "int" {
			mapping["fast"] = true
		}
		if f.name == "timestamp" {
			mapping["type"] = "datetime"
			mapping["input_formats"] = []string{"unix_timestamp"}
			mapping["fast"] = true
		}
		if f.name == "data" {
			mapping["indexed"] = false
			mapping["stored"] = true
		}
		fieldMappings = append(fieldMappings, mapping)
	}
	payload := map[string]interface{}{
		"version":  w.version,
		"index_id": postsIndex,
		"doc_mapping": map[string]interface{}{
			"field_mappings":  fieldMappings,
			"timestamp_field": "timestamp",
		},
		"search_settings": map[string]interface{}{
			"default_search_fields": fieldNames(func(f fieldSpec) bool { return f.searchable }),
		},
	}
	return w.rest.doJSON(ctx, "POST", "/api/v1/indexes", nil, payload, nil)
}

func (w *quickwitProvider) AddPosts(ctx context.Context, docs []*Document) error {
	raw, err := w.EncodeBatch(docs)
	if err != nil {
		return err
	}
	return w.AddPostsBytes(ctx, raw, len(docs))
}

func (w *quickwitProvider) AddPostsBytes(ctx context.Context, raw []byte, count int) error {
	query := url.Values{"commit": {"force"}}
	return w.rest.doRaw(ctx, "POST", "/api/v1/"+postsIndex+"/ingest", query, raw, "application/x-ndjson", nil)
}

func (w *quickwitProvider) EncodeBatch(docs []*Document) ([]byte, error) {
	return encodeNDJSON(docs)
}

// RemovePosts Quickwit 的删除任务按查询异步执行，尽力而为
func (w *quickwitProvider) RemovePosts(ctx context.Context, pks []uint64) error {
	for _, pk := range pks {
		payload := map[string]interface{}{
			"query": fmt.Sprintf("pk:%d", pk),
		}
		if err := w.rest.doJSON(ctx, "POST", "/api/v1/"+postsIndex+"/delete-tasks", nil, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

func (w *quickwitProvider) PostsWipe(ctx context.Context) error {
	return w.rest.doJSON(ctx, "PUT", "/api/v1/indexes/"+postsIndex+"/clear", nil, nil, nil)
}

func (w *quickwitProvider) PostsReady(ctx context.Context) (bool, error) {
	return true, nil
}

type quickwitDescribeResponse struct {
	NumPublishedDocs int64 `json:"num_published_docs"`
}

func (w *quickwitProvider) PostStats(ctx context.Context) (*Stats, error) {
	var resp quickwitDescribeResponse
	if err := w.rest.doJSON(ctx, "GET", "/api/v1/indexes/"+postsIndex+"/describe", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &Stats{Documents: resp.NumPublishedDocs}, nil
}

type quickwitSearchResponse struct {
	NumHits int `json:"num_hits"`
	Hits    []struct {
		Comment string `json:"comment"`
		Data    string `json:"data"`
	} `json:"hits"`
}

func (w *quickwitProvider) SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error) {
	query := url.Values{
		"query":        {w.buildQuery(q)},
		"max_hits":     {strconv.Itoa(q.HitsPerPage)},
		"start_offset": {strconv.Itoa(q.Offset())},
		"format":       {"json"},
	}
	sortPrefix := "-"
	if q.Sort == constants.SortAsc {
		sortPrefix = "+"
	}
	query.Set("sort_by", sortPrefix+q.SortBy)
	if q.After > 0 {
		query.Set("start_timestamp", strconv.FormatInt(q.After, 10))
	}
	if q.Before > 0 {
		query.Set("end_timestamp", strconv.FormatInt(q.Before, 10))
	}
	var resp quickwitSearchResponse
	if err := w.rest.doJSON(ctx, "GET", "/api/v1/"+postsIndex+"/search", query, nil, &resp); err != nil {
		return nil, 0, err
	}
	total := resp.NumHits
	if total > w.maxHits {
		total = w.maxHits
	}
	hits := make([]*Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, &Hit{Comment: h.Comment, Data: h.Data})
	}
	return hits, total, nil
}

func (w *quickwitProvider) buildQuery(q *SearchQuery) string {
	var parts []string
	if terms := q.Terms(); terms != "" {
		fields := "comment"
		if q.Comment == "" && q.Title != "" {
			fields = "title"
		}
		parts = append(parts, fmt.Sprintf("%s:(%s)", fields, terms))
	}
	if len(q.Boards) > 0 {
		values := make([]string, 0, len(q.Boards))
		for _, b := range q.Boards {
			values = append(values, strconv.FormatUint(uint64(b), 10))
		}
		parts = append(parts, fmt.Sprintf("board:IN [%s]", strings.Join(values, " ")))
	}
	if len(q.ThreadNums) > 0 {
		values := make([]string, 0, len(q.ThreadNums))
		for _, tn := range q.ThreadNums {
			values = append(values, strconv.FormatUint(uint64(tn), 10))
		}
		parts = append(parts, fmt.Sprintf("thread_num:IN [%s]", strings.Join(values, " ")))
	}
	if q.Num > 0 {
		parts = append(parts, fmt.Sprintf("num:%d", q.Num))
	}
	if q.MediaFile != "" {
		parts = append(parts, fmt.Sprintf("media_filename:%q", q.MediaFile))
	}
	if q.MediaHash != "" {
		parts = append(parts, fmt.Sprintf("media_hash:%q", q.MediaHash))
	}
	if q.Trip != "" {
		parts = append(parts, fmt.Sprintf("trip:%q", q.Trip))
	}
	if q.Capcode != "" {
		parts = append(parts, fmt.Sprintf("capcode:%q", q.Capcode))
	}
	if q.Width > 0 {
		parts = append(parts, fmt.Sprintf("media_w:%d", q.Width))
	}
	if q.Height > 0 {
		parts = append(parts, fmt.Sprintf("media_h:%d", q.Height))
	}
	if q.Sticky != nil {
		parts = append(parts, fmt.Sprintf("sticky:%t", *q.Sticky))
	}
	if q.Op != nil {
		parts = append(parts, fmt.Sprintf("op:%t", *q.Op))
	}
	if q.Deleted != nil {
		parts = append(parts, fmt.Sprintf("deleted:%t", *q.Deleted))
	}
	if q.HasFile {
		parts = append(parts, "media_filename:*")
	}
	if q.HasNoFile {
		parts = append(parts, "NOT media_filename:*")
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " AND ")
}

func (w *quickwitProvider) SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error) {
	return searchThreadNums(ctx, w, q)
}

func (w *quickwitProvider) BoardLastNum(ctx context.Context, board string) (uint32, error) {
	return boardLastNum(ctx, w, board)
}

func (w *quickwitProvider) Close() error {
	return w.rest.Close()
}
