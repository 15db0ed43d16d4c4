package index

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// lnxProvider lnx 后端；文档字段统一按字符串数组写入，
// 写入后需要显式 commit 才可见
type lnxProvider struct {
	rest    *restClient
	maxHits int
}

func newLnx(cfg *config.SearchConfig) *lnxProvider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &lnxProvider{rest: newRESTClient(cfg.Host, headers), maxHits: cfg.MaxHits}
}

func lnxFieldType(f fieldSpec) string {
	if f.searchable {
		return "text"
	}
	switch f.kind {
	case "int", "bool":
		return "u64"
	default:
		return "string"
	}
}

func (l *lnxProvider) InitIndexes(ctx context.Context) error {
	fields := make(map[string]interface{}, len(indexFields))
	for _, f := range indexFields {
		fields[f.name] = map[string]interface{}{
			"type":   lnxFieldType(f),
			"stored": true,
		}
	}
	payload := map[string]interface{}{
		"override_if_exists": true,
		"index": map[string]interface{}{
			"name":                       postsIndex,
			"storage_type":               "filesystem",
			"fields":                     fields,
			"search_fields":              fieldNames(func(f fieldSpec) bool { return f.searchable }),
			"boost_fields":               map[string]interface{}{},
			"reader_threads":             8,
			"max_concurrency":            4,
			"writer_buffer":              64_000_000,
			"writer_threads":             4,
			"set_conjunction_by_default": true,
			"use_fast_fuzzy":             false,
			"strip_stop_words":           false,
			"auto_commit":                0,
		},
	}
	return l.rest.doJSON(ctx, "POST", "/indexes", nil, payload, nil)
}

func (l *lnxProvider) commit(ctx context.Context) error {
	return l.rest.doJSON(ctx, "POST", "/indexes/"+postsIndex+"/commit", nil, nil, nil)
}

func (l *lnxProvider) AddPosts(ctx context.Context, docs []*Document) error {
	raw, err := l.EncodeBatch(docs)
	if err != nil {
		return err
	}
	return l.AddPostsBytes(ctx, raw, len(docs))
}

func (l *lnxProvider) AddPostsBytes(ctx context.Context, raw []byte, count int) error {
	if err := l.rest.doRaw(ctx, "POST", "/indexes/"+postsIndex+"/documents", nil, raw, "application/json", nil); err != nil {
		return err
	}
	return l.commit(ctx)
}

// EncodeBatch lnx 要求所有字段值都是字符串数组
func (l *lnxProvider) EncodeBatch(docs []*Document) ([]byte, error) {
	rows := make([]map[string][]string, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, map[string][]string{
			"pk":             {doc.PK},
			"title":          {doc.Title},
			"comment":        {doc.Comment},
			"board":          {strconv.FormatUint(uint64(doc.Board), 10)},
			"thread_num":     {strconv.FormatUint(uint64(doc.ThreadNum), 10)},
			"num":            {strconv.FormatUint(uint64(doc.Num), 10)},
			"timestamp":      {strconv.FormatUint(uint64(doc.Timestamp), 10)},
			"media_filename": {doc.MediaFilename},
			"media_hash":     {doc.MediaHash},
			"media_w":        {strconv.FormatUint(uint64(doc.MediaW), 10)},
			"media_h":        {strconv.FormatUint(uint64(doc.MediaH), 10)},
			"trip":           {doc.Trip},
			"capcode":        {doc.Capcode},
			"op":             {lnxBool(doc.Op)},
			"deleted":        {lnxBool(doc.Deleted)},
			"sticky":         {lnxBool(doc.Sticky)},
			"data":           {doc.Data},
		})
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lnxBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (l *lnxProvider) RemovePosts(ctx context.Context, pks []uint64) error {
	if len(pks) == 0 {
		return nil
	}
	values := make([]string, 0, len(pks))
	for _, pk := range pks {
		values = append(values, strconv.FormatUint(pk, 10))
	}
	payload := map[string][]string{"pk": values}
	if err := l.rest.doJSON(ctx, "DELETE", "/indexes/"+postsIndex+"/documents", nil, payload, nil); err != nil {
		return err
	}
	return l.commit(ctx)
}

func (l *lnxProvider) PostsWipe(ctx context.Context) error {
	if err := l.rest.doJSON(ctx, "DELETE", "/indexes/"+postsIndex+"/documents/clear", nil, nil, nil); err != nil {
		return err
	}
	return l.commit(ctx)
}

func (l *lnxProvider) PostsReady(ctx context.Context) (bool, error) {
	return true, nil
}

func (l *lnxProvider) PostStats(ctx context.Context) (*Stats, error) {
	_, total, err := l.SearchPosts(ctx, &SearchQuery{
		HitsPerPage: 1, Page: 1,
		Sort: constants.SortDesc, SortBy: "timestamp",
	})
	if err != nil {
		return nil, err
	}
	return &Stats{Documents: int64(total)}, nil
}

type lnxSearchResponse struct {
	Data struct {
		Count int `json:"count"`
		Hits  []struct {
			Doc map[string]json.RawMessage `json:"doc"`
		} `json:"hits"`
	} `json:"data"`
}

func (l *lnxProvider) SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error) {
	payload := map[string]interface{}{
		"query":    l.buildQuery(q),
		"limit":    q.HitsPerPage,
		"offset":   q.Offset(),
		"order_by": q.SortBy,
		"sort":     q.Sort,
	}
	var resp lnxSearchResponse
	if err := l.rest.doJSON(ctx, "POST", "/indexes/"+postsIndex+"/search", nil, payload, &resp); err != nil {
		return nil, 0, err
	}
	hits := make([]*Hit, 0, len(resp.Data.Hits))
	for _, h := range resp.Data.Hits {
		hits = append(hits, &Hit{
			Comment: lnxDocString(h.Doc["comment"]),
			Data:    lnxDocString(h.Doc["data"]),
		})
	}
	return hits, resp.Data.Count, nil
}

// lnxDocString lnx 返回的字段值可能是标量，也可能是单元素数组
func lnxDocString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		return arr[0]
	}
	return ""
}

func (l *lnxProvider) buildQuery(q *SearchQuery) []map[string]interface{} {
	var clauses []map[string]interface{}
	mustTerm := func(field, value string) {
		clauses = append(clauses, map[string]interface{}{
			"occur": "must",
			"term":  map[string]interface{}{"ctx": value, "fields": []string{field}},
		})
	}
	if terms := q.Terms(); terms != "" {
		clauses = append(clauses, map[string]interface{}{
			"occur":  "must",
			"normal": map[string]interface{}{"ctx": terms},
		})
	}
	for _, b := range q.Boards {
		if len(q.Boards) == 1 {
			mustTerm("board", strconv.FormatUint(uint64(b), 10))
		} else {
			clauses = append(clauses, map[string]interface{}{
				"occur": "should",
				"term":  map[string]interface{}{"ctx": strconv.FormatUint(uint64(b), 10), "fields": []string{"board"}},
			})
		}
	}
	for _, tn := range q.ThreadNums {
		occur := "must"
		if len(q.ThreadNums) > 1 {
			occur = "should"
		}
		clauses = append(clauses, map[string]interface{}{
			"occur": occur,
			"term":  map[string]interface{}{"ctx": strconv.FormatUint(uint64(tn), 10), "fields": []string{"thread_num"}},
		})
	}
	if q.Num > 0 {
		mustTerm("num", strconv.FormatUint(uint64(q.Num), 10))
	}
	if q.MediaFile != "" {
		mustTerm("media_filename", q.MediaFile)
	}
	if q.MediaHash != "" {
		mustTerm("media_hash", q.MediaHash)
	}
	if q.Trip != "" {
		mustTerm("trip", q.Trip)
	}
	if q.Capcode != "" {
		mustTerm("capcode", q.Capcode)
	}
	if q.Width > 0 {
		mustTerm("media_w", strconv.FormatUint(uint64(q.Width), 10))
	}
	if q.Height > 0 {
		mustTerm("media_h", strconv.FormatUint(uint64(q.Height), 10))
	}
	if q.Sticky != nil {
		mustTerm("sticky", lnxBool(*q.Sticky))
	}
	if q.Op != nil {
		mustTerm("op", lnxBool(*q.Op))
	}
	if q.Deleted != nil {
		mustTerm("deleted", lnxBool(*q.Deleted))
	}
	if q.HasNoFile {
		mustTerm("media_filename", "")
	}
	if len(clauses) == 0 {
		clauses = append(clauses, map[string]interface{}{
			"occur":  "must",
			"normal": map[string]interface{}{"ctx": "*"},
		})
	}
	return clauses
}

func (l *lnxProvider) SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error) {
	return searchThreadNums(ctx, l, q)
}

func (l *lnxProvider) BoardLastNum(ctx context.Context, board string) (uint32, error) {
	return boardLastNum(ctx, l, board)
}

func (l *lnxProvider) Close() error {
	return l.rest.Close()
}
