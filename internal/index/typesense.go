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

// typesenseProvider Typesense 后端。批量端点吃 NDJSON
type typesenseProvider struct {
	rest    *restClient
	maxHits int
}

func newTypesense(cfg *config.SearchConfig) *typesenseProvider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["X-TYPESENSE-API-KEY"] = cfg.APIKey
	}
	return &typesenseProvider{rest: newRESTClient(cfg.Host, headers), maxHits: cfg.MaxHits}
}

func (t *typesenseProvider) collectionPath(parts ...string) string {
	return "/collections/" + postsIndex + strings.Join(parts, "")
}

func tsFieldType(f fieldSpec) string {
	switch f.kind {
	case "int":
		return "int64"
	case "bool":
		return "bool"
	default:
		return "string"
	}
}

func (t *typesenseProvider) InitIndexes(ctx context.Context) error {
	fields := make([]map[string]interface{}, 0, len(indexFields))
	for _, f := range indexFields {
		field := map[string]interface{}{
			"name": f.name,
			"type": tsFieldType(f),
		}
		if f.optional {
			field["optional"] = true
		}
		if !f.searchable && !f.filterable && !f.sortable {
			field["index"] = false
			field["optional"] = true
		}
		fields = append(fields, field)
	}
	return t.rest.doJSON(ctx, "POST", "/collections", nil, map[string]interface{}{
		"name":                  postsIndex,
		"fields":                fields,
		"default_sorting_field": "timestamp",
	}, nil)
}

func (t *typesenseProvider) AddPosts(ctx context.Context, docs []*Document) error {
	raw, err := t.EncodeBatch(docs)
	if err != nil {
		return err
	}
	return t.AddPostsBytes(ctx, raw, len(docs))
}

func (t *typesenseProvider) AddPostsBytes(ctx context.Context, raw []byte, count int) error {
	params := url.Values{"action": {"upsert"}}
	return t.rest.doRaw(ctx, "POST", t.collectionPath("/documents/import"), params, raw, "text/plain", nil)
}

func (t *typesenseProvider) EncodeBatch(docs []*Document) ([]byte, error) {
	return encodeNDJSON(docs)
}

func (t *typesenseProvider) RemovePosts(ctx context.Context, pks []uint64) error {
	if len(pks) == 0 {
		return nil
	}
	ids := make([]string, len(pks))
	for i, pk := range pks {
		ids[i] = strconv.FormatUint(pk, 10)
	}
	params := url.Values{"filter_by": {fmt.Sprintf("pk: [%s]", strings.Join(ids, ","))}}
	return t.rest.doJSON(ctx, "DELETE", t.collectionPath("/documents"), params, nil, nil)
}

func (t *typesenseProvider) PostsWipe(ctx context.Context) error {
	params := url.Values{"filter_by": {"num > 0"}}
	return t.rest.doJSON(ctx, "DELETE", t.collectionPath("/documents"), params, nil, nil)
}

func (t *typesenseProvider) PostsReady(ctx context.Context) (bool, error) {
	return true, nil
}

func (t *typesenseProvider) PostStats(ctx context.Context) (*Stats, error) {
	var resp struct {
		NumDocuments int64 `json:"num_documents"`
	}
	if err := t.rest.doJSON(ctx, "GET", t.collectionPath(), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &Stats{Documents: resp.NumDocuments}, nil
}

type typesenseHit struct {
	Document struct {
		Comment string `json:"comment"`
		Data    string `json:"data"`
	} `json:"document"`
	Highlights []struct {
		Snippet string `json:"snippet"`
	} `json:"highlights"`
}

type typesenseSearchResponse struct {
	Hits  []typesenseHit `json:"hits"`
	Found int            `json:"found"`
}

func (t *typesenseProvider) SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error) {
	params := url.Values{
		"query_by":          {"title,comment"},
		"filter_by":         {t.buildFilter(q)},
		"sort_by":           {fmt.Sprintf("%s:%s", q.SortBy, q.Sort)},
		"include_fields":    {"comment,data"},
		"page":              {strconv.Itoa(q.Page)},
		"per_page":          {strconv.Itoa(q.HitsPerPage)},
		"limit_hits":        {strconv.Itoa(t.maxHits)},
		"search_cutoff_ms":  {"2000"},
		"num_typos":         {"0"},
		"split_join_tokens": {"off"},
	}
	if terms := q.Terms(); terms != "" {
		params.Set("q", terms)
	} else {
		params.Set("q", "*")
	}
	if q.Highlight {
		params.Set("highlight_fields", "comment")
		params.Set("highlight_full_fields", "comment")
		params.Set("highlight_start_tag", constants.HighlightPre)
		params.Set("highlight_end_tag", constants.HighlightPost)
	} else {
		params.Set("highlight_fields", "none")
	}
	var resp typesenseSearchResponse
	if err := t.rest.doJSON(ctx, "GET", t.collectionPath("/documents/search"), params, nil, &resp); err != nil {
		return nil, 0, err
	}
	hits := make([]*Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		comment := h.Document.Comment
		if q.Highlight && len(h.Highlights) > 0 && h.Highlights[0].Snippet != "" {
			comment = h.Highlights[0].Snippet
		}
		hits = append(hits, &Hit{Comment: comment, Data: h.Document.Data})
	}
	return hits, resp.Found, nil
}

func (t *typesenseProvider) buildFilter(q *SearchQuery) string {
	var filters []string
	if len(q.Boards) > 0 {
		filters = append(filters, fmt.Sprintf("board: [%s]", joinU32(q.Boards)))
	}
	if len(q.ThreadNums) > 0 {
		filters = append(filters, fmt.Sprintf("thread_num: [%s]", joinU32(q.ThreadNums)))
	}
	if q.Num > 0 {
		filters = append(filters, fmt.Sprintf("num := `%d`", q.Num))
	}
	if q.MediaFile != "" {
		filters = append(filters, fmt.Sprintf("media_filename := `%s`", q.MediaFile))
	}
	if q.MediaHash != "" {
		filters = append(filters, fmt.Sprintf("media_hash := `%s`", q.MediaHash))
	}
	if q.Trip != "" {
		filters = append(filters, fmt.Sprintf("trip := `%s`", q.Trip))
	}
	if q.Capcode != "" {
		filters = append(filters, fmt.Sprintf("capcode := `%s`", q.Capcode))
	}
	if q.Width > 0 {
		filters = append(filters, fmt.Sprintf("media_w := %d", q.Width))
	}
	if q.Height > 0 {
		filters = append(filters, fmt.Sprintf("media_h := %d", q.Height))
	}
	if q.Sticky != nil {
		filters = append(filters, fmt.Sprintf("sticky := %t", *q.Sticky))
	}
	if q.Op != nil {
		filters = append(filters, fmt.Sprintf("op := %t", *q.Op))
	}
	if q.Deleted != nil {
		filters = append(filters, fmt.Sprintf("deleted := %t", *q.Deleted))
	}
	// typesense 没有空值过滤，空文件名以字面量 None 入索引
	if q.HasFile {
		filters = append(filters, "media_filename :!= `None`")
	}
	if q.HasNoFile {
		filters = append(filters, "media_filename := `None`")
	}
	if q.Before > 0 {
		filters = append(filters, fmt.Sprintf("timestamp :< %d", q.Before))
	}
	if q.After > 0 {
		filters = append(filters, fmt.Sprintf("timestamp :> %d", q.After))
	}
	return strings.Join(filters, " && ")
}

func (t *typesenseProvider) SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error) {
	return searchThreadNums(ctx, t, q)
}

func (t *typesenseProvider) BoardLastNum(ctx context.Context, board string) (uint32, error) {
	return boardLastNum(ctx, t, board)
}

func (t *typesenseProvider) Close() error {
	return t.rest.Close()
}
