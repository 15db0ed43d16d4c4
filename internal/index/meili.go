package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// meiliProvider Meilisearch 后端
type meiliProvider struct {
	rest    *restClient
	maxHits int
}

func newMeili(cfg *config.SearchConfig) *meiliProvider {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &meiliProvider{rest: newRESTClient(cfg.Host, headers), maxHits: cfg.MaxHits}
}

func (m *meiliProvider) indexPath(parts ...string) string {
	return "/indexes/" + postsIndex + strings.Join(parts, "")
}

func (m *meiliProvider) InitIndexes(ctx context.Context) error {
	if err := m.rest.doJSON(ctx, "POST", "/indexes", nil, map[string]interface{}{
		"uid":        postsIndex,
		"primaryKey": "pk",
	}, nil); err != nil {
		return err
	}
	settings := map[string]interface{}{
		"displayedAttributes":  []string{"*"},
		"distinctAttribute":    "pk",
		"searchableAttributes": fieldNames(func(f fieldSpec) bool { return f.searchable }),
		"filterableAttributes": fieldNames(func(f fieldSpec) bool { return f.filterable }),
		"sortableAttributes":   fieldNames(func(f fieldSpec) bool { return f.sortable }),
		"separatorTokens":      []string{".", "/", `"`, "'", "-"},
		"rankingRules":         []string{"sort"},
		"searchCutoffMs":       20000,
		"typoTolerance":        map[string]interface{}{"enabled": false},
		"pagination":           map[string]interface{}{"maxTotalHits": m.maxHits},
	}
	return m.rest.doJSON(ctx, "PATCH", m.indexPath("/settings"), nil, settings, nil)
}

func (m *meiliProvider) AddPosts(ctx context.Context, docs []*Document) error {
	raw, err := m.EncodeBatch(docs)
	if err != nil {
		return err
	}
	return m.AddPostsBytes(ctx, raw, len(docs))
}

func (m *meiliProvider) AddPostsBytes(ctx context.Context, raw []byte, count int) error {
	params := url.Values{"primaryKey": {"pk"}}
	return m.rest.doRaw(ctx, "POST", m.indexPath("/documents"), params, raw, "application/json", nil)
}

func (m *meiliProvider) EncodeBatch(docs []*Document) ([]byte, error) {
	return json.Marshal(docs)
}

func (m *meiliProvider) RemovePosts(ctx context.Context, pks []uint64) error {
	if len(pks) == 0 {
		return nil
	}
	ids := make([]string, len(pks))
	for i, pk := range pks {
		ids[i] = fmt.Sprintf("%d", pk)
	}
	return m.rest.doJSON(ctx, "POST", m.indexPath("/documents/delete"), nil, map[string]interface{}{
		"filter": fmt.Sprintf("pk IN [%s]", strings.Join(ids, ", ")),
	}, nil)
}

func (m *meiliProvider) PostsWipe(ctx context.Context) error {
	return m.rest.doJSON(ctx, "DELETE", m.indexPath("/documents"), nil, nil, nil)
}

type meiliStats struct {
	Indexes map[string]struct {
		IsIndexing        bool  `json:"isIndexing"`
		NumberOfDocuments int64 `json:"numberOfDocuments"`
	} `json:"indexes"`
}

func (m *meiliProvider) PostsReady(ctx context.Context) (bool, error) {
	var stats meiliStats
	if err := m.rest.doJSON(ctx, "GET", "/stats", nil, nil, &stats); err != nil {
		return false, err
	}
	idx, ok := stats.Indexes[postsIndex]
	if !ok {
		return false, fmt.Errorf("index %s not found", postsIndex)
	}
	return !idx.IsIndexing, nil
}

func (m *meiliProvider) PostStats(ctx context.Context) (*Stats, error) {
	var stats meiliStats
	if err := m.rest.doJSON(ctx, "GET", "/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	out := &Stats{}
	if idx, ok := stats.Indexes[postsIndex]; ok {
		out.Documents = idx.NumberOfDocuments
	}
	return out, nil
}

type meiliHit struct {
	Comment   string `json:"comment"`
	Data      string `json:"data"`
	Formatted *struct {
		Comment string `json:"comment"`
	} `json:"_formatted"`
}

type meiliSearchResponse struct {
	Hits      []meiliHit `json:"hits"`
	TotalHits int        `json:"totalHits"`
}

func (m *meiliProvider) SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error) {
	payload := map[string]interface{}{
		"matchingStrategy": "all",
		"filter":           m.buildFilter(q),
		"sort":             []string{fmt.Sprintf("%s:%s", q.SortBy, q.Sort)},
		"hitsPerPage":      q.HitsPerPage,
		"page":             q.Page,
	}
	if terms := q.Terms(); terms != "" {
		payload["q"] = terms
	}
	if q.Highlight {
		payload["attributesToHighlight"] = []string{"title", "comment"}
		payload["highlightPreTag"] = constants.HighlightPre
		payload["highlightPostTag"] = constants.HighlightPost
	}
	var resp meiliSearchResponse
	if err := m.rest.doJSON(ctx, "POST", m.indexPath("/search"), nil, payload, &resp); err != nil {
		return nil, 0, err
	}
	hits := make([]*Hit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		comment := h.Comment
		if q.Highlight && h.Formatted != nil && h.Formatted.Comment != "" {
			comment = h.Formatted.Comment
		}
		hits = append(hits, &Hit{Comment: comment, Data: h.Data})
	}
	return hits, resp.TotalHits, nil
}

func (m *meiliProvider) buildFilter(q *SearchQuery) []string {
	var filters []string
	if len(q.Boards) > 0 {
		filters = append(filters, fmt.Sprintf("board IN [%s]", joinU32(q.Boards)))
	}
	if len(q.ThreadNums) > 0 {
		filters = append(filters, fmt.Sprintf("thread_num IN [%s]", joinU32(q.ThreadNums)))
	}
	if len(q.MediaOrigs) > 0 {
		quoted := make([]string, len(q.MediaOrigs))
		for i, orig := range q.MediaOrigs {
			quoted[i] = fmt.Sprintf("%q", orig)
		}
		filters = append(filters, fmt.Sprintf("media_filename IN [%s]", strings.Join(quoted, ", ")))
	}
	if q.Num > 0 {
		filters = append(filters, fmt.Sprintf("num = %d", q.Num))
	}
	if q.MediaFile != "" {
		filters = append(filters, fmt.Sprintf("media_filename = %q", q.MediaFile))
	}
	if q.MediaHash != "" {
		filters = append(filters, fmt.Sprintf("media_hash = %q", q.MediaHash))
	}
	if q.Trip != "" {
		filters = append(filters, fmt.Sprintf("trip = %q", q.Trip))
	}
	if q.Capcode != "" {
		filters = append(filters, fmt.Sprintf("capcode = %q", q.Capcode))
	}
	if q.Width > 0 {
		filters = append(filters, fmt.Sprintf("media_w = %d", q.Width))
	}
	if q.Height > 0 {
		filters = append(filters, fmt.Sprintf("media_h = %d", q.Height))
	}
	if q.Sticky != nil {
		filters = append(filters, fmt.Sprintf("sticky = %t", *q.Sticky))
	}
	if q.Op != nil {
		filters = append(filters, fmt.Sprintf("op = %t", *q.Op))
	}
	if q.Deleted != nil {
		filters = append(filters, fmt.Sprintf("deleted = %t", *q.Deleted))
	}
	if q.HasFile {
		filters = append(filters, "(media_filename IS NOT EMPTY) AND (media_filename IS NOT NULL)")
	}
	if q.HasNoFile {
		filters = append(filters, "(media_filename IS EMPTY) OR (media_filename IS NULL)")
	}
	if q.Before > 0 {
		filters = append(filters, fmt.Sprintf("timestamp < %d", q.Before))
	}
	if q.After > 0 {
		filters = append(filters, fmt.Sprintf("timestamp > %d", q.After))
	}
	return filters
}

func (m *meiliProvider) SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error) {
	return searchThreadNums(ctx, m, q)
}

func (m *meiliProvider) BoardLastNum(ctx context.Context, board string) (uint32, error) {
	return boardLastNum(ctx, m, board)
}

func (m *meiliProvider) Close() error {
	return m.rest.Close()
}

func joinU32(nums []uint32) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
