package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
)

// manticoreProvider Manticore 后端，走 HTTP JSON 接口；
// 建表和清表走 /cli 的 SQL 通道
type manticoreProvider struct {
	rest    *restClient
	maxHits int
}

func newManticore(cfg *config.SearchConfig) *manticoreProvider {
	return &manticoreProvider{rest: newRESTClient(cfg.Host, nil), maxHits: cfg.MaxHits}
}

func manticoreFieldType(f fieldSpec) string {
	if f.searchable {
		return "text"
	}
	switch f.kind {
	case "int":
		return "bigint"
	case "bool":
		return "bool"
	default:
		return "string"
	}
}

func (m *manticoreProvider) runSQL(ctx context.Context, sql string) error {
	return m.rest.doRaw(ctx, "POST", "/cli", nil, []byte(sql), "text/plain", nil)
}

func (m *manticoreProvider) InitIndexes(ctx context.Context) error {
	columns := make([]string, 0, len(indexFields))
	for _, f := range indexFields {
		columns = append(columns, fmt.Sprintf("%s %s", f.name, manticoreFieldType(f)))
	}
	return m.runSQL(ctx, fmt.Sprintf(
		"create table if not exists %s (%s) engine='columnar'",
		postsIndex, strings.Join(columns, ", ")))
}

func (m *manticoreProvider) AddPosts(ctx context.Context, docs []*Document) error {
	raw, err := m.EncodeBatch(docs)
	if err != nil {
		return err
	}
	return m.AddPostsBytes(ctx, raw, len(docs))
}

func (m *manticoreProvider) AddPostsBytes(ctx context.Context, raw []byte, count int) error {
	return m.rest.doRaw(ctx, "POST", "/bulk", nil, raw, "application/x-ndjson", nil)
}

// EncodeBatch NDJSON 的 replace 行；文档 id 即主键，重复插入幂等
func (m *manticoreProvider) EncodeBatch(docs []*Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		id, err := strconv.ParseUint(doc.PK, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad document pk %q: %w", doc.PK, err)
		}
		line := map[string]interface{}{
			"replace": map[string]interface{}{
				"index": postsIndex,
				"id":    id,
				"doc":   doc,
			},
		}
		if err := enc.Encode(line); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (m *manticoreProvider) RemovePosts(ctx context.Context, pks []uint64) error {
	if len(pks) == 0 {
		return nil
	}
	return m.rest.doJSON(ctx, "POST", "/delete", nil, map[string]interface{}{
		"index": postsIndex,
		"query": map[string]interface{}{
			"in": map[string]interface{}{"id": pks},
		},
	}, nil)
}

func (m *manticoreProvider) PostsWipe(ctx context.Context) error {
	return m.runSQL(ctx, "truncate table "+postsIndex)
}

func (m *manticoreProvider) PostsReady(ctx context.Context) (bool, error) {
	return true, nil
}

func (m *manticoreProvider) PostStats(ctx context.Context) (*Stats, error) {
	_, total, err := m.SearchPosts(ctx, &SearchQuery{
		HitsPerPage: 1, Page: 1,
		Sort: constants.SortDesc, SortBy: "timestamp",
	})
	if err != nil {
		return nil, err
	}
	return &Stats{Documents: int64(total)}, nil
}

type manticoreSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Comment string `json:"comment"`
				Data    string `json:"data"`
			} `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
		Total int `json:"total"`
	} `json:"hits"`
}

func (m *manticoreProvider) SearchPosts(ctx context.Context, q *SearchQuery) ([]*Hit, int, error) {
	payload := map[string]interface{}{
		"index":  postsIndex,
		"query":  m.buildQuery(q),
		"limit":  q.HitsPerPage,
		"offset": q.Offset(),
		"sort":   []map[string]string{{q.SortBy: q.Sort}},
	}
	if q.Highlight {
		payload["highlight"] = map[string]interface{}{
			"fields":    []string{"comment"},
			"pre_tags":  constants.HighlightPre,
			"post_tags": constants.HighlightPost,
			"limit":     0,
		}
	}
	var resp manticoreSearchResponse
	if err := m.rest.doJSON(ctx, "POST", "/search", nil, payload, &resp); err != nil {
		return nil, 0, err
	}
	hits := make([]*Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		comment := h.Source.Comment
		if q.Highlight {
			if fragments, ok := h.Highlight["comment"]; ok && len(fragments) > 0 {
				comment = strings.Join(fragments, "")
			}
		}
		hits = append(hits, &Hit{Comment: comment, Data: h.Source.Data})
	}
	return hits, resp.Hits.Total, nil
}

func (m *manticoreProvider) buildQuery(q *SearchQuery) map[string]interface{} {
	var must []map[string]interface{}
	if terms := q.Terms(); terms != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"title,comment": terms},
		})
	}
	if len(q.Boards) > 0 {
		must = append(must, map[string]interface{}{
			"in": map[string]interface{}{"board": q.Boards},
		})
	}
	if len(q.ThreadNums) > 0 {
		must = append(must, map[string]interface{}{
			"in": map[string]interface{}{"thread_num": q.ThreadNums},
		})
	}
	if q.Num > 0 {
		must = append(must, equalsFilter("num", q.Num))
	}
	if q.MediaFile != "" {
		must = append(must, equalsFilter("media_filename", q.MediaFile))
	}
	if q.MediaHash != "" {
		must = append(must, equalsFilter("media_hash", q.MediaHash))
	}
	if q.Trip != "" {
		must = append(must, equalsFilter("trip", q.Trip))
	}
	if q.Capcode != "" {
		must = append(must, equalsFilter("capcode", q.Capcode))
	}
	if q.Width > 0 {
		must = append(must, equalsFilter("media_w", q.Width))
	}
	if q.Height > 0 {
		must = append(must, equalsFilter("media_h", q.Height))
	}
	if q.Sticky != nil {
		must = append(must, equalsFilter("sticky", boolInt(*q.Sticky)))
	}
	if q.Op != nil {
		must = append(must, equalsFilter("op", boolInt(*q.Op)))
	}
	if q.Deleted != nil {
		must = append(must, equalsFilter("deleted", boolInt(*q.Deleted)))
	}
	if q.HasFile {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"must_not": []map[string]interface{}{equalsFilter("media_filename", "")},
			},
		})
	}
	if q.HasNoFile {
		must = append(must, equalsFilter("media_filename", ""))
	}
	if q.Before > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": map[string]interface{}{"lt": q.Before}},
		})
	}
	if q.After > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": map[string]interface{}{"gt": q.After}},
		})
	}
	if len(must) == 0 {
		return map[string]interface{}{"match_all": map[string]interface{}{}}
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{"must": must},
	}
}

func equalsFilter(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"equals": map[string]interface{}{field: value},
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m *manticoreProvider) SearchPostsGetThreadNums(ctx context.Context, q *SearchQuery) (map[string][]uint32, int, error) {
	return searchThreadNums(ctx, m, q)
}

func (m *manticoreProvider) BoardLastNum(ctx context.Context, board string) (uint32, error) {
	return boardLastNum(ctx, m, board)
}

func (m *manticoreProvider) Close() error {
	return m.rest.Close()
}
