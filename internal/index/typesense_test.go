package index

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/config"
)

func newTestTypesense(t *testing.T, handler http.HandlerFunc) *typesenseProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := newTypesense(&config.SearchConfig{Host: srv.URL, APIKey: "tskey", MaxHits: 10000})
	t.Cleanup(func() { p.Close() })
	return p
}

func TestTypesenseBuildFilter(t *testing.T) {
	p := &typesenseProvider{}
	cases := []struct {
		name string
		q    *SearchQuery
		want string
	}{
		{
			"boards and num",
			&SearchQuery{Boards: []uint32{18, 1}, Num: 42},
			"board: [18, 1] && num := `42`",
		},
		{
			"file flags use None literal",
			&SearchQuery{HasFile: true},
			"media_filename :!= `None`",
		},
		{
			"no file",
			&SearchQuery{HasNoFile: true},
			"media_filename := `None`",
		},
		{
			"bools and range",
			&SearchQuery{Op: BoolPtr(true), Deleted: BoolPtr(false), Before: 200, After: 100},
			"op := true && deleted := false && timestamp :< 200 && timestamp :> 100",
		},
		{
			"poster and media dims",
			&SearchQuery{Trip: "!abc", Capcode: "M", Width: 640, Height: 480, Sticky: BoolPtr(false)},
			"trip := `!abc` && capcode := `M` && media_w := 640 && media_h := 480 && sticky := false",
		},
		{"empty", &SearchQuery{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.buildFilter(tc.q); got != tc.want {
				t.Fatalf("filter want %q got %q", tc.want, got)
			}
		})
	}
}

func TestTypesenseSearchPosts(t *testing.T) {
	var params url.Values
	p := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/posts/documents/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("X-TYPESENSE-API-KEY"); key != "tskey" {
			t.Fatalf("unexpected api key header %q", key)
		}
		params = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"found": 12,
			"hits": []map[string]interface{}{
				{
					"document":   map[string]interface{}{"comment": "plain", "data": "packed1"},
					"highlights": []map[string]interface{}{{"snippet": "hl snippet"}},
				},
			},
		})
	})

	q := &SearchQuery{
		Comment:     "ritsu",
		Boards:      []uint32{18},
		HitsPerPage: 25,
		Page:        1,
		Sort:        "desc",
		SortBy:      "timestamp",
		Highlight:   true,
	}
	hits, total, err := p.SearchPosts(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 12 {
		t.Fatalf("total want 12 got %d", total)
	}
	if len(hits) != 1 || hits[0].Comment != "hl snippet" || hits[0].Data != "packed1" {
		t.Fatalf("unexpected hits %+v", hits[0])
	}

	if params.Get("q") != "ritsu" {
		t.Fatalf("q want ritsu got %q", params.Get("q"))
	}
	if params.Get("filter_by") != "board: [18]" {
		t.Fatalf("filter_by want board filter got %q", params.Get("filter_by"))
	}
	if params.Get("sort_by") != "timestamp:desc" {
		t.Fatalf("sort_by want timestamp:desc got %q", params.Get("sort_by"))
	}
	if params.Get("num_typos") != "0" || params.Get("split_join_tokens") != "off" {
		t.Fatalf("typo params want disabled got %q/%q", params.Get("num_typos"), params.Get("split_join_tokens"))
	}
}

func TestTypesenseSearchWildcardWithoutTerms(t *testing.T) {
	var params url.Values
	p := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		params = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]interface{}{"found": 0, "hits": []interface{}{}})
	})
	if _, _, err := p.SearchPosts(context.Background(), &SearchQuery{HitsPerPage: 1, Page: 1, Sort: "desc", SortBy: "num"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Get("q") != "*" {
		t.Fatalf("q want * got %q", params.Get("q"))
	}
	if params.Get("highlight_fields") != "none" {
		t.Fatalf("highlight_fields want none got %q", params.Get("highlight_fields"))
	}
}

func TestTypesenseImportUpsert(t *testing.T) {
	var path, action string
	var body []byte
	p := newTestTypesense(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		action = r.URL.Query().Get("action")
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		body = buf[:n]
		w.Write([]byte(`{"success": true}`))
	})
	docs := []*Document{{PK: "77309411428", Board: 18, Num: 100, ThreadNum: 100, Timestamp: 10, Op: true, Data: "d"}}
	if err := p.AddPosts(context.Background(), docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/collections/posts/documents/import" {
		t.Fatalf("unexpected path %s", path)
	}
	if action != "upsert" {
		t.Fatalf("action want upsert got %q", action)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("import body is not a JSON line: %v", err)
	}
	if doc["pk"] != "77309411428" {
		t.Fatalf("pk want string 77309411428 got %v", doc["pk"])
	}
}
