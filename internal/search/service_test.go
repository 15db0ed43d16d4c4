package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/codec"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/db"
	"github.com/ayase-lite/ayase-lite/internal/filtercache"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/index"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

const boardSchema = `
	CREATE TABLE %[1]s (
		num INTEGER NOT NULL,
		thread_num INTEGER NOT NULL,
		op INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL DEFAULT 0,
		timestamp_expired INTEGER NOT NULL DEFAULT 0,
		preview_orig TEXT,
		preview_w INTEGER NOT NULL DEFAULT 0,
		preview_h INTEGER NOT NULL DEFAULT 0,
		media_filename TEXT,
		media_w INTEGER NOT NULL DEFAULT 0,
		media_h INTEGER NOT NULL DEFAULT 0,
		media_size INTEGER NOT NULL DEFAULT 0,
		media_hash TEXT,
		media_orig TEXT,
		spoiler INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		capcode TEXT NOT NULL DEFAULT 'N',
		name TEXT,
		trip TEXT,
		title TEXT,
		comment TEXT,
		sticky INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		poster_hash TEXT,
		poster_country TEXT,
		exif TEXT
	);
`

func newTestAdapter(t *testing.T, boardNames ...string) (*asagi.Adapter, *db.Client) {
	t.Helper()
	gdb, err := db.Open("sqlite", ":memory:", db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	client := db.NewClient(gdb, "sqlite")
	t.Cleanup(func() {
		_ = client.Close()
	})
	for _, board := range boardNames {
		if err := client.RunScript(context.Background(), fmt.Sprintf(boardSchema, board)); err != nil {
			t.Fatalf("create schema failed: %v", err)
		}
	}
	boards, err := asagi.NewBoards(boardNames)
	if err != nil {
		t.Fatalf("new boards failed: %v", err)
	}
	return asagi.NewAdapter(client, boards), client
}

func insertPost(t *testing.T, client *db.Client, board string, num, threadNum uint32, op int, comment string) {
	t.Helper()
	err := client.Exec(context.Background(), fmt.Sprintf(`
		insert into %s (num, thread_num, op, timestamp, name, comment)
		values (?, ?, ?, ?, 'Anonymous', ?)`, board),
		num, threadNum, op, 1000+num, comment)
	if err != nil {
		t.Fatalf("insert post %d failed: %v", num, err)
	}
}

// fakeCache 按 (板块, 帖号) 丢弃被过滤的帖子；员工视角全量保留
type fakeCache struct {
	removed map[filtercache.BoardNum]struct{}
}

func newFakeCache(removed ...filtercache.BoardNum) *fakeCache {
	set := make(map[filtercache.BoardNum]struct{}, len(removed))
	for _, bn := range removed {
		set[bn] = struct{}{}
	}
	return &fakeCache{removed: set}
}

func (f *fakeCache) Init(ctx context.Context) error { return nil }

func (f *fakeCache) IsPostRemoved(ctx context.Context, board string, num uint32) (bool, error) {
	_, ok := f.removed[filtercache.BoardNum{Board: board, Num: num}]
	return ok, nil
}

func (f *fakeCache) GetOpThreadRemovedCount(ctx context.Context, board string) (int, error) {
	return 0, nil
}

func (f *fakeCache) GetBoardNumPairs(ctx context.Context, posts []*models.Post) (map[filtercache.BoardNum]struct{}, error) {
	out := make(map[filtercache.BoardNum]struct{})
	for _, post := range posts {
		bn := filtercache.BoardNum{Board: post.Board, Num: post.Num}
		if _, ok := f.removed[bn]; ok {
			out[bn] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeCache) InsertPost(ctx context.Context, board string, num uint32, op bool) error {
	f.removed[filtercache.BoardNum{Board: board, Num: num}] = struct{}{}
	return nil
}

func (f *fakeCache) DeletePost(ctx context.Context, board string, num uint32, op bool) error {
	delete(f.removed, filtercache.BoardNum{Board: board, Num: num})
	return nil
}

func (f *fakeCache) FilterReportedPosts(ctx context.Context, posts []*models.Post, isAuthority bool) ([]*models.Post, error) {
	if isAuthority {
		return posts, nil
	}
	out := posts[:0]
	for _, post := range posts {
		if _, ok := f.removed[filtercache.BoardNum{Board: post.Board, Num: post.Num}]; !ok {
			out = append(out, post)
		}
	}
	return out, nil
}

func (f *fakeCache) Teardown(ctx context.Context) error { return nil }

// stubIndex 返回预置命中，记录收到的查询
type stubIndex struct {
	hits         []*index.Hit
	total        int
	err          error
	hitsByBoard  map[uint32][]*index.Hit
	totalByBoard map[uint32]int
	threadNums   map[string][]uint32
	queries      []*index.SearchQuery
	facetQueries []*index.SearchQuery
}

func (s *stubIndex) InitIndexes(ctx context.Context) error                          { return nil }
func (s *stubIndex) AddPosts(ctx context.Context, docs []*index.Document) error     { return nil }
func (s *stubIndex) AddPostsBytes(ctx context.Context, raw []byte, n int) error     { return nil }
func (s *stubIndex) EncodeBatch(docs []*index.Document) ([]byte, error)             { return nil, nil }
func (s *stubIndex) RemovePosts(ctx context.Context, pks []uint64) error            { return nil }
func (s *stubIndex) PostsWipe(ctx context.Context) error                            { return nil }
func (s *stubIndex) PostsReady(ctx context.Context) (bool, error)                   { return true, nil }
func (s *stubIndex) PostStats(ctx context.Context) (*index.Stats, error)            { return &index.Stats{}, nil }
func (s *stubIndex) BoardLastNum(ctx context.Context, board string) (uint32, error) { return 0, nil }
func (s *stubIndex) Close() error                                                   { return nil }

func (s *stubIndex) SearchPosts(ctx context.Context, q *index.SearchQuery) ([]*index.Hit, int, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.hitsByBoard != nil && len(q.Boards) == 1 {
		return s.hitsByBoard[q.Boards[0]], s.totalByBoard[q.Boards[0]], nil
	}
	return s.hits, s.total, nil
}

func (s *stubIndex) SearchPostsGetThreadNums(ctx context.Context, q *index.SearchQuery) (map[string][]uint32, int, error) {
	s.facetQueries = append(s.facetQueries, q)
	if s.err != nil {
		return nil, 0, s.err
	}
	total := 0
	for _, nums := range s.threadNums {
		total += len(nums)
	}
	return s.threadNums, total, nil
}

func packedHit(t *testing.T, board string, threadNum, num uint32, comment string) *index.Hit {
	t.Helper()
	data, err := codec.Pack(&models.Post{
		Board:     board,
		Num:       num,
		ThreadNum: threadNum,
		TsUnix:    1700000000,
		Comment:   comment,
	})
	if err != nil {
		t.Fatalf("pack fixture: %v", err)
	}
	return &index.Hit{Comment: comment, Data: data}
}

func searchCfg(enabled, highlight bool) *config.SearchConfig {
	return &config.SearchConfig{
		Enabled:          enabled,
		HitsPerPage:      25,
		MaxHits:          1000,
		MultiBoardSearch: 5,
		Highlight:        highlight,
	}
}

// testPlugin 固定返回预置的板块帖号集合
type testPlugin struct {
	applies bool
	result  map[string][]uint32
	err     error
}

func (p *testPlugin) Name() string         { return "test" }
func (p *testPlugin) Applies(f *Form) bool { return p.applies }
func (p *testPlugin) Search(ctx context.Context, f *Form) (map[string][]uint32, error) {
	return p.result, p.err
}

func TestSearchSQLBasic(t *testing.T) {
	adapter, client := newTestAdapter(t, "g")
	insertPost(t, client, "g", 100, 100, 1, "golang rocks")
	insertPost(t, client, "g", 101, 100, 0, "reply about golang")
	insertPost(t, client, "g", 102, 100, 0, "unrelated")

	svc := NewService(searchCfg(false, false), searchCfg(true, false), nil, adapter, nil, newFakeCache())
	res, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g", Comment: "golang"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.TotalHits != 2 || len(res.Posts) != 2 {
		t.Fatalf("want 2 hits got total=%d posts=%d", res.TotalHits, len(res.Posts))
	}
	if res.TotalPages != 1 || res.Page != 1 {
		t.Fatalf("want page 1/1 got %d/%d", res.Page, res.TotalPages)
	}
	for _, post := range res.Posts {
		if post.CommentHTML == "" {
			t.Fatalf("post %d missing rendered comment", post.Num)
		}
	}
}

func TestSearchSQLDisabled(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	svc := NewService(searchCfg(false, false), searchCfg(false, false), nil, adapter, nil, newFakeCache())
	_, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g"}, false)
	appErr, ok := err.(*response.AppError)
	if !ok || appErr.Code != response.CodeBadRequest {
		t.Fatalf("want bad request got %v", err)
	}
}

func TestSearchSQLPagination(t *testing.T) {
	adapter, client := newTestAdapter(t, "g")
	for i := uint32(0); i < 5; i++ {
		insertPost(t, client, "g", 100+i, 100, 0, "paging")
	}

	svc := NewService(searchCfg(false, false), searchCfg(true, false), nil, adapter, nil, newFakeCache())
	res, err := svc.SearchSQL(context.Background(),
		&Form{BoardsCSV: "g", Comment: "paging", HitsPerPage: 2, Page: 2}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.TotalHits != 5 {
		t.Fatalf("total want 5 got %d", res.TotalHits)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("page size want 2 got %d", len(res.Posts))
	}
	if res.TotalPages != 3 || res.Page != 2 {
		t.Fatalf("want page 2/3 got %d/%d", res.Page, res.TotalPages)
	}
}

func TestSearchSQLFilteredDeductsTotal(t *testing.T) {
	adapter, client := newTestAdapter(t, "g")
	insertPost(t, client, "g", 100, 100, 1, "moderated content")
	insertPost(t, client, "g", 101, 100, 0, "moderated content")
	insertPost(t, client, "g", 102, 100, 0, "moderated content")

	cache := newFakeCache(filtercache.BoardNum{Board: "g", Num: 101})
	svc := NewService(searchCfg(false, false), searchCfg(true, false), nil, adapter, nil, cache)

	res, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g", Comment: "moderated"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.TotalHits != 2 || len(res.Posts) != 2 {
		t.Fatalf("filtered hit must be deducted, got total=%d posts=%d", res.TotalHits, len(res.Posts))
	}

	// 员工视角不过滤
	staff, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g", Comment: "moderated"}, true)
	if err != nil {
		t.Fatalf("staff search failed: %v", err)
	}
	if staff.TotalHits != 3 || len(staff.Posts) != 3 {
		t.Fatalf("staff view must keep all, got total=%d posts=%d", staff.TotalHits, len(staff.Posts))
	}
}

func TestSearchSQLHighlight(t *testing.T) {
	adapter, client := newTestAdapter(t, "g")
	insertPost(t, client, "g", 100, 100, 1, "mechanical keyboard talk")

	svc := NewService(searchCfg(false, false), searchCfg(true, true), nil, adapter, nil, newFakeCache())
	res, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g", Comment: "keyboard"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Posts) != 1 {
		t.Fatalf("want 1 post got %d", len(res.Posts))
	}
	if !strings.Contains(res.Posts[0].CommentHTML, `<span class="`+constants.HighlightClass+`">keyboard</span>`) {
		t.Fatalf("comment not highlighted: %q", res.Posts[0].CommentHTML)
	}
}

func TestSearchSQLPluginRestricts(t *testing.T) {
	adapter, client := newTestAdapter(t, "g")
	insertPost(t, client, "g", 100, 100, 1, "plugin target")
	insertPost(t, client, "g", 101, 100, 0, "plugin target")
	insertPost(t, client, "g", 102, 100, 0, "plugin target")

	svc := NewService(searchCfg(false, false), searchCfg(true, false), nil, adapter, nil, newFakeCache())
	svc.RegisterPlugin(&testPlugin{applies: true, result: map[string][]uint32{"g": {100, 102}}})

	res, err := svc.SearchSQL(context.Background(), &Form{BoardsCSV: "g", Comment: "plugin"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("want 2 posts got %d", len(res.Posts))
	}
	for _, post := range res.Posts {
		if post.Num != 100 && post.Num != 102 {
			t.Fatalf("unexpected post %d", post.Num)
		}
	}
	if res.TotalPages != 1 || res.Page != 1 {
		t.Fatalf("plugin results must be a single page, got %d/%d", res.Page, res.TotalPages)
	}
}

func TestSearchIndexUnpacksHits(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	stub := &stubIndex{
		hits: []*index.Hit{
			packedHit(t, "g", 100, 100, "first"),
			packedHit(t, "g", 100, 101, "second"),
		},
		total: 40,
	}
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())

	res, err := svc.SearchIndex(context.Background(), &Form{BoardsCSV: "g", Comment: "term"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Posts) != 2 {
		t.Fatalf("want 2 posts got %d", len(res.Posts))
	}
	if res.Posts[0].Num != 100 || res.Posts[0].Board != "g" {
		t.Fatalf("hit payload not unpacked: %+v", res.Posts[0])
	}
	if res.TotalHits != 40 {
		t.Fatalf("total want 40 got %d", res.TotalHits)
	}
	if res.TotalPages != 2 {
		t.Fatalf("total pages want 2 got %d", res.TotalPages)
	}
	if len(stub.queries) != 1 {
		t.Fatalf("want 1 query got %d", len(stub.queries))
	}
	q := stub.queries[0]
	if len(q.Boards) != 1 || q.Boards[0] != codec.BoardToU32("g") {
		t.Fatalf("query boards want [g] got %v", q.Boards)
	}
	if q.SortBy != "timestamp" || q.Sort != "desc" {
		t.Fatalf("default sort want timestamp desc got %s %s", q.SortBy, q.Sort)
	}
}

func TestSearchIndexDisabled(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	svc := NewService(searchCfg(false, false), searchCfg(false, false), nil, adapter, nil, newFakeCache())
	_, err := svc.SearchIndex(context.Background(), &Form{BoardsCSV: "g"}, false)
	appErr, ok := err.(*response.AppError)
	if !ok || appErr.Code != response.CodeBadRequest {
		t.Fatalf("want bad request got %v", err)
	}
}

func TestSearchIndexFailureDegradesToEmptyResult(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	stub := &stubIndex{err: fmt.Errorf("connection refused")}
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())

	res, err := svc.SearchIndex(context.Background(), &Form{BoardsCSV: "g", Comment: "term"}, false)
	if err != nil {
		t.Fatalf("backend failure must not error out: %v", err)
	}
	if len(res.Posts) != 0 || res.TotalHits != 0 {
		t.Fatalf("want empty result got %+v", res)
	}
	if res.Flash == "" {
		t.Fatalf("want flash message on degraded result")
	}
	if res.Page != 1 || res.TotalPages != 1 {
		t.Fatalf("degraded result paging want 1/1 got %d/%d", res.Page, res.TotalPages)
	}
}

func TestSearchIndexOpFacetGoesBoardByBoard(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g", "a")
	gU32 := codec.BoardToU32("g")
	aU32 := codec.BoardToU32("a")
	stub := &stubIndex{
		threadNums: map[string][]uint32{"g": {100}, "a": {300}},
		hitsByBoard: map[uint32][]*index.Hit{
			gU32: {packedHit(t, "g", 100, 100, "in g"), packedHit(t, "g", 100, 101, "in g")},
			aU32: {packedHit(t, "a", 300, 300, "in a")},
		},
		totalByBoard: map[uint32]int{gU32: 2, aU32: 1},
	}
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())

	res, err := svc.SearchIndex(context.Background(),
		&Form{BoardsCSV: "g,a", OpComment: "thread starter"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(stub.facetQueries) != 1 {
		t.Fatalf("want 1 facet query got %d", len(stub.facetQueries))
	}
	facet := stub.facetQueries[0]
	if facet.Op == nil || !*facet.Op {
		t.Fatalf("facet query must constrain to ops")
	}
	if facet.Comment != "thread starter" {
		t.Fatalf("facet comment want %q got %q", "thread starter", facet.Comment)
	}
	if len(stub.queries) != 2 {
		t.Fatalf("want one query per board got %d", len(stub.queries))
	}
	for _, q := range stub.queries {
		if len(q.Boards) != 1 {
			t.Fatalf("per-board query must carry one board, got %v", q.Boards)
		}
		if len(q.ThreadNums) != 1 {
			t.Fatalf("per-board query must constrain thread nums, got %v", q.ThreadNums)
		}
	}
	if res.TotalHits != 3 || len(res.Posts) != 3 {
		t.Fatalf("totals must sum across boards, got total=%d posts=%d", res.TotalHits, len(res.Posts))
	}
}

func TestSearchIndexPluginIntersects(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g", "a")
	stub := &stubIndex{
		hits: []*index.Hit{
			packedHit(t, "g", 100, 100, "match"),
			packedHit(t, "g", 100, 101, "match"),
			packedHit(t, "a", 300, 300, "match"),
		},
		total: 3,
	}
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())
	svc.RegisterPlugin(&testPlugin{applies: true, result: map[string][]uint32{"g": {100}}})

	res, err := svc.SearchIndex(context.Background(), &Form{BoardsCSV: "g,a", Comment: "match"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Posts) != 1 || res.Posts[0].Num != 100 || res.Posts[0].Board != "g" {
		t.Fatalf("plugin intersection wrong: %+v", res.Posts)
	}
	if res.TotalHits != 1 {
		t.Fatalf("total must follow intersection, got %d", res.TotalHits)
	}
}

func TestPluginWithNoHitsShortCircuits(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	stub := &stubIndex{}
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())
	svc.RegisterPlugin(&testPlugin{applies: true, result: map[string][]uint32{}})

	res, err := svc.SearchIndex(context.Background(), &Form{BoardsCSV: "g", Comment: "term"}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(stub.queries) != 0 {
		t.Fatalf("empty plugin result must skip the index, got %d queries", len(stub.queries))
	}
	if res.TotalHits != 0 || len(res.Posts) != 0 {
		t.Fatalf("want empty result got total=%d posts=%d", res.TotalHits, len(res.Posts))
	}
}

func TestIntersectBoardNums(t *testing.T) {
	got := intersectBoardNums(
		map[string][]uint32{"g": {1, 2, 3}, "a": {10}},
		map[string][]uint32{"g": {2, 3, 4}, "b": {99}},
	)
	if len(got) != 1 {
		t.Fatalf("want only g got %v", got)
	}
	if nums := got["g"]; len(nums) != 2 || nums[0] != 2 || nums[1] != 3 {
		t.Fatalf("g want [2 3] got %v", nums)
	}
}

func TestSearchIndexGallery(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	stub := &stubIndex{
		hits:  []*index.Hit{packedHit(t, "g", 100, 100, "with media")},
		total: 1,
	}
	svc := NewService(searchCfg(true, true), searchCfg(false, false), nil, adapter, stub, newFakeCache())

	res, err := svc.SearchIndex(context.Background(),
		&Form{BoardsCSV: "g", Comment: "media", GalleryMode: true}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !res.Gallery {
		t.Fatalf("result must carry gallery flag")
	}
	if res.Posts[0].CommentHTML != "" {
		t.Fatalf("gallery must skip comment rendering")
	}
	if len(stub.queries) != 1 || !stub.queries[0].HasFile {
		t.Fatalf("gallery query must require files")
	}
	if stub.queries[0].Highlight {
		t.Fatalf("gallery query must not request highlighting")
	}
}

// pagedStubIndex 只有末页有命中，前面的页都返回空
type pagedStubIndex struct {
	stubIndex
	lastPage int
}

func (s *pagedStubIndex) SearchPosts(ctx context.Context, q *index.SearchQuery) ([]*index.Hit, int, error) {
	// 查询对象会被调用方原地改页号，这里记快照避免断言读到改后的值
	snapshot := *q
	s.queries = append(s.queries, &snapshot)
	if q.Page == s.lastPage {
		return s.hits, s.total, nil
	}
	return nil, s.total, nil
}

func TestSearchIndexClampsOutOfRangePage(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	stub := &pagedStubIndex{lastPage: 2}
	stub.hits = []*index.Hit{packedHit(t, "g", 100, 101, "tail")}
	stub.total = 30
	svc := NewService(searchCfg(true, false), searchCfg(false, false), nil, adapter, stub, newFakeCache())

	res, err := svc.SearchIndex(context.Background(),
		&Form{BoardsCSV: "g", Comment: "term", Page: 9}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	// 每页 25 条共 30 条命中，第 9 页压回末页重查
	if len(stub.queries) != 2 {
		t.Fatalf("query count want 2 got %d", len(stub.queries))
	}
	if stub.queries[0].Page != 9 || stub.queries[1].Page != 2 {
		t.Fatalf("pages want 9 then 2 got %d then %d", stub.queries[0].Page, stub.queries[1].Page)
	}
	if res.Page != 2 {
		t.Fatalf("result page want 2 got %d", res.Page)
	}
	if len(res.Posts) != 1 {
		t.Fatalf("want 1 post got %d", len(res.Posts))
	}
}

func TestSearchGalleryNeedsMediaBoards(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	mediaCfg := &config.MediaConfig{BoardsWithImage: []string{"a"}}
	svc := NewService(searchCfg(false, false), searchCfg(true, false), mediaCfg, adapter, nil, newFakeCache())

	res, err := svc.SearchSQL(context.Background(),
		&Form{BoardsCSV: "g", GalleryMode: true}, false)
	if err != nil {
		t.Fatalf("gallery without media boards must not error: %v", err)
	}
	if len(res.Posts) != 0 {
		t.Fatalf("want empty result got %d posts", len(res.Posts))
	}
	if res.Flash == "" {
		t.Fatalf("want warning flash on gallery without media boards")
	}
	if !res.Gallery {
		t.Fatalf("result must carry gallery flag")
	}
}

func TestSearchGalleryKeepsMediaBoards(t *testing.T) {
	adapter, _ := newTestAdapter(t, "g")
	mediaCfg := &config.MediaConfig{BoardsWithThumb: []string{"g"}}
	svc := NewService(searchCfg(false, false), searchCfg(true, false), mediaCfg, adapter, nil, newFakeCache())

	res, err := svc.SearchSQL(context.Background(),
		&Form{BoardsCSV: "g", GalleryMode: true}, false)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Flash != "" {
		t.Fatalf("media-serving board must pass the gate, got flash %q", res.Flash)
	}
}
