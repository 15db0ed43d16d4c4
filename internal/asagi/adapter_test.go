package asagi

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ayase-lite/ayase-lite/internal/db"
)

const boardSchemaTemplate = `
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
	CREATE TABLE %[1]s_threads (
		thread_num INTEGER NOT NULL,
		time_op INTEGER NOT NULL DEFAULT 0,
		time_bump INTEGER NOT NULL DEFAULT 0,
		nreplies INTEGER NOT NULL DEFAULT 0,
		nimages INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE %[1]s_deleted (
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
		exif TEXT,
		media_id INTEGER NOT NULL DEFAULT 0,
		poster_ip TEXT NOT NULL DEFAULT '0',
		subnum INTEGER NOT NULL DEFAULT 0
	);
`

type fixturePost struct {
	num       uint32
	threadNum uint32
	op        int
	ts        int64
	title     string
	comment   string
	media     string
	deleted   int
	capcode   string
	mediaW    int
	mediaH    int
}

func newTestAdapter(t *testing.T, boardNames ...string) *Adapter {
	t.Helper()
	gdb, err := db.Open("sqlite", ":memory:", db.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	client := db.NewClient(gdb, "sqlite")
	t.Cleanup(func() {
		_ = client.Close()
	})

	var schema strings.Builder
	for _, board := range boardNames {
		schema.WriteString(fmt.Sprintf(boardSchemaTemplate, board))
	}
	if err := client.RunScript(context.Background(), schema.String()); err != nil {
		t.Fatalf("create schema failed: %v", err)
	}

	boards, err := NewBoards(boardNames)
	if err != nil {
		t.Fatalf("new boards failed: %v", err)
	}
	return NewAdapter(client, boards)
}

func insertPost(t *testing.T, a *Adapter, board string, p fixturePost) {
	t.Helper()
	capcode := p.capcode
	if capcode == "" {
		capcode = "N"
	}
	var media interface{}
	if p.media != "" {
		media = p.media
	}
	err := a.client.Exec(context.Background(), fmt.Sprintf(`
		insert into %s (num, thread_num, op, timestamp, name, title, comment,
			media_filename, media_w, media_h, deleted, capcode)
		values (?, ?, ?, ?, 'Anonymous', ?, ?, ?, ?, ?, ?, ?)`, board),
		p.num, p.threadNum, p.op, p.ts, p.title, p.comment,
		media, p.mediaW, p.mediaH, p.deleted, capcode)
	if err != nil {
		t.Fatalf("insert post %d failed: %v", p.num, err)
	}
}

func insertThread(t *testing.T, a *Adapter, board string, threadNum uint32, timeBump int64, nreplies, nimages int) {
	t.Helper()
	err := a.client.Exec(context.Background(), fmt.Sprintf(`
		insert into %s_threads (thread_num, time_op, time_bump, nreplies, nimages)
		values (?, ?, ?, ?, ?)`, board),
		threadNum, timeBump, timeBump, nreplies, nimages)
	if err != nil {
		t.Fatalf("insert thread %d failed: %v", threadNum, err)
	}
}

// 两个线程：100 有 5 条回帖，200 有 1 条且 bump 更新
func seedBoardG(t *testing.T, a *Adapter) {
	t.Helper()
	insertPost(t, a, "g", fixturePost{num: 100, threadNum: 100, op: 1, ts: 1000, title: "install gentoo", comment: "op comment"})
	for i := uint32(101); i <= 105; i++ {
		insertPost(t, a, "g", fixturePost{num: i, threadNum: 100, ts: int64(1000 + i), comment: fmt.Sprintf(">>100 reply %d", i)})
	}
	insertPost(t, a, "g", fixturePost{num: 200, threadNum: 200, op: 1, ts: 2000, title: "thinkpad general", comment: "tp", media: "x220.jpg", mediaW: 1024, mediaH: 768})
	insertPost(t, a, "g", fixturePost{num: 201, threadNum: 200, ts: 2010, comment: ">>200"})
	insertThread(t, a, "g", 100, 1105, 5, 0)
	insertThread(t, a, "g", 200, 2010, 1, 1)
}

func TestGenerateIndex(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)

	page, err := a.GenerateIndex(context.Background(), "g", 1)
	if err != nil {
		t.Fatalf("generate index failed: %v", err)
	}
	if len(page.Threads) != 2 {
		t.Fatalf("threads want 2 got %d", len(page.Threads))
	}
	// time_bump 倒序：线程 200 在前
	first := page.Threads[0].Posts
	if first[0].Num != 200 || !first[0].Op {
		t.Fatalf("first thread op want 200 got %d", first[0].Num)
	}
	if first[0].NReplies != 1 || first[0].NImages != 1 {
		t.Fatalf("summary want 1/1 got %d/%d", first[0].NReplies, first[0].NImages)
	}

	// 第二个线程只保留最新 3 条回帖，且按 num 升序
	second := page.Threads[1].Posts
	if second[0].Num != 100 {
		t.Fatalf("second thread op want 100 got %d", second[0].Num)
	}
	if len(second) != 4 {
		t.Fatalf("op+latest replies want 4 posts got %d", len(second))
	}
	for i, wantNum := range []uint32{103, 104, 105} {
		if second[i+1].Num != wantNum {
			t.Fatalf("reply %d want %d got %d", i, wantNum, second[i+1].Num)
		}
	}

	// 回帖引用 OP 的反向引用表
	if got := page.Quotelinks[100]; len(got) != 5 {
		t.Fatalf("quotelinks[100] want 5 got %v", got)
	}
	// 评论已渲染
	if !strings.Contains(second[1].CommentHTML, "quotelink") {
		t.Fatalf("reply comment should contain quotelink anchor: %q", second[1].CommentHTML)
	}
}

func TestGenerateIndexEmptyBoard(t *testing.T) {
	a := newTestAdapter(t, "g")
	page, err := a.GenerateIndex(context.Background(), "g", 1)
	if err != nil {
		t.Fatalf("generate index failed: %v", err)
	}
	if len(page.Threads) != 0 || page.Quotelinks == nil {
		t.Fatalf("empty board should yield zero threads with non-nil quotelinks")
	}
}

func TestGenerateIndexUnknownBoard(t *testing.T) {
	a := newTestAdapter(t, "g")
	if _, err := a.GenerateIndex(context.Background(), "x", 1); err == nil {
		t.Fatalf("unknown board should fail")
	}
}

func TestGenerateCatalog(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)

	pages, err := a.GenerateCatalog(context.Background(), "g", 1)
	if err != nil {
		t.Fatalf("generate catalog failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages want 1 got %d", len(pages))
	}
	threads := pages[0].Threads
	if len(threads) != 2 {
		t.Fatalf("catalog threads want 2 got %d", len(threads))
	}
	if threads[0].Num != 200 || threads[1].Num != 100 {
		t.Fatalf("catalog order want [200 100] got [%d %d]", threads[0].Num, threads[1].Num)
	}
	if threads[1].NReplies != 5 {
		t.Fatalf("catalog nreplies want 5 got %d", threads[1].NReplies)
	}
}

func TestGenerateThread(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)

	quotelinks, thread, err := a.GenerateThread(context.Background(), "g", 100)
	if err != nil {
		t.Fatalf("generate thread failed: %v", err)
	}
	if len(thread.Posts) != 6 {
		t.Fatalf("posts want 6 got %d", len(thread.Posts))
	}
	for i := 1; i < len(thread.Posts); i++ {
		if thread.Posts[i].Num <= thread.Posts[i-1].Num {
			t.Fatalf("posts not ascending at %d", i)
		}
	}
	if thread.Posts[0].NReplies != 5 {
		t.Fatalf("op nreplies want 5 got %d", thread.Posts[0].NReplies)
	}
	if len(quotelinks[100]) != 5 {
		t.Fatalf("quotelinks[100] want 5 got %v", quotelinks[100])
	}
}

func TestGenerateThreadMissing(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)
	quotelinks, thread, err := a.GenerateThread(context.Background(), "g", 999)
	if err != nil {
		t.Fatalf("generate thread failed: %v", err)
	}
	if len(thread.Posts) != 0 || len(quotelinks) != 0 {
		t.Fatalf("missing thread should yield empty view")
	}
}

func TestGetPost(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)

	post, err := a.GetPost(context.Background(), "g", 200)
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post == nil || post.Board != "g" || !post.Op || post.MediaFilename != "x220.jpg" {
		t.Fatalf("post mismatch: %+v", post)
	}
	if post.Name != "Anonymous" || post.Capcode != "user" {
		t.Fatalf("name/capcode mismatch: %q %q", post.Name, post.Capcode)
	}

	missing, err := a.GetPost(context.Background(), "g", 999)
	if err != nil {
		t.Fatalf("get missing post failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing post want nil got %+v", missing)
	}
}

func TestGetOpThreadCount(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)
	count, err := a.GetOpThreadCount(context.Background(), "g")
	if err != nil {
		t.Fatalf("thread count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count want 2 got %d", count)
	}
}

func TestGetDeletedNumOps(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)
	insertPost(t, a, "g", fixturePost{num: 300, threadNum: 300, op: 1, ts: 3000, comment: "gone", deleted: 1})

	numOps, err := a.GetDeletedNumOps(context.Background(), "g")
	if err != nil {
		t.Fatalf("deleted num ops failed: %v", err)
	}
	if len(numOps) != 1 || numOps[0].Num != 300 || !numOps[0].Op {
		t.Fatalf("deleted num ops want [{300 true}] got %v", numOps)
	}
}

func TestGetNumOpsByRegex(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)

	numOps, err := a.GetNumOpsByRegex(context.Background(), "g", `reply 10[12]`)
	if err != nil {
		t.Fatalf("regex num ops failed: %v", err)
	}
	if len(numOps) != 2 {
		t.Fatalf("regex matches want 2 got %v", numOps)
	}
	for _, no := range numOps {
		if no.Op {
			t.Fatalf("regex matched an op unexpectedly: %v", no)
		}
	}

	if _, err := a.GetNumOpsByRegex(context.Background(), "g", `[`); err == nil {
		t.Fatalf("invalid pattern should fail")
	}
}

func TestMovePostToDeleteTable(t *testing.T) {
	a := newTestAdapter(t, "g")
	seedBoardG(t, a)
	ctx := context.Background()

	if err := a.MovePostToDeleteTable(ctx, "g", 201); err != nil {
		t.Fatalf("move post failed: %v", err)
	}

	post, err := a.GetPost(ctx, "g", 201)
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post != nil {
		t.Fatalf("post 201 should be gone from live table")
	}

	rows, err := a.client.QueryRows(ctx, "select num, comment, subnum from g_deleted where num = ?", 201)
	if err != nil {
		t.Fatalf("query deleted table failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("deleted table rows want 1 got %d", len(rows))
	}
	if valueToInt64(rows[0][2]) != 0 {
		t.Fatalf("subnum want 0 got %v", rows[0][2])
	}
}

func TestGetLatestOpsAsCatalog(t *testing.T) {
	a := newTestAdapter(t, "g", "a")
	seedBoardG(t, a)
	insertPost(t, a, "a", fixturePost{num: 50, threadNum: 50, op: 1, ts: 500, title: "anime", comment: "a op"})
	insertThread(t, a, "a", 50, 500, 0, 0)

	pages, err := a.GetLatestOpsAsCatalog(context.Background(), []string{"g", "a"})
	if err != nil {
		t.Fatalf("latest ops failed: %v", err)
	}
	// g 的两个 OP 都进落地页，帖号倒序，然后才轮到 a
	if len(pages) != 1 || len(pages[0].Threads) != 3 {
		t.Fatalf("latest ops want 1 page with 3 threads got %+v", pages)
	}
	threads := pages[0].Threads
	if threads[0].Board != "g" || threads[0].Num != 200 {
		t.Fatalf("first thread want g/200 got %s/%d", threads[0].Board, threads[0].Num)
	}
	if threads[1].Board != "g" || threads[1].Num != 100 {
		t.Fatalf("second thread want g/100 got %s/%d", threads[1].Board, threads[1].Num)
	}
	if threads[2].Board != "a" || threads[2].Num != 50 {
		t.Fatalf("third thread want a/50 got %s/%d", threads[2].Board, threads[2].Num)
	}
}
