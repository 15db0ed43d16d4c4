package db

import (
	"context"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gdb, err := Open("sqlite", ":memory:", PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	client := NewClient(gdb, "sqlite")
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRunScriptAndQueryRows(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	script := `
		CREATE TABLE g (num INTEGER PRIMARY KEY, thread_num INTEGER, comment TEXT);
		INSERT INTO g (num, thread_num, comment) VALUES (1, 1, 'op');
		INSERT INTO g (num, thread_num, comment) VALUES (2, 1, 'reply');
	`
	if err := client.RunScript(ctx, script); err != nil {
		t.Fatalf("run script failed: %v", err)
	}

	rows, err := client.QueryRows(ctx, "SELECT num, comment FROM g ORDER BY num")
	if err != nil {
		t.Fatalf("query rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows len want 2 got %d", len(rows))
	}
	if rows[0][1] != "op" {
		t.Fatalf("first comment want op got %v", rows[0][1])
	}
}

func TestQueryMapsPreservesColumnOrder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.RunScript(ctx, "CREATE TABLE ck (num INTEGER, title TEXT); INSERT INTO ck VALUES (7, 'soup')"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := client.QueryMaps(ctx, "SELECT title, num FROM ck")
	if err != nil {
		t.Fatalf("query maps failed: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "title" || result.Columns[1] != "num" {
		t.Fatalf("columns order want [title num] got %v", result.Columns)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows len want 1 got %d", len(result.Rows))
	}
	if result.Rows[0]["title"] != "soup" {
		t.Fatalf("title want soup got %v", result.Rows[0]["title"])
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	gdb, err := Open("sqlite", ":memory:", PoolConfig{})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	client := NewClient(gdb, "sqlite")
	if err := client.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestPoolsShareMainDSNWhenRoleDSNEmpty(t *testing.T) {
	pools := NewPools(PoolsConfig{Type: "sqlite", DSN: ":memory:"})
	t.Cleanup(func() {
		_ = pools.Close()
	})

	query, err := pools.Get(RoleQuery)
	if err != nil {
		t.Fatalf("get query client failed: %v", err)
	}
	again, err := pools.Get(RoleQuery)
	if err != nil {
		t.Fatalf("get query client again failed: %v", err)
	}
	if query != again {
		t.Fatalf("same role should reuse the client")
	}

	mod, err := pools.Get(RoleModeration)
	if err != nil {
		t.Fatalf("get moderation client failed: %v", err)
	}
	if mod == query {
		t.Fatalf("roles should get distinct clients")
	}
}
