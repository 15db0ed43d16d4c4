package asagi

import (
	"fmt"
	"sync"
)

// selector 把各板块表的列重命名为统一的帖子记录形态。
// 列名在 scan.go 的行映射中逐一对应。
const selectorTemplate = `
select
    num,
    %[1]s.thread_num,
    op,
    timestamp as ts_unix,
    timestamp_expired as ts_expired,
    preview_orig,
    preview_w,
    preview_h,
    media_filename,
    media_w,
    media_h,
    media_size,
    %[1]s.media_hash,
    media_orig,
    spoiler,
    deleted,
    capcode,
    name,
    trip,
    coalesce(title, '') as title,
    coalesce(comment, '') as comment,
    %[1]s.sticky,
    %[1]s.locked,
    poster_hash,
    poster_country,
    exif,
    '%[2]s' as board`

var (
	selectorMu    sync.Mutex
	selectorCache = make(map[string]string)
)

// quoteIdent 按方言包裹标识符；Postgres 用双引号，其余用反引号
func quoteIdent(dbType, ident string) string {
	if dbType == "postgres" {
		return `"` + ident + `"`
	}
	return "`" + ident + "`"
}

// getSelector 返回板块对应的缓存选择器片段
func getSelector(dbType, board string) string {
	key := dbType + ":" + board
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if s, ok := selectorCache[key]; ok {
		return s
	}
	s := fmt.Sprintf(selectorTemplate, quoteIdent(dbType, board), board)
	selectorCache[key] = s
	return s
}

// offsetClause 生成翻页 offset 子句；page 从 1 开始
func offsetClause(page, perPage int) string {
	if page > 1 && perPage > 0 {
		return fmt.Sprintf("offset %d", (page-1)*perPage)
	}
	return ""
}
