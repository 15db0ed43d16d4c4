package asagi

import (
	"strconv"

	"github.com/ayase-lite/ayase-lite/internal/models"
)

// rowToPost 把选择器结果行映射为统一帖子记录
func rowToPost(row map[string]interface{}) *models.Post {
	num := rowUint32(row, "num")
	threadNum := rowUint32(row, "thread_num")
	return &models.Post{
		Board:         rowString(row, "board"),
		Num:           num,
		ThreadNum:     threadNum,
		Op:            rowBool(row, "op"),
		TsUnix:        rowUint32(row, "ts_unix"),
		TsExpired:     rowUint32(row, "ts_expired"),
		Name:          rowString(row, "name"),
		Trip:          rowString(row, "trip"),
		Title:         rowString(row, "title"),
		Comment:       rowString(row, "comment"),
		Capcode:       models.CapcodeFromID(models.CapcodeToID(rowString(row, "capcode"))),
		PosterCountry: rowString(row, "poster_country"),
		PosterHash:    rowString(row, "poster_hash"),
		Sticky:        rowBool(row, "sticky"),
		Locked:        rowBool(row, "locked"),
		Deleted:       rowBoolFlag(row, "deleted"),
		MediaFilename: rowString(row, "media_filename"),
		MediaOrig:     rowString(row, "media_orig"),
		PreviewOrig:   rowString(row, "preview_orig"),
		MediaHash:     rowString(row, "media_hash"),
		MediaSize:     rowUint32(row, "media_size"),
		MediaW:        rowUint32(row, "media_w"),
		MediaH:        rowUint32(row, "media_h"),
		PreviewW:      rowUint32(row, "preview_w"),
		PreviewH:      rowUint32(row, "preview_h"),
		Spoiler:       rowBool(row, "spoiler"),
		Exif:          rowString(row, "exif"),
	}
}

func rowString(row map[string]interface{}, col string) string {
	v := row[col]
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func rowInt64(row map[string]interface{}, col string) int64 {
	return valueToInt64(row[col])
}

func valueToInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case []byte:
		parsed, _ := strconv.ParseInt(string(n), 10, 64)
		return parsed
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}

func rowUint32(row map[string]interface{}, col string) uint32 {
	return uint32(rowInt64(row, col))
}

func rowBool(row map[string]interface{}, col string) bool {
	if b, ok := row[col].(bool); ok {
		return b
	}
	return rowInt64(row, col) != 0
}

// rowBoolFlag 将 0/1 列读成字符串标记
func rowBoolFlag(row map[string]interface{}, col string) string {
	if rowBool(row, col) {
		return "1"
	}
	return "0"
}
