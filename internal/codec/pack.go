package codec

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/ayase-lite/ayase-lite/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

// 打包布局：帖子字段按固定顺序进入列表，经 msgpack、raw deflate（级别 9）
// 与 base64 后落入索引文档的 data 字段。常见零值字段排在前面换取压缩率。
// 顺序即编码版本：增删或重排字段会使所有已有文档失效，必须整库重建。
const packedFieldCount = 25

// anonymousName 打包时折叠为空值
const anonymousName = "Anonymous"

// Pack 将帖子编码为索引文档的 data 载荷
func Pack(p *models.Post) (string, error) {
	name := p.Name
	if name == anonymousName {
		name = ""
	}
	tuple := []interface{}{
		p.Sticky,
		p.Locked,
		p.Spoiler,
		nilIfEmpty(p.Trip),
		nilIfEmpty(p.PosterHash),
		nilIfEmpty(p.PosterCountry),
		nilIfEmpty(p.Title),
		nilIfEmpty(name),
		models.CapcodeToID(p.Capcode),
		nilIfEmpty(p.Deleted),
		BoardToU32(p.Board),
		nilIfEmpty(p.MediaFilename),
		nilIfEmpty(p.MediaOrig),
		nilIfEmpty(p.PreviewOrig),
		nilIfEmpty(p.Exif),
		nilIfEmpty(p.MediaHash),
		p.MediaSize,
		p.MediaW,
		p.MediaH,
		p.PreviewW,
		p.PreviewH,
		p.Num,
		p.ThreadNum,
		p.TsExpired,
		p.TsUnix,
	}

	packed, err := msgpack.Marshal(tuple)
	if err != nil {
		return "", fmt.Errorf("msgpack encode failed: %w", err)
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate init failed: %w", err)
	}
	if _, err := fw.Write(packed); err != nil {
		return "", fmt.Errorf("deflate write failed: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("deflate close failed: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Unpack 从 data 载荷还原帖子并并入索引存储的 comment
func Unpack(data string, comment string) (*models.Post, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("payload base64 decode failed: %w", err)
	}

	fr := flate.NewReader(bytes.NewReader(compressed))
	packed, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("payload inflate failed: %w", err)
	}
	if err := fr.Close(); err != nil {
		return nil, fmt.Errorf("payload inflate close failed: %w", err)
	}

	var tuple []interface{}
	if err := msgpack.Unmarshal(packed, &tuple); err != nil {
		return nil, fmt.Errorf("msgpack decode failed: %w", err)
	}
	if len(tuple) != packedFieldCount {
		return nil, fmt.Errorf("packed payload has %d fields, want %d: reindex required", len(tuple), packedFieldCount)
	}

	name := asString(tuple[7])
	if name == "" {
		name = anonymousName
	}
	num := asUint32(tuple[21])
	threadNum := asUint32(tuple[22])

	post := &models.Post{
		Sticky:        asBool(tuple[0]),
		Locked:        asBool(tuple[1]),
		Spoiler:       asBool(tuple[2]),
		Trip:          asString(tuple[3]),
		PosterHash:    asString(tuple[4]),
		PosterCountry: asString(tuple[5]),
		Title:         asString(tuple[6]),
		Name:          name,
		Capcode:       models.CapcodeFromID(asInt(tuple[8])),
		Deleted:       asString(tuple[9]),
		Board:         U32ToBoard(asUint32(tuple[10])),
		MediaFilename: asString(tuple[11]),
		MediaOrig:     asString(tuple[12]),
		PreviewOrig:   asString(tuple[13]),
		Exif:          asString(tuple[14]),
		MediaHash:     asString(tuple[15]),
		MediaSize:     asUint32(tuple[16]),
		MediaW:        asUint32(tuple[17]),
		MediaH:        asUint32(tuple[18]),
		PreviewW:      asUint32(tuple[19]),
		PreviewH:      asUint32(tuple[20]),
		Num:           num,
		ThreadNum:     threadNum,
		Op:            num == threadNum,
		TsExpired:     asUint32(tuple[23]),
		TsUnix:        asUint32(tuple[24]),
		Comment:       comment,
	}
	return post, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return ""
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v interface{}) int {
	return int(asInt64(v))
}

func asUint32(v interface{}) uint32 {
	return uint32(asInt64(v))
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	default:
		return 0
	}
}
