package asagi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/http/response"
)

// 板块短名直接拼入表名，必须先过白名单；
// 白名单本身也要求短名只含小写字母数字且不超过 5 个字符。
var boardNameRe = regexp.MustCompile(`^[a-z0-9]{1,5}$`)

// Boards 配置的板块白名单
type Boards struct {
	ordered []string
	set     map[string]struct{}
}

// NewBoards 构建白名单；非法短名直接报错
func NewBoards(boards []string) (*Boards, error) {
	b := &Boards{set: make(map[string]struct{}, len(boards))}
	for _, board := range boards {
		board = strings.ToLower(strings.TrimSpace(board))
		if !boardNameRe.MatchString(board) {
			return nil, fmt.Errorf("invalid board name: %q", board)
		}
		if _, ok := b.set[board]; ok {
			continue
		}
		b.set[board] = struct{}{}
		b.ordered = append(b.ordered, board)
	}
	return b, nil
}

// All 返回配置顺序的板块列表
func (b *Boards) All() []string {
	out := make([]string, len(b.ordered))
	copy(out, b.ordered)
	return out
}

// Contains 判断板块是否在白名单内
func (b *Boards) Contains(board string) bool {
	_, ok := b.set[board]
	return ok
}

// Validate 校验单个板块，未知板块返回 404 语义错误
func (b *Boards) Validate(board string) error {
	if !b.Contains(board) {
		return response.NewNotFoundError("unknown board: " + board)
	}
	return nil
}

// ValidateAll 校验多个板块
func (b *Boards) ValidateAll(boards []string) error {
	for _, board := range boards {
		if err := b.Validate(board); err != nil {
			return err
		}
	}
	return nil
}
