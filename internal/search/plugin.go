package search

import (
	"context"
)

// Plugin 搜索插件：在两条搜索路径之前运行，返回各板块允许的
// 帖号集合，多个插件的结果取交集
type Plugin interface {
	// Name 插件名，用于日志
	Name() string
	// Applies 本次表单是否触发该插件
	Applies(f *Form) bool
	// Search 返回 board -> 允许的帖号；空 map 表示无命中
	Search(ctx context.Context, f *Form) (map[string][]uint32, error)
}

// RegisterPlugin 注册搜索插件，按注册顺序执行
func (s *Service) RegisterPlugin(p Plugin) {
	s.plugins = append(s.plugins, p)
}

// runPlugins 跑完所有命中的插件并取交集；第二个返回值表示
// 是否有插件参与本次搜索
func (s *Service) runPlugins(ctx context.Context, f *Form) (map[string][]uint32, bool, error) {
	var merged map[string][]uint32
	applied := false
	for _, p := range s.plugins {
		if !p.Applies(f) {
			continue
		}
		boardNums, err := p.Search(ctx, f)
		if err != nil {
			return nil, false, err
		}
		if !applied {
			merged = boardNums
			applied = true
			continue
		}
		merged = intersectBoardNums(merged, boardNums)
	}
	return merged, applied, nil
}

func intersectBoardNums(a, b map[string][]uint32) map[string][]uint32 {
	out := make(map[string][]uint32)
	for board, nums := range a {
		other, ok := b[board]
		if !ok {
			continue
		}
		set := make(map[uint32]struct{}, len(other))
		for _, num := range other {
			set[num] = struct{}{}
		}
		var kept []uint32
		for _, num := range nums {
			if _, ok := set[num]; ok {
				kept = append(kept, num)
			}
		}
		if len(kept) > 0 {
			out[board] = kept
		}
	}
	return out
}
