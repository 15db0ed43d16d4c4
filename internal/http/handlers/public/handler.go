package public

import "github.com/ayase-lite/ayase-lite/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器仅用于归档浏览、搜索与举报提交 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
