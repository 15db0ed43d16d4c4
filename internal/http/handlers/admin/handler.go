package admin

import "github.com/ayase-lite/ayase-lite/internal/provider"

// Handler 版务接口处理器入口
// 说明：该处理器仅用于版务端 API。
type Handler struct {
	*provider.Container
}

// New 创建版务处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
