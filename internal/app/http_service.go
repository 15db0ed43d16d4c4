package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPService 归档 API 的 HTTP 服务封装
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务；慢头部直接掐掉
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "archive-http",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "archive-http"
	}
	return s.name
}

// Start 启动监听；正常停机时不把 ErrServerClosed 当错误
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅停机，在途请求跑完或到 ctx 截止
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
