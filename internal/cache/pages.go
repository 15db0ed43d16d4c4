package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// 板块页内容由加载器持续追新，短缓存即可挡住热门板块的重复渲染
const boardPageCacheTTL = 30 * time.Second

func indexPageKey(board string, page int) string {
	return fmt.Sprintf("page:index:%s:%d", board, page)
}

func catalogKey(board string, page int) string {
	return fmt.Sprintf("page:catalog:%s:%d", board, page)
}

// GetIndexPage 读取板块页缓存
func GetIndexPage(ctx context.Context, board string, page int) (*models.BoardPage, bool, error) {
	var cached models.BoardPage
	hit, err := GetJSON(ctx, indexPageKey(board, page), &cached)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &cached, true, nil
}

// SetIndexPage 写入板块页缓存
func SetIndexPage(ctx context.Context, board string, page int, value *models.BoardPage) error {
	if value == nil {
		return nil
	}
	return SetJSON(ctx, indexPageKey(board, page), value, boardPageCacheTTL)
}

// GetCatalog 读取目录页缓存
func GetCatalog(ctx context.Context, board string, page int) ([]*asagi.CatalogPage, bool, error) {
	var cached []*asagi.CatalogPage
	hit, err := GetJSON(ctx, catalogKey(board, page), &cached)
	if err != nil || !hit {
		return nil, hit, err
	}
	return cached, true, nil
}

// SetCatalog 写入目录页缓存
func SetCatalog(ctx context.Context, board string, page int, value []*asagi.CatalogPage) error {
	if len(value) == 0 {
		return nil
	}
	return SetJSON(ctx, catalogKey(board, page), value, boardPageCacheTTL)
}

// InvalidateBoard 清掉一个板块的首页与目录首屏缓存
func InvalidateBoard(ctx context.Context, board string) error {
	if err := Del(ctx, indexPageKey(board, 1)); err != nil {
		return err
	}
	return Del(ctx, catalogKey(board, 1))
}
