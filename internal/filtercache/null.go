package filtercache

import (
	"context"

	"github.com/ayase-lite/ayase-lite/internal/models"
)

// nullCache 关闭过滤时的空实现：一切都不隐藏
type nullCache struct {
	base
}

func (n *nullCache) Init(ctx context.Context) error { return nil }

func (n *nullCache) IsPostRemoved(ctx context.Context, board string, num uint32) (bool, error) {
	return false, nil
}

func (n *nullCache) GetOpThreadRemovedCount(ctx context.Context, board string) (int, error) {
	return 0, nil
}

func (n *nullCache) GetBoardNumPairs(ctx context.Context, posts []*models.Post) (map[BoardNum]struct{}, error) {
	return map[BoardNum]struct{}{}, nil
}

func (n *nullCache) InsertPost(ctx context.Context, board string, num uint32, op bool) error {
	return nil
}

func (n *nullCache) DeletePost(ctx context.Context, board string, num uint32, op bool) error {
	return nil
}

func (n *nullCache) FilterReportedPosts(ctx context.Context, posts []*models.Post, isAuthority bool) ([]*models.Post, error) {
	return posts, nil
}

func (n *nullCache) Teardown(ctx context.Context) error { return nil }
