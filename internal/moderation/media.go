package moderation

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

const (
	mediaKindImage = "image"
	mediaKindThumb = "thumb"
)

// Media 负责归档媒体文件在可见树与隐藏树之间的搬移和删除。
// 磁盘布局为 {root}/{board}/{image|thumb}/{yyyy}/{mm}/{filename}，
// 其中 yyyy/mm 取自文件名前六位时间戳。
type Media struct {
	root   string // 对外提供服务的媒体根目录
	hidden string // 隐藏媒体根目录，空值表示不搬移文件
}

// NewMedia 创建媒体搬移器
func NewMedia(root, hidden string) *Media {
	return &Media{root: root, hidden: hidden}
}

// Enabled 是否配置了隐藏目录
func (m *Media) Enabled() bool {
	return m.root != "" && m.hidden != ""
}

// partition 从媒体文件名取 yyyy/mm 分区；文件名过短返回 false
func partition(filename string) (string, string, bool) {
	if len(filename) < 6 {
		return "", "", false
	}
	return filename[0:4], filename[4:6], true
}

func mediaRelPath(board, kind, filename string) (string, bool) {
	yyyy, mm, ok := partition(filename)
	if !ok {
		return "", false
	}
	return filepath.Join(board, kind, yyyy, mm, filename), true
}

// move 把文件从 src 挪到 dst，自动建目录。
// 源文件不存在不算错误，返回 false 由调用方汇报。
func move(src, dst string) (bool, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	if err := os.Rename(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

// remove 删除文件；不存在时返回 false
func remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *Media) shift(board, kind, filename string, toHidden bool) bool {
	rel, ok := mediaRelPath(board, kind, filename)
	if !ok {
		return false
	}
	src := filepath.Join(m.root, rel)
	dst := filepath.Join(m.hidden, rel)
	if !toHidden {
		src, dst = dst, src
	}
	moved, err := move(src, dst)
	if err != nil {
		logger.Warnw("media_move_failed", "src", src, "dst", dst, "err", err)
		return false
	}
	return moved
}

func (m *Media) drop(board, kind, filename string) bool {
	rel, ok := mediaRelPath(board, kind, filename)
	if !ok {
		return false
	}
	removed, err := remove(filepath.Join(m.root, rel))
	if err != nil {
		logger.Warnw("media_remove_failed", "board", board, "file", filename, "err", err)
		return false
	}
	hiddenRemoved := false
	if m.hidden != "" {
		hiddenRemoved, err = remove(filepath.Join(m.hidden, rel))
		if err != nil {
			logger.Warnw("media_remove_failed", "board", board, "file", filename, "err", err)
		}
	}
	return removed || hiddenRemoved
}

// Hide 把帖子的原图和缩略图挪进隐藏树，返回各自是否真的搬动了
func (m *Media) Hide(board string, post *models.Post) (fullMoved, thumbMoved bool) {
	if !m.Enabled() || post == nil {
		return false, false
	}
	if post.MediaOrig != "" {
		fullMoved = m.shift(board, mediaKindImage, post.MediaOrig, true)
	}
	if post.PreviewOrig != "" {
		thumbMoved = m.shift(board, mediaKindThumb, post.PreviewOrig, true)
	}
	return fullMoved, thumbMoved
}

// Show 把帖子的媒体从隐藏树挪回可见树
func (m *Media) Show(board string, post *models.Post) (fullMoved, thumbMoved bool) {
	if !m.Enabled() || post == nil {
		return false, false
	}
	if post.MediaOrig != "" {
		fullMoved = m.shift(board, mediaKindImage, post.MediaOrig, false)
	}
	if post.PreviewOrig != "" {
		thumbMoved = m.shift(board, mediaKindThumb, post.PreviewOrig, false)
	}
	return fullMoved, thumbMoved
}

// Delete 删除帖子的媒体文件，两棵树都清
func (m *Media) Delete(board string, post *models.Post) (fullRemoved, thumbRemoved bool) {
	if m.root == "" || post == nil {
		return false, false
	}
	if post.MediaOrig != "" {
		fullRemoved = m.drop(board, mediaKindImage, post.MediaOrig)
	}
	if post.PreviewOrig != "" {
		thumbRemoved = m.drop(board, mediaKindThumb, post.PreviewOrig)
	}
	return fullRemoved, thumbRemoved
}
