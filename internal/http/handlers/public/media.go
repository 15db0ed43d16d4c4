package public

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMedia 提供归档媒体文件，目录布局 {root}/{board}/{image|thumb}/{yyyy}/{mm}/{filename}
func (h *Handler) GetMedia(c *gin.Context) {
	cfg := &h.Config.Media
	if cfg.RootPath == "" {
		response.NotFound(c, "media serving is disabled")
		return
	}

	board := c.Param("board")
	kind := c.Param("kind")
	filename := filepath.Base(c.Param("filename"))
	if kind != "image" && kind != "thumb" {
		response.BadRequest(c, "unknown media kind")
		return
	}
	if err := h.Boards.Validate(board); err != nil {
		response.NotFound(c, "media not found")
		return
	}
	if !boardServesMedia(cfg.BoardsWithImage, cfg.BoardsWithThumb, board, kind) {
		response.NotFound(c, "media not found")
		return
	}
	if !validMediaFilename(filename, cfg.ValidExtensions) {
		response.BadRequest(c, "invalid media filename")
		return
	}

	rel := filepath.Join(board, kind, filename[0:4], filename[4:6], filename)
	if cfg.XAccelRedirect {
		// 文件本体交给前置 nginx 发送
		c.Header("X-Accel-Redirect", "/"+filepath.ToSlash(filepath.Join("media", rel)))
		c.Status(200)
		return
	}

	abs := filepath.Join(cfg.RootPath, rel)
	if _, err := os.Stat(abs); err != nil {
		response.NotFound(c, "media not found")
		return
	}
	c.File(abs)
}

func boardServesMedia(withImage, withThumb []string, board, kind string) bool {
	list := withImage
	if kind == "thumb" {
		list = withThumb
	}
	for _, b := range list {
		if b == board {
			return true
		}
	}
	return false
}

// validMediaFilename 文件名必须带可分区的时间戳前缀和允许的扩展名
func validMediaFilename(filename string, validExts []string) bool {
	if len(filename) < 6 || strings.ContainsAny(filename, "/\\") {
		return false
	}
	for _, r := range filename[0:6] {
		if r < '0' || r > '9' {
			return false
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range validExts {
		if strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext {
			return true
		}
	}
	return false
}
