package public

import (
	"github.com/ayase-lite/ayase-lite/internal/http/handlers/shared"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/search"

	"github.com/gin-gonic/gin"
)

// SearchIndex 全文索引搜索
func (h *Handler) SearchIndex(c *gin.Context) {
	form, ok := h.bindSearchForm(c)
	if !ok {
		return
	}
	result, err := h.SearchService.SearchIndex(c.Request.Context(), form, shared.Username(c) != "")
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.Success(c, result)
}

// SearchSQL 原生 SQL 搜索
func (h *Handler) SearchSQL(c *gin.Context) {
	form, ok := h.bindSearchForm(c)
	if !ok {
		return
	}
	result, err := h.SearchService.SearchSQL(c.Request.Context(), form, shared.Username(c) != "")
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.Success(c, result)
}

// bindSearchForm 只做绑定，板块拆分与钳制在 Normalize 里统一处理
func (h *Handler) bindSearchForm(c *gin.Context) (*search.Form, bool) {
	var form search.Form
	if err := c.ShouldBindQuery(&form); err != nil {
		response.BadRequest(c, "invalid search parameters")
		return nil, false
	}
	return &form, true
}
