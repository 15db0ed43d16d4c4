package admin

import (
	"strconv"
	"strings"

	"github.com/ayase-lite/ayase-lite/internal/http/handlers/shared"
	"github.com/ayase-lite/ayase-lite/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListReports 按状态/板块分页列出举报
func (h *Handler) ListReports(c *gin.Context) {
	modStatus := c.DefaultQuery("mod_status", "open")
	var boards []string
	if raw := strings.TrimSpace(c.Query("boards")); raw != "" {
		boards = strings.Split(raw, ",")
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	reports, total, err := h.ModerationService.ListReports(c.Request.Context(), modStatus, boards, page, pageSize)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPage++
	}
	response.SuccessWithPage(c, reports, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetReport 获取单条举报
func (h *Handler) GetReport(c *gin.Context) {
	id, ok := parseReportID(c.Param("id"))
	if !ok {
		response.BadRequest(c, "invalid report id")
		return
	}
	report, err := h.ModerationService.GetReport(c.Request.Context(), id)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.Success(c, report)
}

type reportActionRequest struct {
	Action   string `json:"action" binding:"required"`
	ModNotes string `json:"mod_notes"`
}

// ApplyReportAction 对单条举报执行版务动作
func (h *Handler) ApplyReportAction(c *gin.Context) {
	id, ok := parseReportID(c.Param("id"))
	if !ok {
		response.BadRequest(c, "invalid report id")
		return
	}
	var req reportActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "action is required")
		return
	}

	msg, err := h.ModerationService.Apply(c.Request.Context(), shared.Username(c), id, req.Action, req.ModNotes)
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}
	response.SuccessWithMsg(c, msg, nil)
}

type bulkActionRequest struct {
	ReportIDs []uint `json:"report_ids" binding:"required"`
	Action    string `json:"action" binding:"required"`
	ModNotes  string `json:"mod_notes"`
}

// ApplyBulkReportAction 批量执行版务动作，部分成功时返回 207
func (h *Handler) ApplyBulkReportAction(c *gin.Context) {
	var req bulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "report_ids and action are required")
		return
	}
	if len(req.ReportIDs) == 0 {
		response.BadRequest(c, "report_ids is empty")
		return
	}

	outcomes, mixed := h.ModerationService.ApplyBulk(c.Request.Context(), shared.Username(c), req.ReportIDs, req.Action, req.ModNotes)
	if mixed {
		response.MultiStatus(c, "some report actions failed", outcomes)
		return
	}
	response.Success(c, outcomes)
}

func parseReportID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
