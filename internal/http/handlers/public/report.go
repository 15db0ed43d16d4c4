package public

import (
	"github.com/ayase-lite/ayase-lite/internal/http/handlers/shared"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/moderation"
	"github.com/ayase-lite/ayase-lite/internal/queue"

	"github.com/gin-gonic/gin"
)

type createReportRequest struct {
	Board    string `json:"board" binding:"required"`
	Num      uint32 `json:"num" binding:"required"`
	Category string `json:"category" binding:"required"`
	Notes    string `json:"notes"`
}

// CreateReport 受理公开举报
func (h *Handler) CreateReport(c *gin.Context) {
	if h.ModerationService == nil || !h.Config.Moderation.Enabled {
		response.NotFound(c, "reporting is disabled")
		return
	}
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "board, num and category are required")
		return
	}

	err := h.ModerationService.CreateReport(c.Request.Context(), moderation.CreateReportForm{
		Board:             req.Board,
		Num:               req.Num,
		SubmitterIP:       c.ClientIP(),
		SubmitterCategory: req.Category,
		SubmitterNotes:    req.Notes,
	})
	if err != nil {
		shared.RespondAppError(c, err)
		return
	}

	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueReportCreated(queue.ReportCreatedPayload{
			Board: req.Board,
			Num:   req.Num,
		}); err != nil {
			logger.Warnw("report_created_enqueue_failed", "board", req.Board, "num", req.Num, "error", err)
		}
	}

	response.SuccessWithMsg(c, "Report submitted.", nil)
}
