package shared

import (
	"errors"

	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondAppError 把服务层返回的错误映射为响应。
// AppError 的 Code 直接作为 HTTP 状态码；其余错误按 500 处理。
func RespondAppError(c *gin.Context, err error) {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= 500 {
			RequestLog(c).Errorw("handler_error",
				"code", appErr.Code,
				"message", appErr.Message,
				"error", appErr.Err,
			)
		}
		response.Error(c, appErr.Code, appErr.Message)
		return
	}
	RequestLog(c).Errorw("handler_error", "error", err)
	response.Error(c, response.CodeInternal, "internal error")
}
