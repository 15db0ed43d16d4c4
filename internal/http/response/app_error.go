package response

// AppError 统一错误包装；Code 同时作为 HTTP 状态码
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewUserInputError 表单或参数错误
func NewUserInputError(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message}
}

// NewNotFoundError 资源不存在
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

// NewAuthError 认证或权限错误
func NewAuthError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewTransientError 后端暂时不可用
func NewTransientError(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: err}
}
