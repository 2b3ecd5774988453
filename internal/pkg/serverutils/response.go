package serverutils

// Response is the envelope every JSON endpoint answers with.
type Response[T any] struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

func SuccessResponse[T any](message string, data T) *Response[T] {
	return &Response[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) *Response[any] {
	return &Response[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// TypedErrorResponse also names the error class so clients can branch on it.
func TypedErrorResponse(code int, errorType, message string) *Response[any] {
	return &Response[any]{
		Success:   false,
		Code:      code,
		Message:   message,
		ErrorType: errorType,
	}
}
