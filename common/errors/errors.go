package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation is a malformed or incomplete request.
func Validation(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

// Upstream is a failed call to the payment gateway.
func Upstream(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Persistence is a failed store read or write.
func Persistence(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Unauthorized covers missing credentials and rejected identity tokens.
func Unauthorized(message string, err error) *Error {
	return New(http.StatusUnauthorized, message, err)
}

// Forbidden covers malformed, expired or forged session tokens.
func Forbidden(message string, err error) *Error {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *Error {
	return New(http.StatusNotFound, message, err)
}

func Conflict(message string, err error) *Error {
	return New(http.StatusConflict, message, err)
}

// From converts any error into an *Error. Unknown errors become a generic 500
// so that internal details never reach the caller.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := From(c.Errors.Last().Err)
		fields := []zap.Field{
			zap.Int("status", appErr.Code),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
		}
		if appErr.Err != nil {
			fields = append(fields, zap.Error(appErr.Err))
		}
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error(appErr.Message, fields...)
		} else {
			logger.Warn(appErr.Message, fields...)
		}

		if !c.Writer.Written() {
			c.JSON(appErr.Code, gin.H{"success": false, "message": appErr.Message})
		}
		c.Abort()
	}
}

// Common error types
var (
	ErrNotFound = New(http.StatusNotFound, "Not found", nil)
)

// Authentication error types
var (
	ErrMissingToken = New(http.StatusUnauthorized, "Authorization token required", nil)
	ErrInvalidToken = New(http.StatusForbidden, "Invalid or expired token", nil)
)

// Checkout error types
var (
	ErrOrderNotFound  = New(http.StatusNotFound, "Order not found", nil)
	ErrOrderFinalized = New(http.StatusConflict, "Order payment already processed", nil)
)
