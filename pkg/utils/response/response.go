package response

import (
	"net/http"

	"codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope of every ops API answer.
type Response struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// Success sends a successful response with data
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.Success,
		Message: "Success",
		Data:    data,
		TraceID: traceID(c),
	})
}

// Error derives code and message from err and logs it with the request context.
func Error(c *gin.Context, err error) {
	code := errors.GetCode(err)
	resp := Response{
		Code:    code,
		Message: err.Error(),
		TraceID: traceID(c),
	}
	if e, ok := err.(*errors.Error); ok && len(e.Details) > 0 {
		resp.Details = e.Details
	}
	if code == errors.InternalServerError {
		// Foreign errors may leak internals.
		resp.Message = code.Message()
	}

	logger.Error(c.Request.Context(), "request error",
		zap.Int("code", int(code)),
		zap.Error(err),
	)
	c.JSON(code.HTTPStatus(), resp)
}

// NotFound sends a 404 with message, or the default one when empty.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = errors.NotFound.Message()
	}
	c.JSON(http.StatusNotFound, Response{
		Code:    errors.NotFound,
		Message: message,
		TraceID: traceID(c),
	})
}

func traceID(c *gin.Context) string {
	if v, ok := c.Get("trace_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
