package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by the request middleware.
const (
	ContextKeyRequestID    = "request_id"
	ContextKeyRequestStart = "request_start"
)

// Response is the envelope every HTTP endpoint answers with.
type Response struct {
	Data       any         `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries the machine-readable code. Fields holds validation
// failures per field; Detail holds the upstream cause of a fetch failure.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// Pagination reports how much of a result set was returned.
type Pagination struct {
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	Returned   int `json:"returned"`
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	// ElapsedMS is the handler time so far, present when the request
	// middleware recorded a start time.
	ElapsedMS float64 `json:"elapsed_ms,omitempty"`
}

// ─── Builders ──────────────────────────────────────────────────────────────

// Success sends data with the given status code.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Data: data, Metadata: buildMetadata(c)})
}

// SuccessWithPagination sends a list together with its pagination block.
func SuccessWithPagination(c *gin.Context, statusCode int, data any, pagination *Pagination) {
	c.JSON(statusCode, Response{
		Data:       data,
		Pagination: pagination,
		Metadata:   buildMetadata(c),
	})
}

// Fail sends an error with the code's default message.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, errorResponse(c, newErrorBody(code)))
}

// FailWithFields sends a validation error with per-field messages.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	body := newErrorBody(code)
	body.Fields = fields
	c.JSON(statusCode, errorResponse(c, body))
}

// FailWithDetail sends an error carrying the upstream failure detail.
func FailWithDetail(c *gin.Context, statusCode int, code ErrCode, detail string) {
	body := newErrorBody(code)
	body.Detail = detail
	c.JSON(statusCode, errorResponse(c, body))
}

// AbortFail stops the middleware chain with an error response.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, errorResponse(c, newErrorBody(code)))
}

// ─── Internal ──────────────────────────────────────────────────────────────

func newErrorBody(code ErrCode) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code)}
}

func errorResponse(c *gin.Context, body *ErrorBody) Response {
	return Response{Error: body, Metadata: buildMetadata(c)}
}

func buildMetadata(c *gin.Context) Metadata {
	now := time.Now()
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	meta := Metadata{
		RequestID: id,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if v, ok := c.Get(ContextKeyRequestStart); ok {
		if start, ok := v.(time.Time); ok {
			meta.ElapsedMS = float64(now.Sub(start).Microseconds()) / 1000
		}
	}
	return meta
}
