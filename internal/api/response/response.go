package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const CodeSuccess = 0

// auth and request shape
const (
	ErrUnauthorized = 10001
	ErrTokenExpired = 10002
	ErrForbidden    = 10003
	ErrInvalidInput = 10004
)

const ErrAnnouncementNotFound = 20001

const ErrNotificationNotFound = 30001

const (
	ErrTooManyRequests = 90002
	ErrInternal        = 99999
)

type Response struct {
	Code       int         `json:"code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Field      string      `json:"field,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

func Paginated(c *gin.Context, data any, page, pageSize int, total int64) {
	c.JSON(http.StatusOK, Response{
		Code:       CodeSuccess,
		Message:    "success",
		Data:       data,
		Pagination: &Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

func Fail(c *gin.Context, httpStatus, appCode int, message string) {
	c.JSON(httpStatus, Response{Code: appCode, Message: message})
}

// Invalid reports a rejected input field with a readable message.
func Invalid(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: ErrInvalidInput, Message: message, Field: field})
}

// Abort writes the failure and stops the handler chain.
func Abort(c *gin.Context, httpStatus, appCode int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{Code: appCode, Message: message})
}
