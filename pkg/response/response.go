// Package response writes the JSON envelope used by the local API.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in Response.Code. Zero means success.
const (
	CodeOK          = 0
	CodeWarning     = 1
	CodeBadRequest  = -1
	CodeNotFound    = -1003
	CodeConflict    = -1004
	CodeConfirm     = -1005
	CodeUnavailable = -1006
	CodeInternal    = -1
)

// Response is the standard API response structure
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeOK,
		Message: "success",
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

// Warning sends a response for a change that was applied in memory but not
// persisted.
func Warning(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, Response{
		Code:    CodeWarning,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, code int, message string) {
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 error response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound sends a 404 error response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 error response
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, CodeConflict, message)
}

// ConfirmRequired sends a 409 response describing what a destructive request
// would do. Repeating the request with confirm=true performs it.
func ConfirmRequired(c *gin.Context, preview interface{}, message string) {
	c.JSON(http.StatusConflict, Response{
		Code:    CodeConfirm,
		Message: message,
		Data:    preview,
	})
}

// Unavailable sends a 503 error response
func Unavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, CodeUnavailable, message)
}

// InternalError sends a 500 error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}
