package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every successful API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the envelope of every failed API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse sends data with status
func SuccessResponse(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OK sends a 200 with data
func OK(c *gin.Context, data any) {
	SuccessResponse(c, http.StatusOK, "", data)
}

// Created sends a 201 with the created resource
func Created(c *gin.Context, message string, data any) {
	SuccessResponse(c, http.StatusCreated, message, data)
}

// ErrorResponseWithMessage sends an error with a custom message
func ErrorResponseWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    status,
	})
}

// ErrorWithDetails sends an error carrying extra fields for the client
func ErrorWithDetails(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    status,
		Details: details,
	})
}

// BadRequestError sends a 400
func BadRequestError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusBadRequest, message)
}

// UnauthorizedError sends a 401
func UnauthorizedError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusUnauthorized, message)
}

// ForbiddenError sends a 403
func ForbiddenError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusForbidden, message)
}

// LockedError sends a 423
func LockedError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusLocked, message)
}
