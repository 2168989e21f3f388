package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teleclinic/consult-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statusByCode = map[errors.ErrorCode]int{
	errors.ErrValidation:        http.StatusBadRequest,
	errors.ErrNotFound:          http.StatusNotFound,
	errors.ErrUnauthorized:      http.StatusUnauthorized,
	errors.ErrForbidden:         http.StatusForbidden,
	errors.ErrInvalidTransition: http.StatusConflict,
	errors.ErrConflict:          http.StatusConflict,
	errors.ErrVersionMismatch:   http.StatusConflict,
	errors.ErrUpstream:          http.StatusBadGateway,
	errors.ErrInternal:          http.StatusInternalServerError,
}

// StatusOf maps an error to its HTTP status code.
func StatusOf(err error) int {
	if status, ok := statusByCode[errors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// RespondWithCreated sends a 201 response
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// RespondWithError sends an error response mapped from the error taxonomy
func RespondWithError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	message := err.Error()
	if code == errors.ErrInternal {
		message = "internal server error"
	}

	c.JSON(StatusOf(err), Response{
		Success: false,
		Error: &Error{
			Code:    string(code),
			Message: message,
		},
	})
}
