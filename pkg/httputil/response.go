package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zencounsel/counsel-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusFor maps an application error onto its HTTP status code.
func StatusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrValidation, errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrConflict:
		return http.StatusConflict
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithError sends an error response. Internal failures never
// expose their cause; it is attached to the gin context for logging.
func RespondWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := NewErrorResponse(errors.GenericMessage)

	var appErr *errors.AppError
	if status != http.StatusInternalServerError && stderrors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Fields = appErr.Fields
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, resp)
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, items interface{}, limit, offset, total int) {
	c.JSON(http.StatusOK, NewSuccessResponse(PaginatedResponse{
		Items: items,
		Pagination: Pagination{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	}))
}
