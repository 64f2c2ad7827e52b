package controller

import (
	"net/http"
	"time"

	"cfp-scheduler/core/constants"
	"cfp-scheduler/core/errors"
	"cfp-scheduler/core/logger"

	"github.com/labstack/echo/v4"
)

// Response types
type (
	SuccessResponse struct {
		Status    int       `json:"status"`
		Message   string    `json:"message"`
		Data      any       `json:"data,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	ErrorResponse struct {
		Status    string           `json:"status"`
		Code      errors.ErrorCode `json:"code"`
		Message   string           `json:"message"`
		Details   any              `json:"details,omitempty"`
		RequestID string           `json:"request_id,omitempty"`
		Timestamp time.Time        `json:"timestamp"`
	}

	ValidationError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
)

// BaseController renders the envelopes shared by every module
type BaseController interface {
	BadRequest(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError
	NotFound(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError
	Unauthorized(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError
	Forbidden(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError
	SuccessResponse(c echo.Context, data any, message string) error
	Created(c echo.Context, data any, message string) error
	ErrorResponse(c echo.Context, err error) error
}

type responseHandler struct{}

func NewBaseController() BaseController {
	return &responseHandler{}
}

var statusByCode = map[errors.ErrorCode]int{
	errors.ErrInvalidInput:               http.StatusBadRequest,
	errors.ErrInvalidRequestData:         http.StatusBadRequest,
	errors.ErrPreconditionFailed:         http.StatusBadRequest,
	errors.ErrUnauthorized:               http.StatusUnauthorized,
	errors.ErrTokenExpired:               http.StatusUnauthorized,
	errors.ErrInvalidTokenFormat:         http.StatusUnauthorized,
	errors.ErrMissingAuthorizationHeader: http.StatusUnauthorized,
	errors.ErrForbidden:                  http.StatusForbidden,
	errors.ErrNotFound:                   http.StatusNotFound,
	errors.ErrAlreadyExists:              http.StatusConflict,
}

// StatusFor maps an application error code to its HTTP status; unknown codes are 500
func StatusFor(code errors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func NewSuccessResponse(httpStatusCode int, data any, message string) *SuccessResponse {
	return &SuccessResponse{
		Status:    httpStatusCode,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func NewErrorResponse(httpStatusCode int, appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError {
	err := &ErrorResponse{
		Status:    "error",
		Code:      appErrCode,
		Message:   message,
		Timestamp: time.Now(),
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return echo.NewHTTPError(httpStatusCode, err)
}

func NewValidationError(field, message string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: message,
	}
}

// HTTP Error handlers
func (h *responseHandler) BadRequest(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError {
	return NewErrorResponse(http.StatusBadRequest, appErrCode, message, details...)
}

func (h *responseHandler) NotFound(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError {
	return NewErrorResponse(http.StatusNotFound, appErrCode, message, details...)
}

func (h *responseHandler) Unauthorized(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError {
	return NewErrorResponse(http.StatusUnauthorized, appErrCode, message, details...)
}

func (h *responseHandler) Forbidden(appErrCode errors.ErrorCode, message string, details ...any) *echo.HTTPError {
	return NewErrorResponse(http.StatusForbidden, appErrCode, message, details...)
}

func (h *responseHandler) SuccessResponse(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, data, message))
}

func (h *responseHandler) Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, NewSuccessResponse(http.StatusCreated, data, message))
}

// ErrorResponse renders service errors. Messages of non-AppError errors are hidden
// because they may carry driver details.
func (h *responseHandler) ErrorResponse(c echo.Context, err error) error {
	response := &ErrorResponse{
		Status:    "error",
		Code:      errors.ErrInternalServer,
		Message:   "internal server error",
		Timestamp: time.Now(),
	}
	if requestID, ok := c.Get(constants.ContextRequestID).(string); ok {
		response.RequestID = requestID
	}

	var ae *errors.AppError
	if errors.As(err, &ae) && ae != nil {
		response.Code = ae.Code
		if ae.Message != "" {
			response.Message = ae.Message
		}
	}
	httpStatus := StatusFor(response.Code)

	logger.Error("BaseController:ErrorResponse",
		"status", httpStatus,
		"code", response.Code,
		"message", response.Message,
		"request_id", response.RequestID,
		"error", err,
	)
	return c.JSON(httpStatus, response)
}
