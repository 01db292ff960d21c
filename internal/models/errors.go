package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced by the social stores.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeProtectedAdmin     = "PROTECTED_ADMIN"
	CodeDuplicatePhone     = "DUPLICATE_PHONE"
	CodeDuplicateUsername  = "DUPLICATE_USERNAME"
	CodeSelfFollow         = "SELF_FOLLOW"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyAdmin       = "ALREADY_ADMIN"
	CodeNotAdmin           = "NOT_ADMIN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingPhone       = "MISSING_PHONE"
	CodeMissingImage       = "MISSING_IMAGE"
	CodeMissingCaption     = "MISSING_CAPTION"
	CodeMissingMedia       = "MISSING_MEDIA"
	CodeEmptyBody          = "EMPTY_BODY"
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON error body of the collaborator server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError builds an AppError with the given code and user-facing message.
func NewError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Predefined error constructors
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " پیدا نشد.",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode extracts the AppError code from err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// RespondWithError writes err as an ErrorResponse. Only an AppError carries
// a code and, when it wraps a cause, details.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	resp := ErrorResponse{Error: err.Error()}
	var appErr *AppError
	if errors.As(err, &appErr) {
		resp = ErrorResponse{Error: appErr.Message, Code: appErr.Code}
		if appErr.Err != nil {
			resp.Details = appErr.Err.Error()
		}
	}
	return c.Status(status).JSON(resp)
}
