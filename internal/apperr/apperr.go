package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kumbulanit/stockvelOS-sub001/internal/logger"
	"go.uber.org/zap"
)

// Machine-readable error codes returned alongside HTTP statuses.
const (
	CodeValidation        = "VALIDATION"
	CodeAuthentication    = "AUTHENTICATION"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeBusinessRule      = "BUSINESS_RULE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeChairConflict     = "CHAIR_CONFLICT"
	CodeInternal          = "INTERNAL"
)

// Error carries an HTTP status plus a stable code for clients.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(msg string) *Error {
	return New(fiber.StatusBadRequest, CodeValidation, msg)
}

func Authentication(msg string) *Error {
	return New(fiber.StatusUnauthorized, CodeAuthentication, msg)
}

func Forbidden(msg string) *Error {
	return New(fiber.StatusForbidden, CodeForbidden, msg)
}

func NotFound(msg string) *Error {
	return New(fiber.StatusNotFound, CodeNotFound, msg)
}

func Conflict(code, msg string) *Error {
	return New(fiber.StatusConflict, code, msg)
}

func BusinessRule(msg string) *Error {
	return New(fiber.StatusUnprocessableEntity, CodeBusinessRule, msg)
}

// Handler is the app-wide fiber error handler. Responses are always
// {error, code, message}; unexpected errors get a generic 500 body.
func Handler(c *fiber.Ctx, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{
			"error":   true,
			"code":    ae.Code,
			"message": ae.Message,
		})
	}
	if fe, ok := err.(*fiber.Error); ok {
		code := CodeInternal
		switch fe.Code {
		case fiber.StatusBadRequest:
			code = CodeValidation
		case fiber.StatusUnauthorized:
			code = CodeAuthentication
		case fiber.StatusForbidden:
			code = CodeForbidden
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusConflict:
			code = CodeConflict
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"error":   true,
			"code":    code,
			"message": fe.Message,
		})
	}
	logger.L.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   true,
		"code":    CodeInternal,
		"message": "unexpected server error",
	})
}
