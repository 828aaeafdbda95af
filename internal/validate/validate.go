package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
)

var v = validator.New()

// Struct validates a request DTO and converts the first failures into a
// client-facing VALIDATION error.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("invalid request body")
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return apperr.Validation(strings.Join(msgs, "; "))
}
