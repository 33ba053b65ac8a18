package http

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// formatValidationError flattens validator errors into per-field messages
// for the response body.
func formatValidationError(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": "is invalid"}
	}

	messages := make(map[string]string, len(verrs))
	for _, ferr := range verrs {
		field := strings.ToLower(ferr.Field())
		switch ferr.Tag() {
		case "required":
			messages[field] = fmt.Sprintf("%s is required", field)
		case "min", "gte":
			messages[field] = fmt.Sprintf("%s must be at least %s", field, ferr.Param())
		case "max", "lte":
			messages[field] = fmt.Sprintf("%s must be at most %s", field, ferr.Param())
		case "oneof":
			messages[field] = fmt.Sprintf("%s must be one of: %s", field, ferr.Param())
		case "uuid4":
			messages[field] = fmt.Sprintf("%s must be a valid id", field)
		default:
			messages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return messages
}
