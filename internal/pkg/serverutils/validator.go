package serverutils

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError carries one message per failed field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func ValidateRequest(req interface{}) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "uuid", "uuid4":
			fields[fe.Field()] = "must be a valid uuid"
		case "max":
			fields[fe.Field()] = "must be at most " + fe.Param() + " characters"
		case "oneof":
			fields[fe.Field()] = "must be one of [" + fe.Param() + "]"
		case "email":
			fields[fe.Field()] = "must be a valid email"
		default:
			fields[fe.Field()] = "is invalid (" + fe.Tag() + ")"
		}
	}
	return &ValidationError{Fields: fields}
}
