package middleware

import (
	"errors"
	"reflect"
	"strings"

	"kalam-backend/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// BindBody parses the request body into dest and validates it. Failures come
// back as a VALIDATION_ERROR with one message per offending field.
func BindBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return &services.Error{Code: services.CodeValidation, Message: "Invalid request body", Err: err}
	}
	return Validate(dest)
}

// BindQuery is BindBody for query strings.
func BindQuery(c *fiber.Ctx, dest interface{}) error {
	if err := c.QueryParser(dest); err != nil {
		return &services.Error{Code: services.CodeValidation, Message: "Invalid query parameters", Err: err}
	}
	return Validate(dest)
}

func Validate(dest interface{}) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &services.Error{Code: services.CodeValidation, Message: "Validation failed", Err: err}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return &services.Error{
		Code:    services.CodeValidation,
		Message: fieldMessage(verrs[0]),
		Fields:  fields,
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fe.Field() + " is required when " + fe.Param() + " is missing"
	case "email":
		return "Invalid email format"
	case "min":
		return fe.Field() + " is too short"
	case "max":
		return fe.Field() + " is too long"
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "gtfield":
		return fe.Field() + " must be greater than " + fe.Param()
	case "e164", "numeric":
		return "Invalid " + fe.Field()
	default:
		return "Validation failed for " + fe.Field()
	}
}
