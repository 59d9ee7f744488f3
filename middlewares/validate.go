package middlewares

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"yellowpages-backend/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names ("phone_number") instead of Go field names
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})
	return v
}

// BindAndValidate parses the request body into dst, trims its string fields
// and validates it, so size limits apply to the trimmed values.
// Returns fiber.ErrBadRequest for parse errors and a validator.ValidationErrors for validation issues.
func BindAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	utils.TrimStrings(dst)
	return validate.Struct(dst)
}

// ValidateStruct validates any struct value using the shared validator instance.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
