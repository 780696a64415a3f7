package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Reportar los campos con su nombre JSON.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError cuerpo inválido o campos que no pasan la validación.
type validationError struct {
	code   string
	msg    string
	fields []string
}

func (e *validationError) Error() string { return e.msg }

// bindJSON parsea el body y aplica las reglas `validate` del DTO.
func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &validationError{code: "INVALID_BODY", msg: "cuerpo inválido"}
	}
	return validateStruct(out)
}

// bindQuery parsea query params y valida.
func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return &validationError{code: "INVALID_QUERY", msg: "parámetros inválidos"}
	}
	return validateStruct(out)
}

func validateStruct(out any) error {
	err := validate.Struct(out)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &validationError{code: "VALIDATION", msg: err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+":"+fe.Tag())
	}
	return &validationError{code: "VALIDATION", msg: "datos inválidos", fields: fields}
}
