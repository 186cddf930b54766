package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation errors name fields by their JSON keys so messages match the request body.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// fieldHints explain what a clock or absence request field identifies.
var fieldHints = map[string]string{
	"practicumId":  "the placement being clocked against",
	"latitude":     "the device position",
	"longitude":    "the device position",
	"macAddress":   "the device network address",
	"photoUrl":     "the clock-in photo",
	"deviceType":   "the kind of device used",
	"locationType": "where the punch was made",
}

// FormatBindingError turns a gin binding error on an attendance request into a
// message for the student app.
func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, io.EOF) {
		return "Request body is empty, expected a JSON object with practicumId"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("Malformed JSON at byte offset %d", syntaxErr.Offset)
	}

	var dateErr *DateError
	if errors.As(err, &dateErr) {
		return fmt.Sprintf("'%s' is not a yyyy-MM-dd date", dateErr.Value)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("'%s' must be %s, got %s", typeErr.Field, kindName(typeErr.Type), typeErr.Value)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, formatFieldError(fe))
		}
		return strings.Join(out, "; ")
	}

	return err.Error()
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a whole number"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "text"
	case reflect.Bool:
		return "true or false"
	}
	return t.String()
}

func formatFieldError(fe validator.FieldError) string {
	name := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("'%s' is required", name)
	case "gt":
		msg = fmt.Sprintf("'%s' must be greater than %s", name, fe.Param())
	case "max":
		msg = fmt.Sprintf("'%s' must be at most %s characters", name, fe.Param())
	case "latitude":
		msg = fmt.Sprintf("'%s' must be between -90 and 90", name)
	case "longitude":
		msg = fmt.Sprintf("'%s' must be between -180 and 180", name)
	default:
		msg = fmt.Sprintf("'%s' failed the '%s' check", name, fe.Tag())
	}
	if hint, ok := fieldHints[name]; ok {
		msg += fmt.Sprintf(" (%s)", hint)
	}
	return msg
}
