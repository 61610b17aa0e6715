// Package forms validates console payloads before they are sent to the backend.
package forms

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

var labels = map[string]string{
	"employee_id": "Employee ID",
	"full_name":   "Full name",
	"email":       "Email",
	"department":  "Department",
	"date":        "Date",
	"status":      "Status",
}

// Error carries one message per invalid field, in struct order.
type Error struct {
	Fields   []string
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, ", ")
}

// Validate checks v against its validate tags and returns *Error on failure.
func Validate(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Field())
		out.Messages = append(out.Messages, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if field == "employee" {
		return "Please select an employee"
	}
	label, ok := labels[field]
	if !ok {
		label = field
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "datetime":
		return label + " must be a date in YYYY-MM-DD form"
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return label + " must be at most " + fe.Param() + " characters"
	default:
		return label + " is invalid"
	}
}
