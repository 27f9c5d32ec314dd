package forms

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Toast-level messages, in the order they are checked.
const (
	MsgRequired = "Please fill in all required fields"
	MsgPhone    = "Please enter a valid 10-digit phone number"
	MsgEmail    = "Please enter a valid email address"
	MsgInvalid  = "Please check the highlighted fields"
)

var (
	phoneRe = regexp.MustCompile(`^\d{10}$`)
	// emailRe is the storefront's loose email shape, not RFC 5322.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	// Replaces the built-in rule of the same name.
	if err := v.RegisterValidation("email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidationError reports every failing field and the single message shown
// as a toast.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks a form struct. It returns *ValidationError when any rule
// fails.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errors.Wrap(err, "validate form")
	}

	ve := &ValidationError{Fields: make(map[string]string, len(errs))}
	rank := len(toastOrder)
	for _, fe := range errs {
		ve.Fields[fe.Field()] = fieldMessage(fe)
		if r := toastRank(fe.Tag()); r < rank {
			rank = r
		}
	}
	if rank < len(toastOrder) {
		ve.Message = toastOrder[rank].message
	} else {
		ve.Message = MsgInvalid
	}
	return ve
}

var toastOrder = []struct {
	tag     string
	message string
}{
	{"required", MsgRequired},
	{"phone", MsgPhone},
	{"email", MsgEmail},
}

func toastRank(tag string) int {
	for i, t := range toastOrder {
		if t.tag == tag {
			return i
		}
	}
	return len(toastOrder)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "phone":
		return MsgPhone
	case "email":
		return MsgEmail
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	}
	return "Invalid value"
}
