// Package validation checks form input before it is sent to the backend. Failures are
// reported per field with the messages the web forms show.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/coursemaster/coursegate/course"
	"github.com/coursemaster/coursegate/credential"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
)

// Errors maps a field's JSON name to its message. It is returned as the error of a failed
// check and is never sent to the backend.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed")
	for i, f := range fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f + ": " + e[f])
	}
	return b.String()
}

// AsErrors extracts Errors from err.
func AsErrors(err error) (Errors, bool) {
	var ve Errors
	ok := errors.As(err, &ve)
	return ve, ok
}

// Register is the registration form.
type Register struct {
	FullName        string          `json:"fullName" validate:"min=3"`
	Email           string          `json:"email" validate:"formemail"`
	Password        string          `json:"password" validate:"min=6"`
	ConfirmPassword string          `json:"confirmPassword" validate:"eqfield=Password"`
	PhoneNumber     string          `json:"phoneNumber,omitempty" validate:"omitempty,phone"`
	Role            credential.Role `json:"role" validate:"oneof=student instructor"`
	Photo           string          `json:"photo,omitempty"`
	Gender          string          `json:"gender,omitempty"`
	DateOfBirth     string          `json:"dateOfBirth,omitempty"`
	Address         string          `json:"address,omitempty"`
}

// Login is the login form.
type Login struct {
	Email    string `json:"email" validate:"formemail"`
	Password string `json:"password" validate:"required"`
}

// Passkey is the admin passkey challenge form.
type Passkey struct {
	Passkey string `json:"passkey" validate:"notblank"`
}

var messages = map[string]string{
	"fullName.min":            "Full name must be at least 3 characters",
	"email.formemail":         "Please enter a valid email",
	"password.min":            "Password must be at least 6 characters",
	"password.required":       "Password is required",
	"confirmPassword.eqfield": "Passwords do not match",
	"phoneNumber.phone":       "Phone number must be 10-15 digits",
	"role.oneof":              "Please choose student or instructor",
	"passkey.notblank":        "Passkey is required",
	"title.notblank":          "Title is required",
	"title.min":               "Title must be at least 3 characters",
	"title.max":               "Title cannot exceed 200 characters",
	"subtitle.max":            "Subtitle cannot exceed 300 characters",
	"description.max":         "Description cannot exceed 5000 characters",
	"price.gte":               "Price cannot be negative",
	"thumbnail.url":           "Please enter a valid URL",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "formemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Check validates a form struct. It returns nil or Errors.
func Check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		out[field] = msg
	}
	return out
}

// CheckRegister validates a registration form.
func CheckRegister(f Register) error { return Check(f) }

// CheckLogin validates a login form.
func CheckLogin(f Login) error { return Check(f) }

// CheckPasskey validates a passkey form.
func CheckPasskey(f Passkey) error { return Check(f) }

// CheckCourse validates a course create or update form.
func CheckCourse(in course.Input) error { return Check(in) }
