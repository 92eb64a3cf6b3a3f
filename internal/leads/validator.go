package leads

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field name to its validation messages.
type FieldErrors map[string][]string

// Add records a message for field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Empty reports whether no field failed.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Fields returns the failing field names in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var engagementTag = "oneof=" + strings.Join([]string{
	string(EngagementQuick),
	string(EngagementStandard),
	string(EngagementComprehensive),
}, " ")

// Validator checks submissions against a form's field contract.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator that reports errors by JSON field name.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate normalizes raw and checks it against form. The returned submission
// is only meaningful when the error map is empty.
func (v *Validator) Validate(form Form, raw Submission) (Submission, FieldErrors) {
	sub := raw.normalize()
	errs := FieldErrors{}

	if err := v.validate.Struct(sub); err != nil {
		v.collect(errs, "", err)
	}

	demoRule := "omitempty," + engagementTag
	if form.RequireEngagement {
		demoRule = "required," + engagementTag
	}
	if err := v.validate.Var(string(sub.DemoType), demoRule); err != nil {
		v.collect(errs, "demoType", err)
	}

	if form.RequireMessage {
		if err := v.validate.Var(sub.Message, "required"); err != nil {
			v.collect(errs, "message", err)
		}
	}

	return sub, errs
}

func (v *Validator) collect(errs FieldErrors, field string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		name := field
		if name == "" {
			name = "body"
		}
		errs.Add(name, err.Error())
		return
	}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		errs.Add(name, message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}
