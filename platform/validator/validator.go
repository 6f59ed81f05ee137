// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

// TagUTF16Min checks that a string holds at least N UTF-16 code units, the
// length browsers and JavaScript clients report for the same value.
const TagUTF16Min = "utf16min"

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the application's custom rules.
func New() *Validator {
	val := &Validator{
		v: validator.New(validator.WithRequiredStructEnabled()),
	}
	if err := val.RegisterValidation(TagUTF16Min, utf16Min); err != nil {
		panic(fmt.Sprintf("validator: register %s: %v", TagUTF16Min, err))
	}
	return val
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// UTF16Len returns the number of UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func utf16Min(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return UTF16Len(s) >= limit
}

// FailedTags returns the set of tags that failed in err, keyed by tag name.
// Returns nil when err is not a validation error.
func FailedTags(err error) map[string][]string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	tags := make(map[string][]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		tags[fe.Tag()] = append(tags[fe.Tag()], fe.Field())
	}
	return tags
}
