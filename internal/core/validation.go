package core

import (
	"github.com/go-playground/validator/v10"
)

// ValidateName reports whether name is non-empty and made only of ASCII
// letters and spaces. Accented letters, digits and punctuation are rejected.
func ValidateName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isLetter && c != ' ' {
			return false
		}
	}
	return true
}

// EmailValidator decides whether an address is syntactically valid.
type EmailValidator interface {
	ValidateEmail(email string) bool
}

// TagEmailValidator checks addresses with the validator "email" tag. No
// DNS or MX lookups are made.
type TagEmailValidator struct {
	validate *validator.Validate
}

// NewTagEmailValidator returns a TagEmailValidator. It is safe for
// concurrent use.
func NewTagEmailValidator() *TagEmailValidator {
	return &TagEmailValidator{validate: validator.New()}
}

// ValidateEmail implements EmailValidator.
func (v *TagEmailValidator) ValidateEmail(email string) bool {
	return v.validate.Var(email, "required,email") == nil
}

var defaultEmails = NewTagEmailValidator()

// ValidateEmail validates an address with a shared TagEmailValidator.
func ValidateEmail(email string) bool {
	return defaultEmails.ValidateEmail(email)
}
