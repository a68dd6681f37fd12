package core

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// unknownRegion makes the parser accept only numbers that carry their own
// "+<country code>" prefix.
const unknownRegion = "ZZ"

// NormalizePhone rewrites a raw phone number into "+<country code><number>"
// form. A bare 10-digit number not starting with 1 is taken as North
// American and gets "+1"; anything else without a leading "+" gets "+".
// Malformed input is rewritten all the same and left for the validator.
//
// A 10-digit number that starts with 1 becomes "+1..." with a 9-digit
// remainder and is then rejected by the validator.
func NormalizePhone(raw string) string {
	switch {
	case len(raw) == 10 && !strings.HasPrefix(raw, "1"):
		return "+1" + raw
	case !strings.HasPrefix(raw, "+"):
		return "+" + raw
	default:
		return raw
	}
}

// PhoneParseError reports a phone number that could not be parsed at all,
// as opposed to one that parsed but is not a plausible number.
type PhoneParseError struct {
	Number string
	Err    error
}

func (e *PhoneParseError) Error() string {
	return e.Err.Error()
}

func (e *PhoneParseError) Unwrap() error { return e.Err }

// PhoneValidator decides whether a normalized phone number is valid. It
// returns a *PhoneParseError when the input is not a phone number at all.
type PhoneValidator interface {
	ValidatePhone(normalized string) (bool, error)
}

// NumberValidator validates phone numbers against libphonenumber metadata.
// The zero value is ready to use and safe for concurrent use.
type NumberValidator struct{}

// ValidatePhone implements PhoneValidator.
func (NumberValidator) ValidatePhone(normalized string) (bool, error) {
	num, err := phonenumbers.Parse(normalized, unknownRegion)
	if err != nil {
		return false, &PhoneParseError{Number: normalized, Err: err}
	}
	return phonenumbers.IsValidNumber(num), nil
}

// ValidatePhone validates a normalized phone number with NumberValidator.
func ValidatePhone(normalized string) (bool, error) {
	return NumberValidator{}.ValidatePhone(normalized)
}
