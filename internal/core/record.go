package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrFieldCount is returned for a row that does not carry exactly name,
// phone and email.
var ErrFieldCount = errors.New("row must have exactly 3 fields")

// PersistError reports a valid contact the store failed to write.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "Failed to store record: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

// RecordProcessor validates a single row and stores it when every field
// passes.
type RecordProcessor struct {
	phones PhoneValidator
	emails EmailValidator
	store  ContactStore
}

// NewRecordProcessor builds a processor. Nil validators fall back to
// NumberValidator and TagEmailValidator.
func NewRecordProcessor(store ContactStore, phones PhoneValidator, emails EmailValidator) *RecordProcessor {
	if phones == nil {
		phones = NumberValidator{}
	}
	if emails == nil {
		emails = defaultEmails
	}
	return &RecordProcessor{phones: phones, emails: emails, store: store}
}

// Process validates row (name, phone, email) in field order. When all three
// fields are valid the contact is upserted once and returned. Otherwise the
// field errors are returned in field order and nothing is stored.
//
// A store failure is returned as a *PersistError; any other error means
// the row itself could not be handled.
func (p *RecordProcessor) Process(ctx context.Context, row []string) (*Contact, []FieldError, error) {
	if len(row) != 3 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrFieldCount, len(row))
	}
	name, rawPhone, email := row[0], row[1], row[2]

	var errs []FieldError

	if !ValidateName(name) {
		errs = append(errs, FieldError{Field: FieldName, Value: name})
	}

	phone := NormalizePhone(rawPhone)
	ok, err := p.phones.ValidatePhone(phone)
	switch {
	case err != nil:
		var perr *PhoneParseError
		if !errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("validate phone: %w", err)
		}
		errs = append(errs, FieldError{Field: FieldPhone, Value: phone, Detail: perr.Error()})
	case !ok:
		errs = append(errs, FieldError{Field: FieldPhone, Value: phone})
	}

	if !p.emails.ValidateEmail(email) {
		errs = append(errs, FieldError{Field: FieldEmail, Value: email})
	}

	if len(errs) > 0 {
		return nil, errs, nil
	}

	contact := &Contact{Name: name, Phone: phone, Email: email}
	if err := p.store.Upsert(ctx, contact); err != nil {
		return nil, nil, &PersistError{Err: err}
	}
	return contact, nil, nil
}
