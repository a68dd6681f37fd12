package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Contact is a fully validated contact record. Phone is in canonical
// "+<country code><number>" form. ID is the surrogate key assigned by the
// store; zero means not yet stored.
type Contact struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Field names a contact column, in the order it appears on a CSV line.
type Field int

const (
	FieldName Field = iota
	FieldPhone
	FieldEmail
)

// Label returns the name used in error messages.
func (f Field) Label() string {
	switch f {
	case FieldName:
		return "Name"
	case FieldPhone:
		return "Phone Number"
	case FieldEmail:
		return "Email"
	default:
		return "Field"
	}
}

// String returns the lowercase field key used for metrics and logs.
func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldPhone:
		return "phone"
	case FieldEmail:
		return "email"
	default:
		return "unknown"
	}
}

// FieldError describes one rejected field of one row.
type FieldError struct {
	Field  Field
	Value  string // raw value, or normalized value for phone numbers
	Detail string // parse failure detail, phone numbers only
}

// Error renders the message reported to the uploader, for example
// "Invalid Email: no" or "Invalid Phone Number: +000 invalid country code".
func (e FieldError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("Invalid %s: %s %s", e.Field.Label(), e.Value, e.Detail)
	}
	return fmt.Sprintf("Invalid %s: %s", e.Field.Label(), e.Value)
}

// NoRecordsParsed is reported when an upload contains no rows at all.
const NoRecordsParsed = "No Records Parsed"

// BatchResult is the outcome of one StoreBatch call.
type BatchResult struct {
	LinesInFile int      `json:"linesInFile"`
	LinesParsed int      `json:"linesParsed"`
	Errors      []string `json:"errors"`

	// Fault is set when processing stopped before the end of the stream.
	Fault error `json:"-"`
}

// Failed reports whether the batch was cut short by a fault.
func (r BatchResult) Failed() bool {
	return r.Fault != nil
}

func (r *BatchResult) fail(err error) {
	r.Errors = append(r.Errors, "Failed to parse file: "+err.Error())
	r.Fault = err
}

// ContactStore persists validated contacts with upsert semantics. Upsert
// assigns c.ID when the contact is new. Implementations must be safe for
// concurrent use.
type ContactStore interface {
	Upsert(ctx context.Context, c *Contact) error
}

// RowReader is a forward-only sequence of CSV rows. Next returns io.EOF
// when the stream is exhausted.
type RowReader interface {
	Next() ([]string, error)
}

// TokenizeFunc turns a byte stream into rows.
type TokenizeFunc func(io.Reader) RowReader

// Observer receives processing events, typically to export metrics.
type Observer interface {
	FieldRejected(field Field)
	BatchFinished(result BatchResult, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) FieldRejected(Field)                      {}
func (nopObserver) BatchFinished(BatchResult, time.Duration) {}
