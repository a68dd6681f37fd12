// Package csvio tokenizes contact CSV streams into ordered field lists.
//
// A contact file has no header row; every line carries exactly three
// fields: name, phone number, email. Fields are whitespace trimmed.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FieldsPerRow is the number of fields every contact line must carry.
const FieldsPerRow = 3

// TokenizeError reports malformed CSV input and the line it was found on.
type TokenizeError struct {
	Line int
	Err  error
}

func (e *TokenizeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *TokenizeError) Unwrap() error { return e.Err }

// Reader yields trimmed rows from a CSV stream, one at a time.
// It is forward-only and not safe for concurrent use.
type Reader struct {
	csv  *csv.Reader
	rows int
}

// NewReader wraps r. The stream is cleaned of a leading BOM and invalid
// UTF-8 before parsing.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(Clean(r))
	cr.FieldsPerRecord = FieldsPerRow
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Next returns the next row. It returns io.EOF once the stream is
// exhausted and a *TokenizeError for malformed input.
func (r *Reader) Next() ([]string, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &TokenizeError{Line: perr.StartLine, Err: perr.Err}
		}
		return nil, &TokenizeError{Err: err}
	}

	r.rows++
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

// Rows returns how many rows Next has returned so far.
func (r *Reader) Rows() int {
	return r.rows
}
