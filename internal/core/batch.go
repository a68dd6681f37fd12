package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/JonMunkholm/contactload/internal/csvio"
	"github.com/JonMunkholm/contactload/internal/logging"
)

// PersistFailureMode decides how a store failure on a valid row affects
// the rest of the batch.
type PersistFailureMode string

const (
	// PersistFailureRow reports the failure against the row, does not count
	// it as parsed, and continues with the next row.
	PersistFailureRow PersistFailureMode = "row"

	// PersistFailureAbort reports the failure and stops the batch.
	PersistFailureAbort PersistFailureMode = "abort"
)

// ParsePersistFailureMode parses "row" or "abort" (case-insensitive).
func ParsePersistFailureMode(s string) (PersistFailureMode, error) {
	switch mode := PersistFailureMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case PersistFailureRow, PersistFailureAbort:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown persist failure mode %q", s)
	}
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Phones         PhoneValidator
	Emails         EmailValidator
	Tokenize       TokenizeFunc
	PersistFailure PersistFailureMode
	Observer       Observer
}

// Service turns uploaded contact files into stored contacts.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	processor *RecordProcessor
	tokenize  TokenizeFunc
	mode      PersistFailureMode
	observer  Observer
}

// NewService creates a Service that stores valid contacts in store.
func NewService(store ContactStore, opts Options) *Service {
	if opts.Tokenize == nil {
		opts.Tokenize = func(r io.Reader) RowReader { return csvio.NewReader(r) }
	}
	if opts.PersistFailure == "" {
		opts.PersistFailure = PersistFailureRow
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Service{
		processor: NewRecordProcessor(store, opts.Phones, opts.Emails),
		tokenize:  opts.Tokenize,
		mode:      opts.PersistFailure,
		observer:  opts.Observer,
	}
}

// StoreBatch reads every row from r, validates it, stores the valid ones
// and reports counts and errors.
//
// Rows are handled strictly in order. A tokenizer error or internal fault
// stops the batch; rows handled before it keep their counts and a single
// diagnostic is appended. A stream without rows yields NoRecordsParsed.
// StoreBatch never returns a bare error: faults are reported in the result.
func (s *Service) StoreBatch(ctx context.Context, r io.Reader) (result BatchResult) {
	start := time.Now()
	log := logging.FromContext(ctx)
	result.Errors = []string{}

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while storing batch",
				"panic", p,
				"stack", string(debug.Stack()),
			)
			result.fail(fmt.Errorf("internal error: %v", p))
		}

		elapsed := time.Since(start)
		s.observer.BatchFinished(result, elapsed)

		attrs := []any{
			"lines_in_file", result.LinesInFile,
			"lines_parsed", result.LinesParsed,
			"errors", len(result.Errors),
			"duration_ms", elapsed.Milliseconds(),
		}
		if result.Fault != nil {
			log.Warn("batch aborted", append(attrs, "error", result.Fault)...)
			return
		}
		log.Info("batch stored", attrs...)
	}()

	rows := s.tokenize(r)
	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.fail(err)
			return result
		}

		result.LinesInFile++
		line := result.LinesInFile

		_, fieldErrs, err := s.processor.Process(ctx, row)
		if err != nil {
			var perr *PersistError
			if !errors.As(err, &perr) {
				result.fail(fmt.Errorf("row %d: %w", line, err))
				return result
			}
			log.Error("failed to store contact", "line", line, "error", perr.Err)
			result.Errors = append(result.Errors, perr.Error())
			// Once ctx is done every later write fails the same way.
			if s.mode == PersistFailureAbort || ctx.Err() != nil {
				result.Fault = perr
				return result
			}
			continue
		}

		if len(fieldErrs) > 0 {
			for _, fe := range fieldErrs {
				result.Errors = append(result.Errors, fe.Error())
				s.observer.FieldRejected(fe.Field)
			}
			log.Debug("row rejected", "line", line, "fields", len(fieldErrs))
			continue
		}

		result.LinesParsed++
	}

	if result.LinesInFile == 0 {
		result.Errors = append(result.Errors, NoRecordsParsed)
	}
	return result
}
