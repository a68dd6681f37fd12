package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeValid = `John Smith,2125551212,john@example.com
Eric Smith,3125915367,eric@movers.com
Jane Doe,+442087654321,jane@example.co.uk
`

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	rejected []Field
	finished []BatchResult
}

func (o *recordingObserver) FieldRejected(f Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, f)
}

func (o *recordingObserver) BatchFinished(r BatchResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, r)
}

// scriptedRows replays rows, then returns err (io.EOF if nil).
type scriptedRows struct {
	rows [][]string
	err  error
}

func (s *scriptedRows) Next() ([]string, error) {
	if len(s.rows) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

func scripted(rows [][]string, err error) TokenizeFunc {
	return func(io.Reader) RowReader { return &scriptedRows{rows: rows, err: err} }
}

func TestStoreBatch_AllValid(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, Options{})

	got := svc.StoreBatch(context.Background(), strings.NewReader(threeValid))

	want := BatchResult{LinesInFile: 3, LinesParsed: 3, Errors: []string{}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(BatchResult{}, "Fault")); diff != "" {
		t.Errorf("StoreBatch() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Failed())
	assert.Equal(t, 3, store.Calls())
	assert.Equal(t, "+12125551212", store.contacts[0].Phone)
}

func TestStoreBatch_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "\xEF\xBB\xBF"} {
		store := &fakeStore{}
		got := NewService(store, Options{}).StoreBatch(context.Background(), strings.NewReader(in))

		assert.Equal(t, 0, got.LinesInFile)
		assert.Equal(t, 0, got.LinesParsed)
		assert.Equal(t, []string{NoRecordsParsed}, got.Errors)
		assert.False(t, got.Failed())
		assert.Zero(t, store.Calls())
	}
}

func TestStoreBatch_AllFieldsInvalid(t *testing.T) {
	store := &fakeStore{}
	obs := &recordingObserver{}
	svc := NewService(store, Options{Observer: obs})

	got := svc.StoreBatch(context.Background(), strings.NewReader("DROP TABLE USERS;,000,null\n"))

	assert.Equal(t, 1, got.LinesInFile)
	assert.Equal(t, 0, got.LinesParsed)
	require.Len(t, got.Errors, 3)
	assert.True(t, strings.HasPrefix(got.Errors[0], "Invalid Name"))
	assert.True(t, strings.HasPrefix(got.Errors[1], "Invalid Phone Number"))
	assert.True(t, strings.HasPrefix(got.Errors[2], "Invalid Email"))
	assert.Zero(t, store.Calls())

	assert.Equal(t, []Field{FieldName, FieldPhone, FieldEmail}, obs.rejected)
	require.Len(t, obs.finished, 1)
	assert.Equal(t, got.LinesInFile, obs.finished[0].LinesInFile)
}

func TestStoreBatch_MixedRows(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, Options{})

	in := "Eric Smith,3125915367,eric@movers.com\nJane Doe,4405699876,no\n"
	got := svc.StoreBatch(context.Background(), strings.NewReader(in))

	assert.Equal(t, 2, got.LinesInFile)
	assert.Equal(t, 1, got.LinesParsed)
	require.Len(t, got.Errors, 1)
	assert.True(t, strings.HasPrefix(got.Errors[0], "Invalid Email"))
	assert.Equal(t, 1, store.Calls(), "store should be called exactly once")
}

func TestStoreBatch_TokenizerFaultKeepsProgress(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, Options{})

	in := "John Smith,2125551212,john@example.com\nJane \"Doe,2125551212,jane@example.com\n"
	got := svc.StoreBatch(context.Background(), strings.NewReader(in))

	assert.Equal(t, 1, got.LinesInFile)
	assert.Equal(t, 1, got.LinesParsed)
	require.Len(t, got.Errors, 1)
	assert.True(t, strings.HasPrefix(got.Errors[0], "Failed to parse file: "), got.Errors[0])
	assert.True(t, got.Failed())
	assert.NotContains(t, got.Errors, NoRecordsParsed)
}

func TestStoreBatch_WrongFieldCount(t *testing.T) {
	svc := NewService(&fakeStore{}, Options{})

	got := svc.StoreBatch(context.Background(), strings.NewReader("John Smith,2125551212\n"))

	assert.True(t, got.Failed())
	assert.Equal(t, 0, got.LinesInFile)
	require.Len(t, got.Errors, 1)
	assert.True(t, strings.HasPrefix(got.Errors[0], "Failed to parse file: "))
}

func TestStoreBatch_ScriptedTokenizerFault(t *testing.T) {
	boom := errors.New("stream reset")
	svc := NewService(&fakeStore{}, Options{
		Tokenize: scripted([][]string{{"John Smith", "2125551212", "john@example.com"}}, boom),
	})

	got := svc.StoreBatch(context.Background(), strings.NewReader("ignored"))

	assert.ErrorIs(t, got.Fault, boom)
	assert.Equal(t, 1, got.LinesInFile)
	assert.Equal(t, 1, got.LinesParsed)
	assert.Equal(t, []string{"Failed to parse file: stream reset"}, got.Errors)
}

func TestStoreBatch_PersistFailureRow(t *testing.T) {
	store := &fakeStore{err: errors.New("deadlock detected"), failOn: "Eric Smith"}
	svc := NewService(store, Options{PersistFailure: PersistFailureRow})

	got := svc.StoreBatch(context.Background(), strings.NewReader(threeValid))

	assert.Equal(t, 3, got.LinesInFile)
	assert.Equal(t, 2, got.LinesParsed)
	assert.Equal(t, []string{"Failed to store record: deadlock detected"}, got.Errors)
	assert.False(t, got.Failed())
	assert.Equal(t, 3, store.Calls())
}

func TestStoreBatch_PersistFailureAbort(t *testing.T) {
	store := &fakeStore{err: errors.New("deadlock detected"), failOn: "Eric Smith"}
	svc := NewService(store, Options{PersistFailure: PersistFailureAbort})

	got := svc.StoreBatch(context.Background(), strings.NewReader(threeValid))

	assert.Equal(t, 2, got.LinesInFile)
	assert.Equal(t, 1, got.LinesParsed)
	assert.Equal(t, []string{"Failed to store record: deadlock detected"}, got.Errors)
	assert.True(t, got.Failed())
	assert.Equal(t, 2, store.Calls())
}

// ctxStore fails every write once its context is done.
type ctxStore struct{ calls int }

func (s *ctxStore) Upsert(ctx context.Context, _ *Contact) error {
	s.calls++
	return ctx.Err()
}

func TestStoreBatch_ExpiredContextStopsBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	store := &ctxStore{}
	svc := NewService(store, Options{PersistFailure: PersistFailureRow})

	got := svc.StoreBatch(ctx, strings.NewReader(threeValid))

	assert.Equal(t, 1, got.LinesInFile)
	assert.Zero(t, got.LinesParsed)
	assert.Equal(t, []string{"Failed to store record: context deadline exceeded"}, got.Errors)
	assert.True(t, got.Failed())
	assert.ErrorIs(t, got.Fault, context.DeadlineExceeded)
	assert.Equal(t, 1, store.calls)
}

type panickingStore struct{}

func (panickingStore) Upsert(context.Context, *Contact) error { panic("nil pool") }

func TestStoreBatch_RecoversPanic(t *testing.T) {
	obs := &recordingObserver{}
	svc := NewService(panickingStore{}, Options{Observer: obs})

	var got BatchResult
	require.NotPanics(t, func() {
		got = svc.StoreBatch(context.Background(), strings.NewReader(threeValid))
	})

	assert.True(t, got.Failed())
	assert.Equal(t, 1, got.LinesInFile)
	assert.Equal(t, 0, got.LinesParsed)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "nil pool")
	assert.Len(t, obs.finished, 1, "observer is notified even after a panic")
}

func TestStoreBatch_Idempotent(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, Options{})

	first := svc.StoreBatch(context.Background(), strings.NewReader(threeValid))
	second := svc.StoreBatch(context.Background(), strings.NewReader(threeValid))

	if diff := cmp.Diff(first, second, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("rerun changed the result (-first +second):\n%s", diff)
	}
}

func TestParsePersistFailureMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PersistFailureMode
		wantErr bool
	}{
		{"row", PersistFailureRow, false},
		{" ABORT ", PersistFailureAbort, false},
		{"skip", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePersistFailureMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
