package csvio

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...), "hello,world"},
		{"file without BOM", []byte("hello,world"), "hello,world"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a', 'b', 'c'}, string([]byte{0xEF, 0xBB, 'a', 'b', 'c'})},
		{"short file", []byte("ab"), "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(SkipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"ascii unchanged", []byte("hello world"), "hello world"},
		{"valid multibyte kept", []byte("caf\xc3\xa9"), "caf\xc3\xa9"},
		{"emoji kept", []byte("hi \xf0\x9f\x91\x8b"), "hi \xf0\x9f\x91\x8b"},
		{"latin-1 byte replaced", []byte("caf\xe9"), "caf?"},
		{"windows-1252 quotes replaced", []byte("\x93quoted\x94"), "?quoted?"},
		{"lone continuation byte", []byte("abc\xbfdef"), "abc?def"},
		{"truncated sequence at end", []byte("ab\xc3"), "ab?"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_OneByteReads(t *testing.T) {
	input := []byte("Ren\xc3\xa9e,\xe9\n")
	result, err := io.ReadAll(NewUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Ren\xc3\xa9e,?\n"; string(result) != want {
		t.Errorf("got %q, want %q", string(result), want)
	}
}

func TestClean(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\xff,b,c")...)
	result, err := io.ReadAll(Clean(bytes.NewReader(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "a?,b,c" {
		t.Errorf("got %q, want %q", string(result), "a?,b,c")
	}
}
