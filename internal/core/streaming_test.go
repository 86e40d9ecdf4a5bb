package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadLimited(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int64
		wantErr bool
	}{
		{"under limit", "a,b\n1,2\n", 100, false},
		{"exactly at limit", "abcd", 4, false},
		{"one byte over", "abcde", 4, true},
		{"far over", strings.Repeat("x", 10000), 64, true},
		{"no limit", strings.Repeat("x", 10000), 0, false},
		{"empty", "", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLimited(strings.NewReader(tt.input), tt.limit)
			if tt.wantErr {
				var tooLarge *FileTooLargeError
				if !errors.As(err, &tooLarge) {
					t.Fatalf("ReadLimited() error = %v, want *FileTooLargeError", err)
				}
				if tooLarge.Limit != tt.limit {
					t.Errorf("Limit = %d, want %d", tooLarge.Limit, tt.limit)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLimited() unexpected error: %v", err)
			}
			if string(got) != tt.input {
				t.Errorf("ReadLimited() = %d bytes, want %d", len(got), len(tt.input))
			}
		})
	}
}

func TestReadLimited_StopsEarly(t *testing.T) {
	src := NewCountingReader(bytes.NewReader(make([]byte, 1<<20)))

	if _, err := ReadLimited(src, 1024); err == nil {
		t.Fatal("ReadLimited() = nil error, want too large")
	}
	if src.BytesRead > 1025 {
		t.Errorf("read %d bytes, want at most limit+1", src.BytesRead)
	}
}

func TestCountingReader(t *testing.T) {
	r := NewCountingReader(strings.NewReader("hello, world"))
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatal(err)
	}
	if r.BytesRead != 12 {
		t.Errorf("BytesRead = %d, want 12", r.BytesRead)
	}
}
