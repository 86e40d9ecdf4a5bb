package core

// streaming.go reads upload bodies under a byte ceiling.
//
// The repair pipeline works on whole files, so uploads are buffered in
// memory. ReadLimited stops after limit+1 bytes so an oversized body is
// rejected without reading it to the end.

import (
	"bytes"
	"fmt"
	"io"
)

// ReadLimited reads all of r, failing with *FileTooLargeError once more than
// limit bytes arrive. A limit <= 0 disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return nil, &FileTooLargeError{Limit: limit}
	}
	return buf.Bytes(), nil
}

// CountingReader tracks bytes read through it.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
