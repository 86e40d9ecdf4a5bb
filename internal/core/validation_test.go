package core

import (
	"bytes"
	"errors"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	late := append(bytes.Repeat([]byte("a"), BinarySniffBytes), 0)

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"csv", "export.csv", []byte("a,b\n"), nil},
		{"upper-case tsv", "EXPORT.TSV", []byte("a\tb\n"), nil},
		{"txt export", "report.txt", []byte("a;b\n"), nil},
		{"empty data is left to the pipeline", "empty.csv", nil, nil},
		{"NUL past the sniff window", "late.csv", late, nil},
		{"no name", "", []byte("a,b\n"), ErrNoFile},
		{"spreadsheet", "book.xlsx", []byte("PK\x03\x04"), ErrBadExtension},
		{"no extension", "data", []byte("a,b\n"), ErrBadExtension},
		{"binary", "fake.csv", []byte("a,b\x00\x01\n"), ErrBinaryFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.file, tt.data)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateUpload() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateUpload() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
