package core

// validation.go screens uploads before they reach the repair pipeline.
//
// Two cheap checks run on every upload:
//  1. Extension: only .csv, .tsv and .txt names are accepted
//  2. Content: a NUL byte in the first BinarySniffBytes marks the file as binary

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// BinarySniffBytes is how much of the upload is scanned for NUL bytes.
const BinarySniffBytes = 4096

// acceptedExtensions lists the upload name suffixes that are accepted.
var acceptedExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// LooksLikeCSVName reports whether the file name has an accepted extension.
func LooksLikeCSVName(name string) bool {
	return acceptedExtensions[strings.ToLower(filepath.Ext(name))]
}

// LooksLikeText reports whether the start of data is free of NUL bytes.
func LooksLikeText(data []byte) bool {
	if len(data) > BinarySniffBytes {
		data = data[:BinarySniffBytes]
	}
	return bytes.IndexByte(data, 0) < 0
}

// ValidateUpload checks the name and content of an upload.
func ValidateUpload(name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return ErrNoFile
	}
	if !LooksLikeCSVName(name) {
		return fmt.Errorf("%s: %w", name, ErrBadExtension)
	}
	if !LooksLikeText(data) {
		return fmt.Errorf("%s: %w", name, ErrBinaryFile)
	}
	return nil
}
