// Package repair turns malformed delimited text into a table that strict
// parsers accept, and records every change it makes along the way.
//
// The package is a pure function of its input. [Run] decodes the bytes,
// stitches quoted multi-line records, infers the delimiter, strips report
// preambles, reshapes rows to the header width, canonicalizes column names,
// normalizes cells and removes duplicate rows. Each stage appends to the
// same [ChangeLog], which is returned with the table in a [Result].
//
// # Pipeline
//
// Stages run strictly in this order:
//
//  1. Decode: utf-8-sig, utf-8, cp1252, latin-1 under strict decoding
//  2. Line endings: CRLF and lone CR become LF
//  3. Stitch: merge physical lines that belong to one quoted record
//  4. Delimiter: sniff, then score comma, semicolon, tab and pipe
//  5. Header: score candidate header lines and drop preamble lines
//  6. Shape: pad or truncate rows to the header's field count
//  7. Columns: snake_case and deduplicate header names
//  8. Cells: trim whitespace, optionally parse regional numbers
//  9. Dedupe: drop empty and exact duplicate rows, then near-duplicates
//
// # Errors
//
// Only four conditions abort a run: [ErrDecode], [ErrEmptyInput],
// [ErrRowLimit] and [ErrColumnLimit]. Everything else is repaired in place
// and described in the change log.
//
// # Concurrency
//
// Run holds no shared state. Concurrent calls with independent inputs are
// safe.
package repair
