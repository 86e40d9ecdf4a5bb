package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// Preview reads a job's cleaned file back and returns the rows shown on the
// result page: the first and last PreviewRows rows and up to PreviewRows
// repaired rows.
func (s *Service) Preview(ctx context.Context, job *store.Job) (*Preview, error) {
	data, err := s.blob(ctx, store.CleanedKey(job.ID))
	if err != nil {
		return nil, err
	}
	p, err := buildPreview(data, job.DelimiterRune(), job.RepairedRows)
	if err != nil {
		event(ctx, "result_read_error", "job_id", job.ID, "error", err)
		return nil, err
	}
	return p, nil
}

// buildPreview parses cleaned output and selects the preview rows.
//
// Repaired indices refer to data rows before deduplication, so they can
// point past the end of the cleaned table; such indices are skipped.
func buildPreview(data []byte, delim rune, repaired []int) (*Preview, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse cleaned file: %w", err)
	}
	if len(records) == 0 {
		return &Preview{}, nil
	}

	header, rows := records[0], records[1:]
	p := &Preview{
		Header: header,
		First:  rows[:min(PreviewRows, len(rows))],
		Last:   rows[max(0, len(rows)-PreviewRows):],
	}

	for _, i := range repaired[:min(PreviewRows, len(repaired))] {
		if i >= 0 && i < len(rows) {
			p.Repaired = append(p.Repaired, rows[i])
		}
	}
	return p, nil
}
