package repair

// reshape tokenizes every logical line between the first and last non-blank
// ones. The first becomes the header; data rows are padded or truncated to
// its width. Blank lines inside the data become empty rows, which are not
// counted as repairs and are dropped later with the other empty rows. It
// returns the 0-based data-row indices that were repaired.
func reshape(lines []string, delim rune, opts Options, log *ChangeLog) (*Table, []int, error) {
	start, end := 0, len(lines)
	for start < end && isBlank(lines[start]) {
		start++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	records := lines[start:end]
	if len(records) == 0 {
		return nil, nil, ErrEmptyInput
	}

	header := splitFields(records[0], delim)
	n := len(header)
	if n > opts.MaxCols {
		return nil, nil, &LimitError{Err: ErrColumnLimit, Limit: opts.MaxCols, Actual: n}
	}
	if rows := len(records) - 1; rows > opts.MaxRows {
		return nil, nil, &LimitError{Err: ErrRowLimit, Limit: opts.MaxRows, Actual: rows}
	}

	t := &Table{Header: header, Rows: make([][]Cell, 0, len(records)-1)}
	var (
		tooLong, tooShort int
		repaired          []int
	)
	for i, rec := range records[1:] {
		if isBlank(rec) {
			row := make([]Cell, n)
			for j := range row {
				row[j] = TextCell("")
			}
			t.Rows = append(t.Rows, row)
			continue
		}
		fields := splitFields(rec, delim)
		switch {
		case len(fields) > n:
			fields = fields[:n]
			tooLong++
			repaired = append(repaired, i)
		case len(fields) < n:
			for len(fields) < n {
				fields = append(fields, "")
			}
			tooShort++
			repaired = append(repaired, i)
		}
		row := make([]Cell, n)
		for j, f := range fields {
			row[j] = TextCell(f)
		}
		t.Rows = append(t.Rows, row)
	}

	if tooLong > 0 {
		log.Addf(StageShape, "Fixed %d rows with extra columns (import repair).", tooLong)
	}
	if tooShort > 0 {
		log.Addf(StageShape, "Fixed %d rows with missing columns (import repair).", tooShort)
	}
	if len(repaired) == 0 {
		log.Addf(StageShape, "Row structure was consistent (no import repairs needed).")
	}
	return t, repaired, nil
}
