package repair

// Run repairs data and returns the canonical table with its change log.
// It fails only with the fatal errors documented in the package; no
// partial table is returned on failure.
func Run(data []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := NewChangeLog()

	text, enc, err := decode(data, log)
	if err != nil {
		return nil, err
	}
	text = normalizeLineEndings(text, log)

	lines, stats := stitch(text, log)
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	delim, source := detectDelimiter(lines, log)
	lines, header := locateHeader(lines, delim, opts, log)

	table, repaired, err := reshape(lines, delim, opts, log)
	if err != nil {
		return nil, err
	}

	renameColumns(table, log)
	trimCells(table, log)
	if opts.NormalizeNumbers {
		normalizeNumbers(table, log)
	}
	dropEmptyAndDuplicates(table, log)
	near := nearDuplicates(table, opts.NearDupes, log)

	log.Addf(StageOutput, "Wrote output as UTF-8 with standard newlines using delimiter %s.", delimRepr(delim))

	return &Result{
		Table:           table,
		Log:             log,
		RepairedRows:    repaired,
		ImportWarning:   len(repaired) > 0,
		Delimiter:       delim,
		DelimiterSource: source,
		Encoding:        enc,
		Header:          header,
		NearDupes:       near,
		Stitch:          stats,
	}, nil
}
