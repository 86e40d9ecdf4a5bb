package repair

import "strings"

// textColumns returns the indices of columns that still hold text.
func textColumns(t *Table) []int {
	var cols []int
	for j := range t.Header {
		numeric := len(t.Rows) > 0
		for _, row := range t.Rows {
			if row[j].Kind == KindText {
				numeric = false
				break
			}
		}
		if !numeric {
			cols = append(cols, j)
		}
	}
	return cols
}

// trimCells strips leading and trailing whitespace from text cells.
func trimCells(t *Table, log *ChangeLog) {
	cols := textColumns(t)
	if len(cols) == 0 {
		log.Addf(StageCells, "No text columns found for whitespace cleanup.")
		return
	}
	changed := 0
	for _, row := range t.Rows {
		for _, j := range cols {
			c := row[j]
			if c.Kind != KindText {
				continue
			}
			if s := strings.TrimSpace(c.Text); s != c.Text {
				row[j] = TextCell(s)
				changed++
			}
		}
	}
	if changed == 0 {
		log.Addf(StageCells, "No whitespace issues found in text cells.")
		return
	}
	log.Addf(StageCells, "Trimmed whitespace in %d text cells (prevents grouping/matching issues).", changed)
}

// normalizeNumbers converts text columns whose values mostly parse as
// regional numbers. Cells that do not parse become missing.
func normalizeNumbers(t *Table, log *ChangeLog) {
	var converted []string
	for _, j := range textColumns(t) {
		values := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			values[i] = row[j].Text
		}
		if !columnIsNumeric(values) {
			continue
		}
		for i, row := range t.Rows {
			if f, ok := ParseNumber(values[i]); ok {
				row[j] = NumberCell(f)
			} else {
				row[j] = MissingCell()
			}
		}
		converted = append(converted, t.Header[j])
	}
	if len(converted) == 0 {
		log.Addf(StageCells, "Number normalization: no columns qualified (needs at least %d values and %.0f%% parseable).",
			numericMinSample, numericMinRatio*100)
		return
	}
	log.Addf(StageCells, "Converted %d columns with regional number formats to plain numbers (%s).",
		len(converted), strings.Join(converted, ", "))
}
