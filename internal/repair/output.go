package repair

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the table as UTF-8 with LF line endings, quoting fields
// only when they need it.
func WriteCSV(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	cw.UseCRLF = false

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range t.Rows {
		if err := cw.Write(t.RowStrings(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
