package repair

import "strings"

// quoteState is the scanner state for double-quoted spans.
type quoteState uint8

const (
	stateUnquoted quoteState = iota
	stateQuoted
)

// quoteScanner tracks whether scanning is inside a quoted span. A quote
// toggles the state; a doubled quote is an escaped literal and leaves the
// state unchanged. The state carries across physical lines.
type quoteScanner struct {
	state quoteState
}

func (s *quoteScanner) scan(line string) {
	for i := 0; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		if i+1 < len(line) && line[i+1] == '"' {
			i++
			continue
		}
		if s.state == stateQuoted {
			s.state = stateUnquoted
		} else {
			s.state = stateQuoted
		}
	}
}

// physicalLines splits on LF. A trailing terminator does not start a line.
func physicalLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// stitch merges physical lines whose quoted field spans a line break into
// one logical line. Content left inside an unterminated quote at the end of
// input is flushed as the final logical line.
func stitch(text string, log *ChangeLog) ([]string, StitchStats) {
	phys := physicalLines(text)
	stats := StitchStats{PhysicalLines: len(phys)}

	var (
		sc      quoteScanner
		logical = make([]string, 0, len(phys))
		buf     []string
	)

	emit := func() {
		if len(buf) > 1 {
			stats.MultiLineRecords++
		}
		if len(buf) > stats.MaxSpan {
			stats.MaxSpan = len(buf)
		}
		logical = append(logical, strings.Join(buf, "\n"))
		buf = buf[:0]
	}

	for _, line := range phys {
		sc.scan(line)
		buf = append(buf, line)
		if sc.state == stateUnquoted {
			emit()
		}
	}
	if len(buf) > 0 {
		stats.Unterminated = true
		emit()
	}
	stats.LogicalLines = len(logical)

	if stats.LogicalLines == stats.PhysicalLines {
		log.Addf(StageStitch, "Quote-aware parsing: no multi-line records detected.")
	} else {
		log.Addf(StageStitch, "Quote-aware parsing: joined %d physical lines into %d records (%d multi-line records, longest spans %d lines).",
			stats.PhysicalLines, stats.LogicalLines, stats.MultiLineRecords, stats.MaxSpan)
	}
	if stats.Unterminated {
		log.Addf(StageStitch, "Warning: the file ends inside an unterminated quoted field; the remaining text was kept as the last record.")
	}
	return logical, stats
}
