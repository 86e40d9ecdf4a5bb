package repair

import "strings"

// splitFields tokenizes one logical line. A field that starts with a quote
// is quoted until the matching unescaped quote; "" inside it is a literal
// quote. Text after the closing quote and before the next delimiter is kept.
// Quotes that do not open a field are literal.
func splitFields(line string, delim rune) []string {
	d := byte(delim)
	var (
		fields  []string
		b       strings.Builder
		state   = stateUnquoted
		atStart = true
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if state == stateQuoted {
			if c != '"' {
				b.WriteByte(c)
				continue
			}
			if i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i++
				continue
			}
			state = stateUnquoted
			continue
		}
		switch {
		case c == d:
			fields = append(fields, b.String())
			b.Reset()
			atStart = true
			continue
		case c == '"' && atStart:
			state = stateQuoted
		default:
			b.WriteByte(c)
		}
		atStart = false
	}
	return append(fields, b.String())
}

// countOutside counts occurrences of delim outside quoted fields.
func countOutside(line string, delim rune) int {
	return len(splitFields(line, delim)) - 1
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
