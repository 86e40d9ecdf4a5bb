package repair

import (
	"regexp"
	"strconv"
	"strings"
)

// numericShape is one regional number format.
type numericShape struct {
	name      string
	pattern   *regexp.Regexp
	thousands string
	decimal   string
}

// numericShapes is tried in order. Region B goes first so that "1,234"
// reads as one thousand two hundred thirty-four.
var numericShapes = []numericShape{
	{
		name:      "region-b",
		pattern:   regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?$|^\.\d+$`),
		thousands: ",",
		decimal:   ".",
	},
	{
		name:      "region-a",
		pattern:   regexp.MustCompile(`^(?:\d{1,3}(?:[. \x{00A0}\x{202F}]\d{3})+|\d+)(?:,\d+)?$`),
		thousands: ". \u00a0\u202f",
		decimal:   ",",
	},
}

const (
	numericSampleSize = 200
	numericMinSample  = 5
	numericMinRatio   = 0.85
)

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "")

// ParseNumber parses a regionally formatted number. Currency symbols are
// ignored and a parenthesized value is negative.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(currencyStripper.Replace(s))
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	switch {
	case strings.HasPrefix(s, "-"):
		neg = !neg
		s = strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "+"):
		s = strings.TrimSpace(s[1:])
	}
	for _, shape := range numericShapes {
		if !shape.pattern.MatchString(s) {
			continue
		}
		v := s
		for _, sep := range shape.thousands {
			v = strings.ReplaceAll(v, string(sep), "")
		}
		v = strings.Replace(v, shape.decimal, ".", 1)
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		if neg {
			f = -f
		}
		return f, true
	}
	return 0, false
}

// columnIsNumeric decides whether a column should be converted: at least
// numericMinSample sampled non-empty values and a parse ratio of at least
// numericMinRatio.
func columnIsNumeric(values []string) bool {
	var sampled, parsed int
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		sampled++
		if _, ok := ParseNumber(v); ok {
			parsed++
		}
		if sampled == numericSampleSize {
			break
		}
	}
	if sampled < numericMinSample {
		return false
	}
	return float64(parsed)/float64(sampled) >= numericMinRatio
}
