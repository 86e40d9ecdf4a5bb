package repair

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Header scoring weights.
const (
	weightLetter    = 2.0
	weightNumeric   = 1.5
	weightDate      = 1.0
	weightUnique    = 1.0
	weightTokenLen  = 0.02
	penaltyKeyValue = 1.5
)

var (
	numericToken = regexp.MustCompile(`^\(?[-+]?[$€£¥]?\d[\d.,\s]*\)?%?$`)
	dateToken    = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?$`)
)

// headerCandidate is a line that might be the header.
type headerCandidate struct {
	index int
	modal bool
	score float64
}

// headerScore rates how header-like a tokenized line is.
func headerScore(line string, fields []string) float64 {
	n := float64(len(fields))
	if n == 0 {
		return 0
	}
	var letters, numeric, dates, totalLen float64
	distinct := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tok := strings.TrimSpace(f)
		totalLen += float64(len([]rune(tok)))
		distinct[strings.ToLower(tok)] = struct{}{}
		switch {
		case dateToken.MatchString(tok):
			dates++
		case numericToken.MatchString(tok):
			numeric++
		}
		if strings.IndexFunc(tok, unicode.IsLetter) >= 0 {
			letters++
		}
	}
	score := weightLetter*letters/n -
		weightNumeric*numeric/n -
		weightDate*dates/n +
		weightUnique*float64(len(distinct))/n -
		weightTokenLen*totalLen/n
	if len(fields) <= 2 && strings.Contains(line, ":") {
		score -= penaltyKeyValue
	}
	return score
}

// modalCount returns the most frequent value; ties go to the larger count.
func modalCount(counts []int) int {
	freq := make(map[int]int)
	modal, best := 0, 0
	for _, c := range counts {
		freq[c]++
	}
	for c, f := range freq {
		if f > best || (f == best && c > modal) {
			modal, best = c, f
		}
	}
	return modal
}

// locateHeader finds the header line among the first scan lines and drops
// the preamble above it when the choice is confident.
func locateHeader(lines []string, delim rune, opts Options, log *ChangeLog) ([]string, HeaderInfo) {
	limit := min(len(lines), opts.HeaderScanLines)

	first := -1
	var idx, counts []int
	fields := make(map[int][]string)
	for i := 0; i < limit; i++ {
		if isBlank(lines[i]) {
			continue
		}
		if first < 0 {
			first = i
		}
		f := splitFields(lines[i], delim)
		fields[i] = f
		idx = append(idx, i)
		counts = append(counts, len(f))
	}
	if first < 0 {
		return lines, HeaderInfo{}
	}
	modal := modalCount(counts)

	var cands []headerCandidate
	for _, i := range idx {
		isModal := len(fields[i]) == modal
		if !isModal && i != first {
			continue
		}
		cands = append(cands, headerCandidate{index: i, modal: isModal, score: headerScore(lines[i], fields[i])})
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].score > cands[b].score })

	best := cands[0]
	info := HeaderInfo{LineIndex: best.index, Score: best.score, ModalFieldCount: modal}
	if len(cands) > 1 {
		info.Gap = best.score - cands[1].score
	}
	log.Detailf(StageHeader, "Header detection: best candidate line %d (score %.2f, gap %.2f, modal field count %d).",
		best.index+1, info.Score, info.Gap, modal)

	switch {
	case best.index == first:
		log.Addf(StageHeader, "Header found on line %d (no preamble detected).", best.index+1)
		return lines, info
	case best.index > opts.MaxPreambleDepth:
		log.Addf(StageHeader, "Possible header on line %d is deeper than %d lines; kept the first line as header.",
			best.index+1, opts.MaxPreambleDepth)
		info.LineIndex = first
		return lines, info
	case info.Gap < opts.HeaderConfidenceGap:
		log.Addf(StageHeader, "Possible header on line %d was not clearly better than the first line (gap %.2f < %.2f); kept the first line as header.",
			best.index+1, info.Gap, opts.HeaderConfidenceGap)
		info.LineIndex = first
		return lines, info
	}

	info.PreambleLines = best.index - first
	log.Addf(StageHeader, "Removed %d preamble lines above the header (header found on line %d).",
		info.PreambleLines, best.index+1)
	return lines[best.index:], info
}
