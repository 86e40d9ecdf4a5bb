package repair

import (
	"math"
	"regexp"
	"strings"
)

// candidateDelims is also the tie order: earlier candidates win ties.
var candidateDelims = []rune{',', ';', '\t', '|'}

const (
	delimSampleLines   = 30
	euroScoreTolerance = 0.5
	euroTokenThreshold = 0.06
)

// decimalCommaToken matches numbers such as 1.234,56 or 1 234,56 or (12,5).
// Thousands groups may also be split by a no-break or narrow no-break space.
var decimalCommaToken = regexp.MustCompile(`^\(?-?(?:\d{1,3}(?:[. \x{00A0}\x{202F}]\d{3})+|\d+),\d+\)?$`)

func delimSample(lines []string) []string {
	sample := make([]string, 0, delimSampleLines)
	for _, ln := range lines {
		if isBlank(ln) {
			continue
		}
		sample = append(sample, ln)
		if len(sample) == delimSampleLines {
			break
		}
	}
	return sample
}

// sniffDelimiter returns the single candidate that occurs the same non-zero
// number of times on every sample line. Ambiguous samples return false.
func sniffDelimiter(sample []string) (rune, bool) {
	if len(sample) == 0 {
		return 0, false
	}
	var found []rune
	for _, d := range candidateDelims {
		want := countOutside(sample[0], d)
		if want == 0 {
			continue
		}
		consistent := true
		for _, ln := range sample[1:] {
			if countOutside(ln, d) != want {
				consistent = false
				break
			}
		}
		if consistent {
			found = append(found, d)
		}
	}
	if len(found) != 1 {
		return 0, false
	}
	return found[0], true
}

// delimScore is mean minus population standard deviation of the per-line
// counts. High and steady counts score well.
func delimScore(sample []string, d rune) float64 {
	if len(sample) == 0 {
		return 0
	}
	counts := make([]float64, len(sample))
	var sum float64
	for i, ln := range sample {
		counts[i] = float64(countOutside(ln, d))
		sum += counts[i]
	}
	mean := sum / float64(len(counts))
	var variance float64
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(counts))
	return mean - math.Sqrt(variance)
}

// decimalCommaFraction splits the sample by semicolon and returns the share
// of tokens shaped like decimal-comma numbers.
func decimalCommaFraction(sample []string) float64 {
	var total, hits int
	for _, ln := range sample {
		for _, tok := range splitFields(ln, ';') {
			total++
			if decimalCommaToken.MatchString(strings.TrimSpace(tok)) {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// detectDelimiter infers the field separator from the first non-blank
// logical lines, falling back to comma.
func detectDelimiter(lines []string, log *ChangeLog) (rune, DelimiterSource) {
	sample := delimSample(lines)

	if d, ok := sniffDelimiter(sample); ok {
		log.Addf(StageDelimiter, "Detected delimiter: %s.", delimRepr(d))
		return d, SourceSniffer
	}

	scores := make(map[rune]float64, len(candidateDelims))
	best, bestScore := ',', 0.0
	for _, d := range candidateDelims {
		s := delimScore(sample, d)
		scores[d] = s
		if s > bestScore {
			best, bestScore = d, s
		}
	}
	log.Detailf(StageDelimiter, "Delimiter scores: comma %.2f, semicolon %.2f, tab %.2f, pipe %.2f.",
		scores[','], scores[';'], scores['\t'], scores['|'])

	if (best == ',' || best == ';') && math.Abs(scores[',']-scores[';']) <= euroScoreTolerance {
		if frac := decimalCommaFraction(sample); frac > euroTokenThreshold {
			log.Addf(StageDelimiter, "Detected delimiter: %s (heuristic; %.0f%% of values look like decimal-comma numbers).",
				delimRepr(';'), frac*100)
			return ';', SourceEuro
		}
	}

	if bestScore <= 0 {
		log.Addf(StageDelimiter, "Detected delimiter: %s (heuristic default; no candidate was consistent).", delimRepr(','))
		return ',', SourceDefault
	}
	log.Addf(StageDelimiter, "Detected delimiter: %s (heuristic).", delimRepr(best))
	return best, SourceHeuristic
}
