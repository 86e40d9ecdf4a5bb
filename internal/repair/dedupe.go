package repair

import (
	"strconv"
	"strings"
)

const maxNearDupeExamples = 5

// ignoreRule excludes volatile columns from near-duplicate comparison.
type ignoreRule struct {
	name  string
	match func(col string) bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var ignoreRules = []ignoreRule{
	{"identifier", func(s string) bool {
		return s == "id" || strings.HasSuffix(s, "_id") || strings.HasPrefix(s, "id_") || strings.Contains(s, "_id_")
	}},
	{"uuid", func(s string) bool { return containsAny(s, "uuid", "guid") }},
	{"transaction", func(s string) bool { return containsAny(s, "transaction", "txn") }},
	{"reference", func(s string) bool {
		return s == "ref" || containsAny(s, "reference", "ref_") || strings.HasSuffix(s, "_ref")
	}},
	{"time", func(s string) bool {
		return containsAny(s, "date", "time", "timestamp") || strings.HasSuffix(s, "_at")
	}},
	{"balance", func(s string) bool { return containsAny(s, "balance", "running_total", "remaining") }},
}

// ignoreRuleFor returns the name of the first rule matching col.
func ignoreRuleFor(col string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(col))
	for _, r := range ignoreRules {
		if r.match(s) {
			return r.name, true
		}
	}
	return "", false
}

// rowKey joins the normalized cells of cols into a map key. Each cell is
// length-prefixed so no cell content can shift a boundary.
func rowKey(row []Cell, cols []int, norm func(Cell) string) string {
	var b strings.Builder
	for _, j := range cols {
		v := norm(row[j])
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func exactValue(c Cell) string {
	return string('0'+rune(c.Kind)) + c.String()
}

// compareValue collapses whitespace and lowercases text. Missing and empty
// compare equal.
func compareValue(c Cell) string {
	if c.Kind != KindText {
		return c.String()
	}
	return strings.ToLower(strings.Join(strings.Fields(c.Text), " "))
}

func allColumns(n int) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// dropEmptyAndDuplicates removes fully empty rows, then exact duplicates
// keeping the first occurrence.
func dropEmptyAndDuplicates(t *Table, log *ChangeLog) {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		empty := true
		for _, c := range row {
			if !c.IsEmpty() {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, row)
		}
	}
	if removed := len(t.Rows) - len(kept); removed > 0 {
		log.Addf(StageDedupe, "Removed %d fully empty rows.", removed)
	} else {
		log.Addf(StageDedupe, "No fully empty rows found.")
	}
	t.Rows = kept

	cols := allColumns(len(t.Header))
	seen := make(map[string]struct{}, len(t.Rows))
	kept = t.Rows[:0]
	for _, row := range t.Rows {
		k := rowKey(row, cols, exactValue)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	if removed := len(t.Rows) - len(kept); removed > 0 {
		log.Addf(StageDedupe, "Removed %d duplicate rows (exact matches).", removed)
	} else {
		log.Addf(StageDedupe, "No exact duplicate rows found.")
	}
	t.Rows = kept
}

func namedRow(t *Table, i int) []NamedValue {
	out := make([]NamedValue, len(t.Header))
	for j, name := range t.Header {
		out[j] = NamedValue{Column: name, Value: t.Rows[i][j].String()}
	}
	return out
}

// findNearDuplicates groups rows by their normalized compare-column values.
// It returns a mask of rows that repeat an earlier group member.
func findNearDuplicates(t *Table) (NearDupeInfo, []bool) {
	info := NearDupeInfo{IgnoredColumns: []string{}}
	var compare []int
	for j, name := range t.Header {
		if _, ok := ignoreRuleFor(name); ok {
			info.IgnoredColumns = append(info.IgnoredColumns, name)
		} else {
			compare = append(compare, j)
		}
	}
	dup := make([]bool, len(t.Rows))
	if len(compare) == 0 || len(t.Rows) == 0 {
		return info, dup
	}

	groups := make(map[string][]int)
	var order []string
	for i, row := range t.Rows {
		k := rowKey(row, compare, compareValue)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		members := groups[k]
		for _, i := range members[1:] {
			dup[i] = true
			info.Count++
			if len(info.Examples) < maxNearDupeExamples {
				info.Examples = append(info.Examples, NearDupeExample{
					Kept:    namedRow(t, members[0]),
					Removed: namedRow(t, i),
				})
			}
		}
	}
	return info, dup
}

// nearDuplicates runs near-duplicate analysis in preview or remove mode.
func nearDuplicates(t *Table, mode NearDupeMode, log *ChangeLog) NearDupeInfo {
	if mode == NearDupesOff {
		return NearDupeInfo{Mode: mode}
	}
	info, dup := findNearDuplicates(t)
	info.Mode = mode

	switch {
	case info.Count == 0:
		log.Addf(StageNearDupes, "No near-duplicate rows found (using the near-duplicate rules).")
	case mode == NearDupesRemove:
		kept := t.Rows[:0]
		for i, row := range t.Rows {
			if !dup[i] {
				kept = append(kept, row)
			}
		}
		t.Rows = kept
		log.Addf(StageNearDupes, "Removed %d near-duplicate rows.", info.Count)
	default:
		log.Addf(StageNearDupes, "Dry run: %d near-duplicate rows would be removed.", info.Count)
	}

	ignored := "(none)"
	if len(info.IgnoredColumns) > 0 {
		ignored = strings.Join(info.IgnoredColumns, ", ")
	}
	log.Addf(StageNearDupes, "Near-duplicate rule: compare all columns except %s.", ignored)
	return info
}
