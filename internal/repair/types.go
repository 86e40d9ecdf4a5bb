package repair

import (
	"fmt"
	"strconv"
)

// CellKind describes what a Cell holds.
type CellKind uint8

const (
	KindText CellKind = iota
	KindNumber
	KindMissing
)

// Cell is one table value. Text cells come from the input; Number cells are
// produced by numeric normalization; Missing cells are numeric failures and
// render as empty strings.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: KindText, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{Kind: KindNumber, Num: f} }

// MissingCell returns a missing cell.
func MissingCell() Cell { return Cell{Kind: KindMissing} }

// String renders the cell the way it is written to output.
func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindMissing:
		return ""
	default:
		return c.Text
	}
}

// IsEmpty reports whether the cell is missing or an empty string.
func (c Cell) IsEmpty() bool {
	return c.Kind == KindMissing || (c.Kind == KindText && c.Text == "")
}

// Table is a header plus rows aligned positionally to it.
// After the shape stage every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Header) }

// RowStrings returns row i rendered as strings.
func (t *Table) RowStrings(i int) []string {
	out := make([]string, len(t.Rows[i]))
	for j, c := range t.Rows[i] {
		out[j] = c.String()
	}
	return out
}

// NearDupeMode selects near-duplicate analysis.
type NearDupeMode uint8

const (
	NearDupesOff NearDupeMode = iota
	NearDupesPreview
	NearDupesRemove
)

func (m NearDupeMode) String() string {
	switch m {
	case NearDupesPreview:
		return "preview"
	case NearDupesRemove:
		return "remove"
	default:
		return "off"
	}
}

// ParseNearDupeMode parses "off", "preview" or "remove". The empty string
// means off.
func ParseNearDupeMode(s string) (NearDupeMode, error) {
	switch s {
	case "", "off":
		return NearDupesOff, nil
	case "preview":
		return NearDupesPreview, nil
	case "remove":
		return NearDupesRemove, nil
	}
	return NearDupesOff, fmt.Errorf("unknown near-duplicate mode %q", s)
}

// Options configures a run. Zero values fall back to the defaults.
type Options struct {
	MaxRows             int
	MaxCols             int
	MaxPreambleDepth    int
	HeaderConfidenceGap float64
	HeaderScanLines     int
	NearDupes           NearDupeMode
	NormalizeNumbers    bool
}

const (
	DefaultMaxRows             = 200000
	DefaultMaxCols             = 300
	DefaultMaxPreambleDepth    = 15
	DefaultHeaderConfidenceGap = 0.75
	DefaultHeaderScanLines     = 60
)

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MaxRows:             DefaultMaxRows,
		MaxCols:             DefaultMaxCols,
		MaxPreambleDepth:    DefaultMaxPreambleDepth,
		HeaderConfidenceGap: DefaultHeaderConfidenceGap,
		HeaderScanLines:     DefaultHeaderScanLines,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxRows <= 0 {
		o.MaxRows = d.MaxRows
	}
	if o.MaxCols <= 0 {
		o.MaxCols = d.MaxCols
	}
	if o.MaxPreambleDepth <= 0 {
		o.MaxPreambleDepth = d.MaxPreambleDepth
	}
	if o.HeaderConfidenceGap <= 0 {
		o.HeaderConfidenceGap = d.HeaderConfidenceGap
	}
	if o.HeaderScanLines <= 0 {
		o.HeaderScanLines = d.HeaderScanLines
	}
	return o
}

// HeaderInfo describes the header decision.
type HeaderInfo struct {
	LineIndex       int     `json:"line_index"`
	Score           float64 `json:"score"`
	Gap             float64 `json:"gap"`
	ModalFieldCount int     `json:"modal_field_count"`
	PreambleLines   int     `json:"preamble_lines"`
}

// NamedValue is one column of an example row.
type NamedValue struct {
	Column string `json:"column" yaml:"column"`
	Value  string `json:"value" yaml:"value"`
}

// NearDupeExample pairs a kept row with one of its near-duplicates.
type NearDupeExample struct {
	Kept    []NamedValue `json:"kept" yaml:"kept"`
	Removed []NamedValue `json:"removed" yaml:"removed"`
}

// NearDupeInfo summarizes near-duplicate analysis.
type NearDupeInfo struct {
	Mode           NearDupeMode      `json:"-" yaml:"-"`
	IgnoredColumns []string          `json:"ignored_columns" yaml:"ignored_columns"`
	Count          int               `json:"count" yaml:"count"`
	Examples       []NearDupeExample `json:"examples" yaml:"examples"`
}

// StitchStats counts physical and logical lines.
type StitchStats struct {
	PhysicalLines    int  `json:"physical_lines"`
	LogicalLines     int  `json:"logical_lines"`
	MultiLineRecords int  `json:"multi_line_records"`
	MaxSpan          int  `json:"max_span"`
	Unterminated     bool `json:"unterminated"`
}

// DelimiterSource records which rule picked the delimiter.
type DelimiterSource string

const (
	SourceSniffer   DelimiterSource = "sniffer"
	SourceHeuristic DelimiterSource = "heuristic"
	SourceEuro      DelimiterSource = "decimal-comma"
	SourceDefault   DelimiterSource = "default"
)

// Result is the output of a successful run.
type Result struct {
	Table           *Table
	Log             *ChangeLog
	RepairedRows    []int
	ImportWarning   bool
	Delimiter       rune
	DelimiterSource DelimiterSource
	Encoding        string
	Header          HeaderInfo
	NearDupes       NearDupeInfo
	Stitch          StitchStats
}

// DelimiterLabel returns a human name for a delimiter.
func DelimiterLabel(d rune) string {
	switch d {
	case '\t':
		return "TAB"
	case ',':
		return "Comma"
	case ';':
		return "Semicolon"
	case '|':
		return "Pipe"
	}
	return string(d)
}

// DownloadName returns the file name for cleaned output.
func DownloadName(d rune) string {
	if d == '\t' {
		return "cleaned.tsv"
	}
	return "cleaned.csv"
}

// delimRepr renders a delimiter the way the change log quotes it.
func delimRepr(d rune) string {
	if d == '\t' {
		return `'\t'`
	}
	return "'" + string(d) + "'"
}
