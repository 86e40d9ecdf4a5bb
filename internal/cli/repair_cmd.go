package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/logging"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
)

// FileReport summarizes the repair of one input file.
type FileReport struct {
	Input          string                   `json:"input" yaml:"input"`
	Output         string                   `json:"output,omitempty" yaml:"output,omitempty"`
	Encoding       string                   `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Delimiter      string                   `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Rows           int                      `json:"rows" yaml:"rows"`
	Cols           int                      `json:"cols" yaml:"cols"`
	ImportWarning  bool                     `json:"import_warning" yaml:"import_warning"`
	RepairedRows   int                      `json:"repaired_rows" yaml:"repaired_rows"`
	NearDupesMode  string                   `json:"near_dupes_mode,omitempty" yaml:"near_dupes_mode,omitempty"`
	NearDupes      int                      `json:"near_dupes" yaml:"near_dupes"`
	NearDupeRule   []string                 `json:"ignored_columns,omitempty" yaml:"ignored_columns,omitempty"`
	NearDupeSample []repair.NearDupeExample `json:"near_dupe_examples,omitempty" yaml:"near_dupe_examples,omitempty"`
	Changes        []string                 `json:"changes,omitempty" yaml:"changes,omitempty"`
	Error          string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

type repairFlags struct {
	outDir    string
	nearDupes string
	numbers   bool
	maxRows   int
	maxCols   int
	maxBytes  int64
	report    string
	jobs      int
}

func newRepairCmd() *cobra.Command {
	var flags repairFlags

	cmd := &cobra.Command{
		Use:   "repair FILE...",
		Short: "Repair one or more CSV files",
		Long: `Repair one or more CSV files and write each cleaned copy next to it
(or into --out-dir) as <name>.cleaned.csv, or .cleaned.tsv for tab-delimited input.`,
		Example: `  cleancsv repair export.csv
  cleancsv repair --near-dupes remove --numbers --report json *.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd.Context(), cmd.OutOrStdout(), args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.outDir, "out-dir", "o", "", "Directory for cleaned files (default: next to each input)")
	cmd.Flags().StringVar(&flags.nearDupes, "near-dupes", "off", "Near-duplicate handling: off, preview, remove")
	cmd.Flags().BoolVar(&flags.numbers, "numbers", false, "Normalize numeric columns (currency, thousands separators, decimal commas)")
	cmd.Flags().IntVar(&flags.maxRows, "max-rows", repair.DefaultMaxRows, "Maximum data rows per file")
	cmd.Flags().IntVar(&flags.maxCols, "max-cols", repair.DefaultMaxCols, "Maximum columns per file")
	cmd.Flags().Int64Var(&flags.maxBytes, "max-bytes", 0, "Maximum input size in bytes (0 = unlimited)")
	cmd.Flags().StringVar(&flags.report, "report", "text", "Report format: text, json, yaml")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 4, "Files to repair in parallel")

	return cmd
}

func runRepair(ctx context.Context, out io.Writer, paths []string, flags repairFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := repair.ParseNearDupeMode(flags.nearDupes)
	if err != nil {
		return err
	}
	switch flags.report {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown report format %q", flags.report)
	}
	if flags.outDir != "" {
		if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	opts := repair.Options{
		MaxRows:          flags.maxRows,
		MaxCols:          flags.maxCols,
		NearDupes:        mode,
		NormalizeNumbers: flags.numbers,
	}

	reports := make([]FileReport, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if flags.jobs > 0 {
		g.SetLimit(flags.jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				reports[i] = FileReport{Input: path, Error: gctx.Err().Error()}
				return nil
			}
			// Per-file failures go into the report; the rest keep going.
			reports[i] = repairFile(gctx, path, flags.outDir, flags.maxBytes, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writeReport(out, flags.report, reports); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(reports))
	}
	return nil
}

// repairFile runs the pipeline on one file and writes the cleaned output.
func repairFile(ctx context.Context, path, outDir string, maxBytes int64, opts repair.Options) FileReport {
	report := FileReport{Input: path}
	fail := func(err error) FileReport {
		report.Error = err.Error()
		if core.IsUserFacing(err) {
			report.Error = core.MapError(err).Message
		}
		slog.Warn("repair failed", "event", "repair_failed", "file", path, "error", err)
		return report
	}

	data, err := readInput(path, maxBytes)
	if err != nil {
		return fail(err)
	}
	if err := core.ValidateUpload(filepath.Base(path), data); err != nil {
		return fail(err)
	}

	res, err := repair.Run(data, opts)
	if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := repair.WriteCSV(&buf, res.Table, res.Delimiter); err != nil {
		return fail(err)
	}

	dest := outputPath(path, outDir, res.Delimiter)
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fail(fmt.Errorf("write %s: %w", dest, err))
	}

	report.Output = dest
	report.Encoding = res.Encoding
	report.Delimiter = repair.DelimiterLabel(res.Delimiter)
	report.Rows = res.Table.NumRows()
	report.Cols = res.Table.NumCols()
	report.ImportWarning = res.ImportWarning
	report.RepairedRows = len(res.RepairedRows)
	report.Changes = res.Log.Messages()
	if res.NearDupes.Mode != repair.NearDupesOff {
		report.NearDupesMode = res.NearDupes.Mode.String()
		report.NearDupes = res.NearDupes.Count
		report.NearDupeRule = res.NearDupes.IgnoredColumns
		report.NearDupeSample = res.NearDupes.Examples
	}

	logging.Event(ctx, "repair_complete",
		"file", path,
		"output", dest,
		"rows", report.Rows,
		"cols", report.Cols,
	)
	return report
}

func readInput(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if maxBytes <= 0 {
		return io.ReadAll(f)
	}
	return core.ReadLimited(f, maxBytes)
}

// outputPath returns <dir>/<base>.cleaned.<ext>, where ext follows the
// detected delimiter.
func outputPath(input, outDir string, delim rune) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ext := filepath.Ext(repair.DownloadName(delim))
	return filepath.Join(dir, base+".cleaned"+ext)
}

func writeReport(w io.Writer, format string, reports []FileReport) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "%s: FAILED: %s\n", r.Input, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s -> %s\n", r.Input, r.Output)
		fmt.Fprintf(w, "  %d rows, %d columns, %s, delimiter %s\n", r.Rows, r.Cols, r.Encoding, r.Delimiter)
		if r.ImportWarning {
			fmt.Fprintf(w, "  import repaired: %d rows fixed\n", r.RepairedRows)
		}
		if r.NearDupesMode != "" {
			fmt.Fprintf(w, "  near-duplicates (%s): %d\n", r.NearDupesMode, r.NearDupes)
		}
		for _, c := range r.Changes {
			fmt.Fprintf(w, "  - %s\n", c)
		}
	}
	return nil
}
