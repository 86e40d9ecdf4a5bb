package templates

import (
	"fmt"

	"github.com/a-h/templ"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
)

// ResultData holds what the result page shows for one job.
type ResultData struct {
	Job              *store.Job
	Preview          *core.Preview
	PaymentsEnabled  bool
	PaymentPending   bool
	PriceLabel       string
	RetentionMinutes int
}

// Result renders the result page of a job.
func Result(d ResultData) templ.Component {
	job := d.Job
	preview := d.Preview
	if preview == nil {
		preview = &core.Preview{}
	}

	paid := "no"
	if job.Paid {
		paid = "yes"
	}

	downloadLabel := "Download cleaned file"
	if d.PaymentsEnabled && !job.Paid {
		downloadLabel = fmt.Sprintf("Pay %s & download", d.PriceLabel)
	}

	var footnote string
	if d.PaymentsEnabled {
		footnote = fmt.Sprintf("%s one-time download • Files are automatically deleted after %d minutes", d.PriceLabel, d.RetentionMinutes)
	} else {
		footnote = fmt.Sprintf("Files are automatically deleted after %d minutes", d.RetentionMinutes)
	}

	resultURL := "/result/" + job.ID

	return component(page("CleanCSV - Results",
		html.H1(gomponents.Text("Results")),
		html.P(
			html.Class("muted"),
			gomponents.Text("Job ID: "+job.ID+" "),
			pill("pill", "Paid: "+paid),
			gomponents.If(job.ImportWarning, pill("pill warn", "Import repaired")),
			gomponents.If(job.NearDupesMode != "", pill("pill", "Near-dupes: "+job.NearDupesMode)),
			gomponents.If(job.Delimiter != "", pill("pill", "Delimiter: "+repair.DelimiterLabel(job.DelimiterRune()))),
		),

		html.Div(
			html.Class("card"),
			html.P(
				html.B(gomponents.Text("Rows:")), gomponents.Textf(" %d  ", job.Rows),
				html.B(gomponents.Text("Columns:")), gomponents.Textf(" %d", job.Cols),
			),
			gomponents.If(d.PaymentPending, pendingCallout(resultURL)),
			gomponents.If(job.ImportWarning,
				html.P(html.Class("warn"),
					html.B(gomponents.Text("Note: ")),
					gomponents.Text("Some rows would have broken imports (wrong number of columns). We repaired them to match the header."),
				),
			),
			gomponents.If(job.NearDupesMode != "", nearDupeRule(job.IgnoredColumns)),
			html.P(html.Class("muted"), html.B(gomponents.Text("Changes:"))),
			html.Ul(gomponents.Map(job.Changelog, func(item string) gomponents.Node {
				return html.Li(gomponents.Text(item))
			})),
			html.P(
				button("btn", "/download/"+job.ID, downloadLabel),
				button("btn secondary", "/download_original/"+job.ID, "Download original"),
				button("btn secondary", resultURL, "Results link"),
			),
			muted(footnote),
		),

		gomponents.If(len(job.NearDupeExamples) > 0, nearDupeExamples(job.NearDupesMode, job.NearDupeExamples)),

		section("Preview: first 10 rows", rowsTable(preview.Header, preview.First)),
		section("Preview: last 10 rows", rowsTable(preview.Header, preview.Last)),
		gomponents.If(len(preview.Repaired) > 0,
			section("Preview: repaired rows (up to 10)",
				muted("These rows had the wrong number of columns in the original file and were repaired to match the header."),
				rowsTable(preview.Header, preview.Repaired),
			),
		),
	))
}

func section(title string, body ...gomponents.Node) gomponents.Node {
	return html.Div(
		html.Class("card"),
		html.P(html.Class("section-title"), gomponents.Text(title)),
		gomponents.Group(body),
	)
}

func pendingCallout(resultURL string) gomponents.Node {
	return html.Div(
		html.Class("callout"),
		html.P(html.Class("muted"),
			html.B(gomponents.Text("Payment pending.")),
			gomponents.Text(" If you just paid, the webhook may take a few seconds. Refresh in ~5 seconds."),
		),
		html.P(button("btn secondary", resultURL, "Refresh status")),
	)
}

func nearDupeRule(ignored []string) gomponents.Node {
	chips := make([]gomponents.Node, 0, len(ignored))
	for _, c := range ignored {
		chips = append(chips, pill("chip", c))
	}
	if len(chips) == 0 {
		chips = append(chips, pill("chip", "(none)"))
	}
	return html.Div(
		html.P(html.Class("subhead"), gomponents.Text("Near-duplicate comparison rule")),
		html.P(html.Class("muted"),
			gomponents.Text("We compare all columns "),
			html.B(gomponents.Text("except")),
			gomponents.Text(" the ones below."),
		),
		html.Div(chips...),
	)
}

func nearDupeExamples(mode string, examples []repair.NearDupeExample) gomponents.Node {
	other, label := "what was removed", "Removed"
	if mode == repair.NearDupesPreview.String() {
		other, label = "what would be removed", "Would remove"
	}

	tables := make([]gomponents.Node, 0, len(examples))
	for _, ex := range examples {
		tables = append(tables, compareTable(ex, label))
	}

	return section("Near-duplicate examples",
		muted(fmt.Sprintf("Each example is shown as two rows in one table. \"Kept\" is the first occurrence; the other row is %s.", other)),
		gomponents.Group(tables),
	)
}

// compareTable shows the kept row and its near-duplicate under the union of
// their columns.
func compareTable(ex repair.NearDupeExample, removedLabel string) gomponents.Node {
	var cols []string
	seen := make(map[string]bool)
	for _, side := range [][]repair.NamedValue{ex.Kept, ex.Removed} {
		for _, nv := range side {
			if !seen[nv.Column] {
				seen[nv.Column] = true
				cols = append(cols, nv.Column)
			}
		}
	}

	row := func(status string, values []repair.NamedValue) []string {
		byCol := make(map[string]string, len(values))
		for _, nv := range values {
			byCol[nv.Column] = nv.Value
		}
		out := []string{status}
		for _, c := range cols {
			out = append(out, byCol[c])
		}
		return out
	}

	header := append([]string{"status"}, cols...)
	return rowsTable(header, [][]string{row("Kept", ex.Kept), row(removedLabel, ex.Removed)})
}
