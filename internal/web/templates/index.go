package templates

import (
	"fmt"

	"github.com/a-h/templ"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// IndexData holds what the upload page shows.
type IndexData struct {
	Error            string
	MaxMB            int64
	RetentionMinutes int
	MaxRows          int
	MaxCols          int
	UploadLimit      int
	UploadWindowSecs int
	PaymentsEnabled  bool
}

// Index renders the upload page.
func Index(d IndexData) templ.Component {
	payment := "Payment: disabled (missing Stripe env vars). Downloads will be free."
	if d.PaymentsEnabled {
		payment = "Payment: enabled (pay-to-download)."
	}

	return component(page("CleanCSV",
		html.H1(gomponents.Text("CleanCSV")),
		muted("Fix CSV files that won't import. Preview exactly what was repaired before you download."),
		gomponents.If(d.Error != "",
			html.P(html.Class("error"), html.B(gomponents.Text("Error: ")), gomponents.Text(d.Error)),
		),
		html.Div(
			html.Class("card"),
			html.Form(
				html.Action("/upload"),
				html.Method("post"),
				gomponents.Attr("enctype", "multipart/form-data"),
				html.Input(
					html.Type("file"),
					html.Name("file"),
					html.Required(),
					gomponents.Attr("accept", ".csv,.tsv,.txt,text/csv,text/tab-separated-values,text/plain"),
				),
				option("near_dupes_preview", "Preview", " near-duplicates (dry run)",
					"Shows examples and how many rows would be removed, but does not delete anything."),
				option("near_dupes_remove", "Remove", " near-duplicates",
					"Removes rows that are identical under a strict comparison rule after ignoring ID/date/balance-style columns."),
				option("normalize_numbers", "Normalize", " numbers",
					"Rewrites mostly-numeric columns (1.234,56 or $1,234.56 or (12.00)) as plain numbers."),
				html.P(html.Button(html.Class("btn"), html.Type("submit"), gomponents.Text("Upload file"))),
			),
			muted(fmt.Sprintf("Max file size: %d MB • Files auto-delete after %d minutes.", d.MaxMB, d.RetentionMinutes)),
			muted(fmt.Sprintf("Limits: %d rows • %d columns • %d uploads per %ds per IP.",
				d.MaxRows, d.MaxCols, d.UploadLimit, d.UploadWindowSecs)),
			muted(payment),
		),
	))
}

func option(name, verb, rest, help string) gomponents.Node {
	return html.Div(
		html.Class("opt"),
		html.Label(
			html.Input(html.Type("checkbox"), html.Name(name), html.Value("1")),
			gomponents.Text(" "),
			html.B(gomponents.Text(verb)),
			gomponents.Text(rest),
		),
		html.Div(html.Class("small indent"), gomponents.Text(help)),
	)
}
