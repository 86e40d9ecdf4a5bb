// Package templates renders the HTML pages of the repair service.
//
// Pages are built with gomponents and exposed as templ.Component values so
// handlers render them the same way: Render(ctx, w).
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

const stylesheet = `
body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 40px; max-width: 1120px; }
.card { border: 1px solid #ddd; border-radius: 12px; padding: 20px; margin-top: 16px; }
.btn { display:inline-block; padding: 10px 14px; border-radius: 10px; border: 1px solid #111; background: #111; color: #fff; text-decoration:none; margin-right:10px; cursor: pointer; }
.btn.secondary { background:#fff; color:#111; }
.muted { color: #666; font-size: 14px; }
.small { font-size: 13px; color: #666; }
.indent { margin-left: 22px; margin-top: 6px; }
.opt { margin-top: 14px; }
.error { color: #b00020; white-space: pre-wrap; }
.warn { color:#8a6d3b; }
ul { margin: 8px 0 0 18px; }
.pill { display:inline-block; padding:4px 10px; border:1px solid #ddd; border-radius:999px; font-size:12px; color:#333; margin-right:6px; }
.pill.warn { border-color:#e0c68a; }
.chip { display:inline-block; padding:4px 10px; border:1px solid #ddd; border-radius:999px; font-size:12px; margin: 4px 6px 0 0; }
.section-title { margin: 0 0 8px; font-weight: 600; }
.subhead { font-weight: 600; margin: 10px 0 6px; }
.callout { border: 1px solid #e5e7eb; border-radius: 12px; padding: 12px; background: #fafafa; margin-top: 12px; }
.table-wrap { overflow-x: auto; width: 100%; border: 1px solid #e5e7eb; border-radius: 10px; padding: 8px; background: #fff; margin-top: 14px; }
.table-wrap table { border-collapse: collapse; width: max-content; min-width: 100%; }
.table-wrap th, .table-wrap td { border-bottom: 1px solid #eee; padding: 8px; text-align: left; font-size: 13px; white-space: nowrap; }
`

// component adapts a gomponents node to templ.Component.
func component(n gomponents.Node) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return n.Render(w)
	})
}

func page(title string, body ...gomponents.Node) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text(title)),
				html.StyleEl(gomponents.Raw(stylesheet)),
			),
			html.Body(body...),
		),
	)
}

func muted(text string) gomponents.Node {
	return html.P(html.Class("muted"), gomponents.Text(text))
}

func pill(class, text string) gomponents.Node {
	return html.Span(html.Class(class), gomponents.Text(text))
}

func button(class, href, label string) gomponents.Node {
	return html.A(html.Class(class), html.Href(href), gomponents.Text(label))
}

// rowsTable renders a header and rows, or a placeholder when there are no rows.
func rowsTable(header []string, rows [][]string) gomponents.Node {
	if len(rows) == 0 {
		return muted("No rows to display.")
	}

	body := make([]gomponents.Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]gomponents.Node, 0, len(header))
		for i := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cells = append(cells, html.Td(gomponents.Text(v)))
		}
		body = append(body, html.Tr(cells...))
	}

	heads := make([]gomponents.Node, 0, len(header))
	for _, name := range header {
		heads = append(heads, html.Th(gomponents.Text(name)))
	}

	return html.Div(
		html.Class("table-wrap"),
		html.Table(
			html.THead(html.Tr(heads...)),
			html.TBody(body...),
		),
	)
}
