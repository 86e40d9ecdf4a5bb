package templates

import (
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// ErrorAlert renders an inline error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return component(alert(message, action, code))
}

// ErrorPage renders a full error page.
func ErrorPage(status int, message, action, code string) templ.Component {
	title := strconv.Itoa(status) + " " + http.StatusText(status)
	return component(page("CleanCSV - "+title,
		html.H1(gomponents.Text(title)),
		alert(message, action, code),
		html.P(html.A(html.Href("/"), gomponents.Text("Back to upload"))),
	))
}

func alert(message, action, code string) gomponents.Node {
	return html.Div(
		html.Class("card"),
		gomponents.Attr("role", "alert"),
		html.P(html.Class("error"), gomponents.Text(message)),
		gomponents.If(action != "", muted(action)),
		gomponents.If(code != "", html.P(html.Class("small"), gomponents.Text("Code: "+code))),
	)
}
