package templates

import (
	"github.com/a-h/templ"
	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// Success renders the page shown after a confirmed checkout.
func Success(jobID, supportEmail string) templ.Component {
	return component(page("CleanCSV - Payment received",
		html.H1(gomponents.Text("Payment received")),
		muted("You're good to go."),
		html.P(button("btn", "/download/"+jobID, "Download cleaned file")),
		gomponents.If(supportEmail != "",
			muted("Need help? Email "+supportEmail+" and include Job ID: "+jobID),
		),
		html.P(html.Class("muted"), html.A(html.Href("/result/"+jobID), gomponents.Text("Back to results"))),
	))
}

// Cancel renders the page shown when the customer abandons checkout.
func Cancel(jobID string) templ.Component {
	return component(page("CleanCSV - Payment canceled",
		html.H1(gomponents.Text("Payment canceled")),
		gomponents.If(jobID != "",
			html.P(html.A(html.Href("/result/"+jobID), gomponents.Text("Back to results"))),
		),
		html.P(html.A(html.Href("/"), gomponents.Text("Back to upload"))),
	))
}
