package notifications

import (
	"bytes"
	"html/template"

	"contractor-backend/internal/intake"

	"github.com/dustin/go-humanize"
)

type leadEmailView struct {
	intake.Lead
	Estimate  string
	Submitted string
}

func newLeadEmailView(l intake.Lead) leadEmailView {
	v := leadEmailView{Lead: l}
	if l.EstimatedBudget > 0 {
		v.Estimate = "$" + humanize.Comma(int64(l.EstimatedBudget))
	}
	if !l.SubmittedAt.IsZero() {
		v.Submitted = l.SubmittedAt.Format("Jan 2, 2006 3:04 PM MST")
	}
	return v
}

const leadNotificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <h3>New project request</h3>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Phone:</strong> {{.Phone}}</p>
  <p><strong>Project type:</strong> {{.ProjectType}}</p>
  <p><strong>Budget:</strong> {{.Budget}}</p>
  <p><strong>Timeline:</strong> {{.Timeline}}</p>
  {{- if .Estimate}}
  <p><strong>Calculator estimate:</strong> {{.Estimate}}</p>
  {{- end}}
  {{- if .Attachment}}
  <p><strong>Attachment:</strong> {{.Attachment.Name}}</p>
  {{- end}}
  <p><strong>Source:</strong> {{.Source}}</p>
  <p><strong>Submitted:</strong> {{.Submitted}}</p>
  <p><strong>ID:</strong> {{.ID}}</p>
  <p><strong>Message:</strong><br/>{{.Message}}</p>
</body>
</html>`

const leadConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Thanks for reaching out. We received your request and will contact you within 24 hours.</p>
  <ul>
    <li>Project type: {{.ProjectType}}</li>
    <li>Budget: {{.Budget}}</li>
    <li>Timeline: {{.Timeline}}</li>
  </ul>
  <p>Reference: {{.ID}}</p>
</body>
</html>`

var leadNotificationTmpl = template.Must(template.New("lead_notification").Parse(leadNotificationTemplate))
var leadConfirmationTmpl = template.Must(template.New("lead_confirmation").Parse(leadConfirmationTemplate))

func buildLeadNotificationHTML(l intake.Lead) (string, error) {
	var buf bytes.Buffer
	if err := leadNotificationTmpl.Execute(&buf, newLeadEmailView(l)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildLeadConfirmationHTML(l intake.Lead) (string, error) {
	var buf bytes.Buffer
	if err := leadConfirmationTmpl.Execute(&buf, newLeadEmailView(l)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
