// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dalemusser/campusdesk/internal/app/system/htmlsanitize"
)

// SiteName appears in email headers and signatures.
const SiteName = "Complaint Management System"

// ComplaintSubmittedData holds data for the submission confirmation.
type ComplaintSubmittedData struct {
	To          string
	Department  string
	Description string
}

// BuildComplaintSubmittedEmail confirms a new complaint to its submitter.
func BuildComplaintSubmittedEmail(data ComplaintSubmittedData) Email {
	data.Description = htmlsanitize.StripTags(data.Description)

	var text bytes.Buffer
	fmt.Fprintf(&text, "Dear %s,\n\n", data.To)
	text.WriteString("Your complaint has been successfully submitted and is now Pending.\n\n")
	fmt.Fprintf(&text, "Department: %s\n", data.Department)
	fmt.Fprintf(&text, "Description: %s\n\n", data.Description)
	text.WriteString("We will review it shortly. You will receive another email when its status is updated.\n\n")
	fmt.Fprintf(&text, "Thank you,\n%s\n", SiteName)

	return Email{
		To:       data.To,
		Subject:  "Complaint Submitted Successfully",
		TextBody: text.String(),
		HTMLBody: render(submittedTmpl, data),
	}
}

// StatusChangedData holds data for a status change notice.
type StatusChangedData struct {
	To              string
	ComplaintID     string
	Department      string
	OldStatus       string
	NewStatus       string
	ResolutionNotes string
}

// BuildStatusChangedEmail tells a submitter their complaint moved to a new status.
func BuildStatusChangedEmail(data StatusChangedData) Email {
	data.ResolutionNotes = htmlsanitize.StripTags(data.ResolutionNotes)

	var text bytes.Buffer
	fmt.Fprintf(&text, "Dear %s,\n\n", data.To)
	text.WriteString("The status of your complaint has been updated.\n\n")
	fmt.Fprintf(&text, "Complaint ID: %s\n", data.ComplaintID)
	fmt.Fprintf(&text, "Department: %s\n", data.Department)
	fmt.Fprintf(&text, "Previous Status: %s\n", data.OldStatus)
	fmt.Fprintf(&text, "New Status: %s\n", data.NewStatus)
	if data.ResolutionNotes != "" {
		fmt.Fprintf(&text, "Resolution Notes: %s\n", data.ResolutionNotes)
	}
	fmt.Fprintf(&text, "\nThank you,\n%s\n", SiteName)

	return Email{
		To:       data.To,
		Subject:  "Your Complaint Status is now: " + data.NewStatus,
		TextBody: text.String(),
		HTMLBody: render(statusChangedTmpl, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, struct {
		SiteName string
		Data     any
	}{SiteName, data})
	return buf.String()
}

var (
	submittedTmpl     = template.Must(template.New("submitted").Parse(layoutHead + submittedBody + layoutFoot))
	statusChangedTmpl = template.Must(template.New("status").Parse(layoutHead + statusChangedBody + layoutFoot))
)

const layoutHead = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px; font-size: 15px; color: #374151; line-height: 1.5;">
`

const layoutFoot = `
              <p style="margin: 24px 0 0;">Thank you,<br/>{{.SiteName}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const submittedBody = `              <h3 style="margin: 0 0 16px;">Dear {{.Data.To}},</h3>
              <p>Your complaint has been successfully submitted and is now <strong>Pending</strong>.</p>
              <p><b>Department:</b> {{.Data.Department}}</p>
              <p><b>Description:</b> {{.Data.Description}}</p>
              <p>We will review it shortly. You will receive another email when its status is updated.</p>`

const statusChangedBody = `              <h3 style="margin: 0 0 16px;">Dear {{.Data.To}},</h3>
              <p>The status of your complaint has been updated.</p>
              <p><b>Complaint ID:</b> {{.Data.ComplaintID}}</p>
              <p><b>Department:</b> {{.Data.Department}}</p>
              <p><b>Previous Status:</b> {{.Data.OldStatus}}</p>
              <p><b>New Status:</b> <strong>{{.Data.NewStatus}}</strong></p>
              {{if .Data.ResolutionNotes}}<p><b>Resolution Notes:</b> {{.Data.ResolutionNotes}}</p>{{end}}`
