package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wolfman30/leadrelay/internal/leads"
)

// DefaultInbox receives lead notifications when NOTIFY_TO_EMAIL is unset.
const DefaultInbox = "hello@recognize.example"

type row struct {
	Label string
	Value string
	Href  string
}

type section struct {
	Title string
	Rows  []row
}

type notificationData struct {
	Title       string
	ID          string
	Form        string
	SubmittedAt string
	Sections    []section
}

var leadTemplate = template.Must(template.New("lead").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 640px; color: #111827;">
<h2 style="color: #4f46e5;">{{.Title}}</h2>
<p style="color: #6b7280; font-size: 13px;">Form: {{.Form}} &middot; Submitted {{.SubmittedAt}} &middot; ID {{.ID}}</p>
{{range .Sections}}{{if .Rows}}
<h3 style="margin-top: 24px;">{{.Title}}</h3>
<table style="border-collapse: collapse; width: 100%;">
{{range .Rows}}  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb; width: 35%;"><strong>{{.Label}}</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">{{if .Href}}<a href="{{.Href}}">{{.Value}}</a>{{else}}{{.Value}}{{end}}</td></tr>
{{end}}</table>
{{end}}{{end}}
</body>
</html>
`))

var headerReplacer = strings.NewReplacer("\r", " ", "\n", " ")

// RenderLeadNotification builds the operator email for an accepted lead.
// Every submitted value is escaped by html/template.
func RenderLeadNotification(form leads.Form, id string, submittedAt time.Time, sub leads.Submission, to string) (EmailMessage, error) {
	if strings.TrimSpace(to) == "" {
		to = DefaultInbox
	}
	data := notificationData{
		Title:       form.Subject,
		ID:          id,
		Form:        form.Name,
		SubmittedAt: submittedAt.UTC().Format(time.RFC1123),
		Sections:    sections(sub),
	}

	var html bytes.Buffer
	if err := leadTemplate.Execute(&html, data); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render lead: %w", err)
	}

	subject := fmt.Sprintf("%s: %s", form.Subject, sub.FullName())
	if sub.Company != "" {
		subject += fmt.Sprintf(" (%s)", sub.Company)
	}

	return EmailMessage{
		To:      to,
		ReplyTo: sub.Email,
		Subject: headerReplacer.Replace(subject),
		Body:    renderText(data),
		HTML:    html.String(),
	}, nil
}

func renderText(data notificationData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nForm: %s\nSubmitted: %s\nID: %s\n", data.Title, data.Form, data.SubmittedAt, data.ID)
	for _, s := range data.Sections {
		if len(s.Rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, r := range s.Rows {
			fmt.Fprintf(&b, "  %s: %s\n", r.Label, r.Value)
		}
	}
	return b.String()
}

func sections(sub leads.Submission) []section {
	engagement := ""
	if sub.DemoType != "" {
		engagement = sub.DemoType.Label()
	}
	return []section{
		{Title: "Contact", Rows: rows(
			row{Label: "Name", Value: sub.FullName()},
			row{Label: "Email", Value: sub.Email, Href: "mailto:" + sub.Email},
			row{Label: "Phone", Value: sub.Phone},
		)},
		{Title: "Company", Rows: rows(
			row{Label: "Company", Value: sub.Company},
			row{Label: "Job title", Value: sub.JobTitle},
			row{Label: "Employees", Value: sub.Employees},
		)},
		{Title: "Request", Rows: rows(
			row{Label: "Session", Value: engagement},
			row{Label: "Preferred date", Value: sub.PreferredDate},
			row{Label: "Preferred time", Value: sub.PreferredTime},
			row{Label: "Timezone", Value: sub.Timezone},
			row{Label: "Message", Value: sub.Message},
		)},
		{Title: "Attribution", Rows: rows(
			row{Label: "UTM source", Value: sub.UTMSource},
			row{Label: "UTM campaign", Value: sub.UTMCampaign},
			row{Label: "UTM medium", Value: sub.UTMMedium},
			row{Label: "UTM term", Value: sub.UTMTerm},
			row{Label: "UTM content", Value: sub.UTMContent},
			row{Label: "Page", Value: sub.PageURL},
			row{Label: "Referrer", Value: sub.Referrer},
			row{Label: "User agent", Value: sub.UserAgent},
			row{Label: "Client time", Value: sub.Timestamp},
		)},
	}
}

// rows drops entries without a value.
func rows(in ...row) []row {
	out := make([]row, 0, len(in))
	for _, r := range in {
		if r.Value != "" {
			out = append(out, r)
		}
	}
	return out
}
