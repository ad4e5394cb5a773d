package usecase

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"masterclass-reconciler/internal/domain/model"
)

// mailData feeds every e-mail template. Unused fields render as empty.
type mailData struct {
	Name      string
	Title     string
	ItemTitle string
	OrderID   string
	Amount    string
	Currency  string
	StartsAt  string
	Lead      string
	AppURL    string
}

var mailTemplates = template.Must(template.New("mail").Parse(`{{define "layout"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8" /><title>{{.Title}}</title></head>
<body style="font-family:system-ui,Arial,sans-serif;margin:0;padding:24px;background:#f7f9fc;">
<div style="max-width:560px;margin:auto;background:#fff;border-radius:12px;padding:24px;">
<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
{{template "content" .}}
{{if .AppURL}}<p><a href="{{.AppURL}}" style="display:inline-block;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none;">Open your dashboard</a></p>{{end}}
</div>
</body>
</html>{{end}}`))

var contentTemplates = map[model.NotificationKind]string{
	model.NotificationPurchaseConfirmed: `{{define "content"}}<p>Your purchase of <strong>{{if .ItemTitle}}{{.Title}} - {{.ItemTitle}}{{else}}{{.Title}}{{end}}</strong> is confirmed.</p>
<p>Order <code>{{.OrderID}}</code>{{if .Amount}} &middot; {{.Amount}} {{.Currency}}{{end}}</p>{{end}}`,
	model.NotificationRegistrationConfirmed: `{{define "content"}}<p>You are enrolled in <strong>{{.Title}}</strong>.</p>
{{if .StartsAt}}<p>The session starts at {{.StartsAt}}.</p>{{end}}
<p>Order <code>{{.OrderID}}</code></p>{{end}}`,
	model.NotificationStartingSoon: `{{define "content"}}<p><strong>{{.Title}}</strong> starts soon, at {{.StartsAt}}. Get ready to join.</p>{{end}}`,
	model.NotificationReminder24h:  `{{define "content"}}<p>Reminder: <strong>{{.Title}}</strong> starts in {{.Lead}}, at {{.StartsAt}}.</p>{{end}}`,
	model.NotificationReminder2h:   `{{define "content"}}<p>Reminder: <strong>{{.Title}}</strong> starts in {{.Lead}}, at {{.StartsAt}}.</p>{{end}}`,
}

var compiled = func() map[model.NotificationKind]*template.Template {
	out := make(map[model.NotificationKind]*template.Template, len(contentTemplates))
	for kind, body := range contentTemplates {
		t := template.Must(mailTemplates.Clone())
		out[kind] = template.Must(t.Parse(body))
	}
	return out
}()

func subjectFor(kind model.NotificationKind, d mailData) string {
	switch kind {
	case model.NotificationPurchaseConfirmed:
		if d.ItemTitle != "" {
			return fmt.Sprintf("Purchase Confirmed: %s - %s", d.Title, d.ItemTitle)
		}
		return "Purchase Confirmed: " + d.Title
	case model.NotificationRegistrationConfirmed:
		return "Enrollment Confirmed: " + d.Title
	case model.NotificationStartingSoon:
		return "Starting soon: " + d.Title
	default:
		return fmt.Sprintf("Reminder: %s starts in %s", d.Title, d.Lead)
	}
}

// render builds the subject and HTML body of a notification.
func render(kind model.NotificationKind, d mailData) (string, string, error) {
	t, ok := compiled[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for %s", kind)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}
	return subjectFor(kind, d), buf.String(), nil
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

func leadText(w model.Window) string {
	if w == model.Window2h {
		return "2 hours"
	}
	return "24 hours"
}
