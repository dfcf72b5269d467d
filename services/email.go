package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttemplate "text/template"

	"docflow_app_go/config"

	"github.com/microcosm-cc/bluemonday"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// EmailTemplateDir holds <name>.html and <name>.txt email templates.
var EmailTemplateDir = "templates/emails"

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailSender delivers emails. Mailer is the production implementation.
type EmailSender interface {
	SendAsync(email *Email)
}

// Mailer sends email through Resend, or logs it when EmailTestMode is set.
type Mailer struct {
	cfg    *config.Config
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewMailer creates a Mailer
func NewMailer(cfg *config.Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// emailPolicy limits rendered HTML bodies to formatting markup. Templates in
// EmailTemplateDir are operator supplied.
var emailPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("style").Globally()
	return p
}()

type executor interface {
	Execute(w io.Writer, data interface{}) error
}

// loadTemplate renders templateName.html (html/template, then emailPolicy)
// and templateName.txt (text/template, no escaping) from EmailTemplateDir.
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	loadAndExec := func(ext string, parse func(name, content string) (executor, error)) (string, error) {
		path := filepath.Join(EmailTemplateDir, templateName+ext)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %w", path, err)
		}

		tmpl, err := parse(filepath.Base(path), string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %w", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html", func(name, content string) (executor, error) {
		return htmltemplate.New(name).Parse(content)
	})
	if err != nil {
		return "", "", err
	}
	textContent, err := loadAndExec(".txt", func(name, content string) (executor, error) {
		return texttemplate.New(name).Parse(content)
	})
	if err != nil {
		return "", "", err
	}
	return emailPolicy.Sanitize(htmlContent), textContent, nil
}

// Send sends an email using Resend API
func (m *Mailer) Send(email *Email) error {
	if m.cfg.EmailTestMode {
		m.logger.Info("email logged (test mode, not sent)",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("text", truncate(email.TextBody, 500)),
		)
		return nil
	}

	if m.cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.EmailFromName, m.cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	client := resend.NewClient(m.cfg.ResendAPIKey)
	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	m.logger.Info("email sent", zap.String("resend_id", sent.Id), zap.Strings("to", email.To))
	return nil
}

// SendAsync sends an email in a goroutine so handlers do not block on
// delivery. Failures are logged.
func (m *Mailer) SendAsync(email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.Send(emailCopy); err != nil {
			m.logger.Error("failed to send email",
				zap.Strings("to", emailCopy.To),
				zap.String("subject", emailCopy.Subject),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until pending async sends finish.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// CaseAssignedEmailData contains data for the case_assigned template
type CaseAssignedEmailData struct {
	AssigneeName  string
	AssignedBy    string
	RegExpediente string
	Documento     string
	EnviadoPor    string
	Estado        string
	Instrucciones string
	CaseURL       string
}

// BuildCaseAssignedEmail tells a supervisor or specialist a case is waiting
// for them.
func BuildCaseAssignedEmail(to string, data CaseAssignedEmailData) *Email {
	email := buildEmail("case_assigned", data, to)
	email.Subject = fmt.Sprintf("Expediente %s asignado", data.RegExpediente)
	if email.TextBody == "" {
		email.TextBody = fmt.Sprintf(
			"Hola %s,\n\n%s te asignó el expediente %s (%s).\nEstado: %s\n\n%s\n",
			data.AssigneeName, data.AssignedBy, data.RegExpediente, data.Documento, data.Estado, data.CaseURL,
		)
	}
	return email
}

// StaleInboxItem is one overdue case in a reminder
type StaleInboxItem struct {
	RegExpediente string
	Estado        string
	DaysIdle      int
}

// StaleInboxEmailData contains data for the stale_inbox template
type StaleInboxEmailData struct {
	RecipientName string
	Items         []StaleInboxItem
	Total         int // stale cases in the inbox; Items may hold fewer
	InboxURL      string
}

// Partial reports whether Items is a truncated list.
func (d StaleInboxEmailData) Partial() bool { return d.Total > len(d.Items) }

// BuildStaleInboxEmail lists cases that have waited too long on the
// recipient.
func BuildStaleInboxEmail(to string, data StaleInboxEmailData) *Email {
	email := buildEmail("stale_inbox", data, to)
	total := data.Total
	if total < len(data.Items) {
		total = len(data.Items)
	}
	email.Subject = fmt.Sprintf("Tiene %d expedientes pendientes", total)
	if email.TextBody == "" {
		var b strings.Builder
		fmt.Fprintf(&b, "Hola %s,\n\nLos siguientes expedientes siguen pendientes:\n", data.RecipientName)
		for _, it := range data.Items {
			fmt.Fprintf(&b, "- %s (%s, %d días)\n", it.RegExpediente, it.Estado, it.DaysIdle)
		}
		if data.Partial() {
			fmt.Fprintf(&b, "\nSe muestran %d de %d expedientes. Consulte la bandeja para ver el resto.\n", len(data.Items), data.Total)
		}
		fmt.Fprintf(&b, "\n%s\n", data.InboxURL)
		email.TextBody = b.String()
	}
	return email
}

// buildEmail renders a template; on failure the bodies stay empty and the
// caller fills in a plain-text fallback.
func buildEmail(templateName string, data interface{}, to string) *Email {
	htmlBody, textBody, err := loadTemplate(templateName, data)
	if err != nil {
		htmlBody, textBody = "", ""
	}
	return &Email{
		To:       []string{to},
		HTMLBody: htmlBody,
		TextBody: textBody,
	}
}
