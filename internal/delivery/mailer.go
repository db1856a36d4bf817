// Package delivery sends completed quiz results out of the service: by email
// to the visitor and by HTTP callback to an embedding partner.
package delivery

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"windshield-quiz-service/internal/domain"
)

//go:embed templates/result.html
var templateFS embed.FS

var resultTemplate = template.Must(template.New("result.html").Funcs(template.FuncMap{
	"deref":         func(v *float64) float64 { return *v },
	"derefInt":      func(v *int) int { return *v },
	"percent":       func(v *float64) string { return fmt.Sprintf("%.0f", *v*100) },
	"money":         func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"severityLabel": severityLabel,
	"severityColor": severityColor,
}).ParseFS(templateFS, "templates/result.html"))

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// BaseURL prefixes relative call-to-action links.
	BaseURL string
}

// sender is the part of *mail.Client the mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer emails a rendered result summary.
type SMTPMailer struct {
	client  sender
	from    string
	baseURL string
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newMailer(client, cfg.From, cfg.BaseURL), nil
}

func newMailer(client sender, from, baseURL string) *SMTPMailer {
	return &SMTPMailer{client: client, from: from, baseURL: strings.TrimRight(baseURL, "/")}
}

// SendResult implements app.Mailer.
func (m *SMTPMailer) SendResult(ctx context.Context, to string, quiz domain.Quiz, completed domain.CompletedQuiz) error {
	msg, err := m.message(to, quiz, completed)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send result email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) message(to string, quiz domain.Quiz, completed domain.CompletedQuiz) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Your %s Results - Windshield Advisor", quiz.Title))

	body, err := m.render(to, quiz, completed)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

type emailData struct {
	Quiz      domain.Quiz
	Result    domain.Result
	Recipient string
	CTAText   string
	CTAURL    string
}

func (m *SMTPMailer) render(to string, quiz domain.Quiz, completed domain.CompletedQuiz) (string, error) {
	data := emailData{
		Quiz:      quiz,
		Result:    completed.Result,
		Recipient: to,
		CTAText:   quiz.Metadata.CTAText,
		CTAURL:    quiz.Metadata.CTAURL,
	}
	if data.CTAURL != "" && strings.HasPrefix(data.CTAURL, "/") {
		data.CTAURL = m.baseURL + data.CTAURL
	}
	if data.CTAURL != "" && data.CTAText == "" {
		data.CTAText = "Find a Certified Installer"
	}

	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render result email: %w", err)
	}
	return buf.String(), nil
}

func severityLabel(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "Action Required"
	case domain.SeverityCaution:
		return "Attention Recommended"
	case domain.SeveritySafe:
		return "Looking Good"
	}
	return "Your Results"
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "#fee2e2"
	case domain.SeverityCaution:
		return "#fef3c7"
	case domain.SeveritySafe:
		return "#dcfce7"
	}
	return "#dbeafe"
}
