package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"dotmac/internal/common"
)

const VerificationPath = "/api/auth/verify-email"

var verificationTemplate = template.Must(template.New("verification").Parse(
	`<p>Hi {{ .Name }},</p>
<p>Confirm your email address to finish setting up your account:</p>
<p><a href="{{ .Link }}">{{ .Link }}</a></p>
<p>If you did not sign up you can ignore this message.</p>`,
))

// VerificationLink builds the link a user follows to verify their email
func VerificationLink(baseUrl, token string) string {
	return strings.TrimRight(baseUrl, "/") + VerificationPath + "?token=" + url.QueryEscape(token)
}

type NewSmtpMailerOpts struct {
	BaseUrl     string
	Sender      User
	Smtp        SmtpConfig
	ServiceLogs chan<- common.ServiceLog
}

func NewSmtpMailer(opts NewSmtpMailerOpts) *SmtpMailer {
	serviceLogs := opts.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	return &SmtpMailer{
		baseUrl:     opts.BaseUrl,
		sender:      opts.Sender,
		smtp:        opts.Smtp,
		serviceLogs: serviceLogs,
	}
}

// SmtpMailer delivers verification links over smtp
type SmtpMailer struct {
	baseUrl     string
	sender      User
	smtp        SmtpConfig
	serviceLogs chan<- common.ServiceLog
}

func (m *SmtpMailer) SendEmailVerification(_ context.Context, to User, token string) error {
	var body bytes.Buffer
	name := to.Name
	if name == "" {
		name = to.Address
	}
	if err := verificationTemplate.Execute(&body, map[string]string{
		"Name": name,
		"Link": VerificationLink(m.baseUrl, token),
	}); err != nil {
		return fmt.Errorf("failed to render verification email: %w", err)
	}
	return SendSmtp(SendSmtpOpts{
		To:          []User{to},
		Sender:      m.sender,
		Smtp:        m.smtp,
		Message:     Message{Title: "Verify your email address", Body: body.Bytes()},
		ServiceLogs: m.serviceLogs,
	})
}

func NewLogMailer(baseUrl string, serviceLogs chan<- common.ServiceLog) *LogMailer {
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	return &LogMailer{baseUrl: baseUrl, serviceLogs: serviceLogs}
}

// LogMailer writes verification links to the service log instead of
// sending them, used when no smtp server is configured
type LogMailer struct {
	baseUrl     string
	serviceLogs chan<- common.ServiceLog
}

func (m *LogMailer) SendEmailVerification(_ context.Context, to User, token string) error {
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "email verification for[%s]: %s", to.Address, VerificationLink(m.baseUrl, token))
	return nil
}
