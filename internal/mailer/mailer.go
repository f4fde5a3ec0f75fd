// Package mailer sends templated account emails. Delivery is an external
// collaborator: the services decide that an email-worthy event happened and
// with what parameters; this package renders and ships it.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
)

// Template kinds.
const (
	TemplateConfirmSignup  = "confirm-signup"
	TemplateResetCode      = "reset-code"
	TemplateResetSucceeded = "reset-succeeded"
)

// Mailer delivers one templated message to one recipient address.
type Mailer interface {
	Send(ctx context.Context, to, template string, params map[string]string) error
}

// SMTPMailer is the production Mailer over a plain-auth SMTP relay.
type SMTPMailer struct {
	host string
	port string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host, port, from, password string) *SMTPMailer {
	return &SMTPMailer{
		host: host,
		port: port,
		from: from,
		auth: smtp.PlainAuth("", from, password, host),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, template string, params map[string]string) error {
	subject, body, err := render(template, params)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s", m.from, to, subject, body)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(m.host+":"+m.port, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send %s email to %s: %w", template, to, err)
	}
	return nil
}

func render(template string, params map[string]string) (subject, body string, err error) {
	switch template {
	case TemplateConfirmSignup:
		subject = "Confirm your email address"
		body = fmt.Sprintf(
			"Hi %s,\n\nWelcome! Please confirm your email address by opening the link below:\n\n%s\n\nIf you did not sign up, ignore this message.\n",
			params["username"], params["confirm_url"])
	case TemplateResetCode:
		subject = "Your password reset code"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour password reset code is: %s\n\nThe code expires in 10 minutes. If you did not request a reset, ignore this message.\n",
			params["username"], params["code"])
	case TemplateResetSucceeded:
		subject = "Your password was changed"
		body = fmt.Sprintf(
			"Hi %s,\n\nYour password was changed successfully. If this was not you, contact support immediately.\n",
			params["username"])
	default:
		return "", "", fmt.Errorf("unknown email template %q", template)
	}
	return subject, body, nil
}
