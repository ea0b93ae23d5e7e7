// Package mailer sends contact invitations by e-mail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/Bharath-S-J/Intent-Chat/config"
)

var ErrNotConfigured = errors.New("mailer is not configured")

const inviteSubject = "Join our Chat App"

var inviteTemplate = template.Must(template.New("invite").Parse(`<h3>You've been invited to join the chat app by <strong>{{.Inviter}}</strong></h3>
<p>Click the link below to join and automatically become contacts with the inviter:</p>
<a href="{{.Link}}">{{.Link}}</a>
`))

// Sender delivers built messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPMailer struct {
	cfg    config.MailConfig
	sender Sender
	logger *slog.Logger
}

func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// WithSender replaces the SMTP transport.
func (m *SMTPMailer) WithSender(s Sender) *SMTPMailer {
	m.sender = s
	return m
}

// SendInvite mails to an invitation carrying link, signed with inviterName.
func (m *SMTPMailer) SendInvite(ctx context.Context, to, link, inviterName string) error {
	if m.cfg.Host == "" || m.cfg.From == "" {
		return ErrNotConfigured
	}

	msg, err := BuildInvite(m.cfg.From, to, link, inviterName)
	if err != nil {
		return err
	}

	sender, err := m.transport()
	if err != nil {
		return err
	}
	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("Failed to send invite email", "error", err, "to", to)
		return fmt.Errorf("send invite: %w", err)
	}

	m.logger.Info("Invite email sent", "to", to)
	return nil
}

func (m *SMTPMailer) transport() (Sender, error) {
	if m.sender != nil {
		return m.sender, nil
	}

	opts := []mail.Option{mail.WithPort(m.cfg.Port)}
	if m.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// BuildInvite renders the HTML invitation message.
func BuildInvite(from, to, link, inviterName string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(inviteSubject)
	msg.SetDate()
	msg.SetMessageID()

	data := struct{ Inviter, Link string }{inviterName, link}
	if err := msg.SetBodyHTMLTemplate(inviteTemplate, data); err != nil {
		return nil, fmt.Errorf("render invite: %w", err)
	}
	return msg, nil
}
