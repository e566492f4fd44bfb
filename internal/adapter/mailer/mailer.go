package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Mailer delivers purchase notifications. Failure is non-fatal to callers;
// fulfilled access stays reachable through the order page regardless.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound mail.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// New creates an SMTP mailer. Username is optional for relays without auth.
func New(host string, port int, username, password, from string) (*SMTPMailer, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp host must be provided")
	}
	if from == "" {
		return nil, fmt.Errorf("mail sender address must be provided")
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}

	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers one message.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMsg()
	if err := mail.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := mail.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	mail.Subject(msg.Subject)
	mail.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		mail.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)
	}

	if err := m.client.DialAndSendWithContext(ctx, mail); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
