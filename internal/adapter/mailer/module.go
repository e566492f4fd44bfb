package mailer

import (
	"go.uber.org/fx"

	"github.com/tecelana/fichas/internal/config"
)

// Module exposes the mail transport to the fx graph.
var Module = fx.Provide(newMailer)

func newMailer(cfg *config.Config) (Mailer, error) {
	return New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
}
