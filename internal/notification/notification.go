package notification

import (
	"context"
	"log/slog"
	"net/url"
)

// KindEmailVerification carries an email verification token in Body.
const KindEmailVerification = "email_verification"

// Message is one outbound mail.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// EmailVerification builds the mail that confirms ownership of email.
func EmailVerification(email, token string) Message {
	return Message{Kind: KindEmailVerification, Destination: email, Body: token}
}

// Notifier delivers mails.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier stands in for a mail relay during development. Verification
// mails are logged as the link the user would click.
type LoggerNotifier struct {
	logger  *slog.Logger
	linkURL string
}

// NewLoggerNotifier builds a notifier; linkURL is the portal page that
// confirms a verification token, for example http://localhost:8080/verify-email.
func NewLoggerNotifier(logger *slog.Logger, linkURL string) *LoggerNotifier {
	return &LoggerNotifier{logger: logger, linkURL: linkURL}
}

// Send logs the message.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	if message.Kind == KindEmailVerification && n.linkURL != "" {
		n.logger.Info("verification mail",
			slog.String("to", message.Destination),
			slog.String("link", n.linkURL+"?token="+url.QueryEscape(message.Body)),
		)
		return nil
	}
	n.logger.Info("mail", slog.String("kind", message.Kind), slog.String("to", message.Destination), slog.String("body", message.Body))
	return nil
}
