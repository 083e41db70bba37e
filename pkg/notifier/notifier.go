// Package notifier delivers confirmation codes to users.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

var ErrDelivery = errors.New("notification not delivered")

// Notifier sends body to the address to. It reports failure, it does not retry.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

// New picks SMTP when a host is configured and the log notifier otherwise.
func New(config utils.EmailConfig, log *zap.Logger) Notifier {
	if config.Host == "" {
		log.Warn("SMTP_HOST not set, confirmation codes will only be logged at debug level")
		return NewLogNotifier(log)
	}
	return NewSMTPNotifier(config, log)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	log  *zap.Logger
}

func NewSMTPNotifier(config utils.EmailConfig, log *zap.Logger) Notifier {
	var auth smtp.Auth
	if config.User != "" {
		auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	return &smtpNotifier{
		addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		from: config.From,
		auth: auth,
		send: smtp.SendMail,
		log:  log.With(zap.String("notifier", "smtp")),
	}
}

func (n *smtpNotifier) Notify(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("%w: header contains line break", ErrDelivery)
	}

	msg := buildMessage(n.from, to, subject, body)

	// smtp.SendMail has no context support; run it aside and honour cancellation
	done := make(chan error, 1)
	go func() {
		done <- n.send(n.addr, n.auth, n.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			n.log.Error("Failed to send email", zap.Error(err), zap.String("to", to))
			return fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		n.log.Info("Email sent", zap.String("to", to))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrDelivery, ctx.Err())
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier writes messages to the debug log. For development setups without SMTP.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *logNotifier) Notify(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	n.log.Debug("Notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
