package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	goerrors "github.com/goliatone/go-errors"
)

const otpEmailSubject = "Your OTP Code"

// SMTPNotifier delivers verification codes over implicit TLS SMTP
type SMTPNotifier struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPNotifier returns a Notifier backed by the given SMTP account.
// from defaults to the account username when empty.
func NewSMTPNotifier(host, port, username, password, from string) *SMTPNotifier {
	if from == "" {
		from = username
	}
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send dispatches the OTP email. Transport failures are returned to the
// caller, which is expected to log and swallow them; delivery is
// fire-and-forget from the end user's point of view.
func (n *SMTPNotifier) Send(ctx context.Context, address, code string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", n.from) +
			fmt.Sprintf("To: %s\r\n", address) +
			fmt.Sprintf("Subject: %s\r\n", otpEmailSubject) +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			"Your OTP is: " + code,
	)

	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before OTP dispatch")
	}

	conn, err := tls.Dial("tcp", n.host+":"+n.port, &tls.Config{ServerName: n.host})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to reach SMTP host")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to start SMTP session")
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	if err := client.Auth(auth); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP authentication failed")
	}

	if err := client.Mail(n.from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP MAIL failed")
	}
	if err := client.Rcpt(address); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP RCPT failed")
	}

	w, err := client.Data()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP DATA failed")
	}
	if _, err := w.Write(msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to write OTP email body")
	}
	if err := w.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to finalize OTP email")
	}

	return nil
}

var _ Notifier = (*SMTPNotifier)(nil)

// NoopNotifier logs the destination instead of dispatching email. It is
// the drop-in used by tests and local development.
type NoopNotifier struct {
	Logger Logger
}

func (n NoopNotifier) Send(ctx context.Context, address, code string) error {
	logger := n.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("noop notifier: suppressing OTP email", "address", address)
	return nil
}

var _ Notifier = NoopNotifier{}
