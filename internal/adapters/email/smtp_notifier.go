// Package email delivers price alerts over authenticated SMTP.
package email

import (
	"context"
	"fmt"
	"path/filepath"

	gomail "gopkg.in/gomail.v2"
)

// Config carries the mail transport settings. Port 587 gives the STARTTLS
// submission flow; authentication is plain login with Username/Password.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// SMTPNotifier implements Notifier over a STARTTLS SMTP session. Each send
// dials a fresh session, delivers one message and disconnects; there is no
// retry beyond what the transport guarantees.
type SMTPNotifier struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTPNotifier creates a notifier for the given transport configuration.
func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send composes and delivers one alert email with the chart image embedded
// inline via its content ID. The send blocks until the session completes.
func (n *SMTPNotifier) Send(ctx context.Context, productTitle, imagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := n.buildMessage(productTitle, imagePath)
	if err := n.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send alert for %q: %w", productTitle, err)
	}
	return nil
}

// buildMessage assembles the multipart message: HTML body referencing the
// embedded chart by content ID, subject "Price Alert: <title>".
func (n *SMTPNotifier) buildMessage(productTitle, imagePath string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.cfg.From)
	msg.SetHeader("To", n.cfg.To)
	msg.SetHeader("Subject", "Price Alert: "+productTitle)

	// gomail assigns the attachment's base filename as its content ID.
	cid := filepath.Base(imagePath)
	msg.SetBody("text/html", fmt.Sprintf(`<center><br><img src="cid:%s"><br></center>`, cid))
	msg.Embed(imagePath)

	return msg
}
