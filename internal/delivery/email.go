package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"
)

// Mailer sends a digest to a Kindle address over SMTP. Amazon converts an
// attached EPUB automatically when the message arrives from an approved
// sender.
type Mailer struct {
	host        string
	port        int
	user        string
	password    string
	sender      string
	kindleEmail string
}

// NewMailer builds a Mailer. The password is read from the named
// environment variable so it never lives in the config file.
func NewMailer(host string, port int, user, passwordEnv, sender, kindleEmail string) *Mailer {
	return &Mailer{
		host:        host,
		port:        port,
		user:        user,
		password:    os.Getenv(passwordEnv),
		sender:      sender,
		kindleEmail: kindleEmail,
	}
}

// Configured reports whether everything needed to send is present.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.port > 0 && m.user != "" && m.password != "" &&
		m.sender != "" && m.kindleEmail != ""
}

// Send mails the digest at epubPath to the configured Kindle address.
func (m *Mailer) Send(epubPath string, date time.Time) error {
	if !m.Configured() {
		return fmt.Errorf("email delivery is not fully configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(m.kindleEmail); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("Morning Byte %s", date.Format("2006-01-02")))
	msg.SetBodyString(mail.TypeTextPlain, "Your daily digest is attached.")
	msg.AttachFile(epubPath, mail.WithFileName(filepath.Base(epubPath)))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.user),
		mail.WithPassword(m.password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending digest to %s: %w", m.kindleEmail, err)
	}
	return nil
}
