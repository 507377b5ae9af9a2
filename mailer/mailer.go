package mailer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/mbeisser1/homelab/config"
	"github.com/mbeisser1/homelab/logger"
)

// Attachment is an extra file carried by a report mail
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a report mail, HTML body with optional attachments
type Message struct {
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Build renders the full MIME message to w
func (m *Message) Build(w io.Writer, cfg config.MailConfig) error {
	var header mail.Header
	header.SetDate(time.Now())
	header.SetSubject(m.Subject)

	from := []*mail.Address{{Address: cfg.From}}
	header.SetAddressList("From", from)

	var to []*mail.Address
	for _, rcpt := range cfg.To {
		to = append(to, &mail.Address{Address: rcpt})
	}
	header.SetAddressList("To", to)

	mw, err := mail.CreateWriter(w, header)
	if err != nil {
		return fmt.Errorf("creating mail writer: %v", err)
	}

	// inline html body
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %v", err)
	}
	var bodyHeader mail.InlineHeader
	bodyHeader.Set("Content-Type", "text/html; charset=utf-8")
	bodyWriter, err := iw.CreatePart(bodyHeader)
	if err != nil {
		return fmt.Errorf("creating html part: %v", err)
	}
	if _, err := io.WriteString(bodyWriter, m.HTMLBody); err != nil {
		return fmt.Errorf("writing html body: %v", err)
	}
	bodyWriter.Close()
	iw.Close()

	// attachments (raw smartctl output, backup step logs, etc)
	for _, attachment := range m.Attachments {
		var attachHeader mail.AttachmentHeader
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		attachHeader.Set("Content-Type", contentType)
		attachHeader.SetFilename(attachment.Filename)
		aw, err := mw.CreateAttachment(attachHeader)
		if err != nil {
			return fmt.Errorf("creating attachment %s: %v", attachment.Filename, err)
		}
		if _, err := aw.Write(attachment.Data); err != nil {
			aw.Close()
			return fmt.Errorf("writing attachment %s: %v", attachment.Filename, err)
		}
		aw.Close()
	}

	return mw.Close()
}

// Send submits the message over SMTP using the configured submission host
func Send(cfg config.MailConfig, m *Message) error {
	if cfg.SMTPHost == "" {
		logger.LogxWithFields("warn", "Mail disabled (no smtp_host configured), skipping send", map[string]interface{}{
			"package": "mailer",
			"subject": m.Subject,
		})
		return nil
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return fmt.Errorf("mail config requires both from and to addresses")
	}

	var buf bytes.Buffer
	if err := m.Build(&buf, cfg); err != nil {
		return fmt.Errorf("building mail: %v", err)
	}

	var auth sasl.Client
	if cfg.Username != "" {
		auth = sasl.NewPlainClient("", cfg.Username, cfg.Password)
	}

	if err := smtp.SendMail(cfg.SMTPHost, auth, cfg.From, cfg.To, &buf); err != nil {
		return fmt.Errorf("smtp submission to %s failed: %v", cfg.SMTPHost, err)
	}

	logger.LogxWithFields("info", "Report mail submitted", map[string]interface{}{
		"package": "mailer",
		"subject": m.Subject,
		"to":      strings.Join(cfg.To, ","),
	})
	return nil
}
