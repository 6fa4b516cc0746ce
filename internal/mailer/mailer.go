// Package mailer delivers composed notifications through an ordered list of
// SMTP relay hosts, stopping at the first host that accepts the message.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"packetboat/internal/collector"
	"packetboat/pkg/logging"
)

// ErrAllHostsFailed signals delivery exhaustion: every configured relay
// host raised a transport error for one notification. This is fatal for the
// run; a notification the pipeline intended to send is never dropped
// silently.
var ErrAllHostsFailed = errors.New("all SMTP hosts failed")

// SMTP connection modes.
const (
	ModeStartTLS = "starttls"
	ModeSSL      = "ssl"
	ModePlain    = "plain"
)

// Message is one composed notification ready for delivery. Recipients ride
// on the envelope only (blind copy); the visible To header carries the
// sender address, as the reports are BCC-distributed.
type Message struct {
	Subject     string
	Body        string
	Recipients  []string
	Attachments []collector.Attachment
}

// DeliveryResult reports which host accepted the message, or every host's
// error text when none did.
type DeliveryResult struct {
	Success  bool
	HostUsed string
	Errors   []string
}

type Config struct {
	Hosts []string // ordered; tried first to last, never reordered or retried
	Port  int
	User  string
	Pass  string
	Mode  string // starttls | ssl | plain
	From  string
}

// Mailer sends messages with host failover.
type Mailer struct {
	config Config
	logger logging.Logger

	// sendViaHost is swapped in tests to avoid real SMTP dials.
	sendViaHost func(ctx context.Context, host string, payload []byte, recipients []string) error
}

func New(config Config, logger logging.Logger) *Mailer {
	m := &Mailer{
		config: config,
		logger: logger,
	}
	m.sendViaHost = m.smtpSend
	return m
}

// Deliver attempts the message against each configured host in order,
// returning on the first success. Unconfigured (empty) entries are skipped.
// When every host fails, the per-host errors are aggregated into one
// ErrAllHostsFailed.
func (m *Mailer) Deliver(ctx context.Context, msg Message) (DeliveryResult, error) {
	payload := m.buildPayload(msg)
	result := DeliveryResult{}

	for _, host := range m.config.Hosts {
		if host == "" {
			continue
		}
		if err := m.sendViaHost(ctx, host, payload, msg.Recipients); err != nil {
			errText := fmt.Sprintf("%s failed: %v", host, err)
			m.logger.WithField("host", host).WithError(err).Error("SMTP delivery attempt failed")
			result.Errors = append(result.Errors, errText)
			continue
		}
		result.Success = true
		result.HostUsed = host
		m.logger.WithFields(logging.Fields{
			"host":       host,
			"recipients": len(msg.Recipients),
			"subject":    msg.Subject,
		}).Info("Email sent")
		return result, nil
	}

	return result, fmt.Errorf("%w: %s", ErrAllHostsFailed, strings.Join(result.Errors, " | "))
}

// buildPayload assembles the RFC 5322 message: plain text when there are no
// attachments, multipart/mixed with base64 attachment parts otherwise.
func (m *Mailer) buildPayload(msg Message) []byte {
	var buf bytes.Buffer

	from := sanitizeHeader(m.config.From)
	subject := sanitizeHeader(msg.Subject)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", from)
	fmt.Fprintf(&buf, "Reply-To: %s\r\n", from)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes()
	}

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	part, _ := writer.CreatePart(textHeader)
	_, _ = part.Write([]byte(msg.Body))

	for _, att := range msg.Attachments {
		attHeader := textproto.MIMEHeader{}
		attHeader.Set("Content-Type", contentTypeFor(att.Filename))
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
		part, _ := writer.CreatePart(attHeader)
		writeBase64Folded(part, att.Content)
	}

	_ = writer.Close()
	return buf.Bytes()
}

// base64LineLength folds encoded attachment bodies at 76 columns; SMTP
// servers reject lines longer than 998 bytes.
const base64LineLength = 76

func writeBase64Folded(w io.Writer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > base64LineLength {
		_, _ = io.WriteString(w, encoded[:base64LineLength])
		_, _ = io.WriteString(w, "\r\n")
		encoded = encoded[base64LineLength:]
	}
	_, _ = io.WriteString(w, encoded)
}

func contentTypeFor(filename string) string {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}

// smtpSend performs one full send against a single host. It never retries.
func (m *Mailer) smtpSend(ctx context.Context, host string, payload []byte, recipients []string) error {
	addr := fmt.Sprintf("%s:%d", host, m.config.Port)

	var client *smtp.Client
	var err error
	if m.config.Mode == ModeSSL {
		conn, dialErr := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
		if dialErr != nil {
			return fmt.Errorf("tls dial: %w", dialErr)
		}
		client, err = smtp.NewClient(conn, host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		client, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial smtp: %w", err)
		}
		if m.config.Mode == ModeStartTLS {
			if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				_ = client.Close()
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	defer func() { _ = client.Close() }()

	if m.config.User != "" {
		auth := smtp.PlainAuth("", m.config.User, m.config.Pass, host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(m.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range append([]string{m.config.From}, recipients...) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return client.Quit()
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
