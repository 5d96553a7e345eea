package provider

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"mailgate/internal/config"
	"mailgate/pkg/models"
)

// SMTPBackend opens one TLS session per send. No connection pooling:
// simplicity wins at the expected volume.
type SMTPBackend struct {
	cfg config.SMTPConfig
}

func NewSMTPBackend(cfg config.SMTPConfig) *SMTPBackend {
	return &SMTPBackend{cfg: cfg}
}

func (b *SMTPBackend) Name() string {
	return ProviderSMTP
}

func (b *SMTPBackend) IsStaticallyConfigured() bool {
	return b.cfg.Host != "" && b.cfg.Username != "" && b.cfg.Password != ""
}

func (b *SMTPBackend) Send(ctx context.Context, msg *models.Message) *models.SendResult {
	if !b.IsStaticallyConfigured() {
		return b.failed("SMTP host or credentials not configured", models.ErrorKindConfig)
	}

	from := msg.From
	if from == "" {
		from = b.cfg.Username
	}

	mime, err := buildMIME(msg)
	if err != nil {
		return b.failed(err.Error(), models.ErrorKindSend)
	}

	auth := sasl.NewPlainClient("", b.cfg.Username, b.cfg.Password)

	start := time.Now()
	err = smtp.SendMail(b.cfg.Addr(), auth, from, msg.Recipients(), strings.NewReader(mime))
	if err != nil {
		log.Printf("SMTP send failed via %s (took %v): %v", b.cfg.Addr(), time.Since(start), err)
		return b.failed(fmt.Sprintf("failed to send email via SMTP: %v", err), models.ErrorKindSend)
	}

	log.Printf("Email sent successfully via SMTP to %v (took %v)", msg.To, time.Since(start))

	return &models.SendResult{
		Status:    models.SendStatusSuccess,
		Provider:  ProviderSMTP,
		Timestamp: time.Now().UTC(),
	}
}

func (b *SMTPBackend) failed(errText, kind string) *models.SendResult {
	return &models.SendResult{
		Status:    models.SendStatusFailed,
		Provider:  ProviderSMTP,
		Error:     errText,
		ErrorKind: kind,
		Timestamp: time.Now().UTC(),
	}
}
