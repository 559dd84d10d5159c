package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/agenthive/agenthive/internal/config"
	"github.com/agenthive/agenthive/pkg/decode"
)

// MailSpec is the typed configuration for one send_mail invocation.
type MailSpec struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the required fields.
func (s MailSpec) Validate() error {
	if s.To == "" {
		return fmt.Errorf("%w: to is required", ErrInvalidSpec)
	}
	if s.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidSpec)
	}
	return nil
}

// mailTool sends mail through the configured SMTP relay. The send function
// is a seam so tests never touch the network.
type mailTool struct {
	cfg    config.MailConfig
	logger *slog.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func newMailTool(cfg config.MailConfig, logger *slog.Logger) *mailTool {
	return &mailTool{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

func (t *mailTool) Name() string { return MailToolName }

func (t *mailTool) Description() string {
	return "Send an email to a recipient with a subject and body."
}

func (t *mailTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string", "description": "Recipient address"},
			"subject": map[string]any{"type": "string", "description": "Subject line"},
			"body":    map[string]any{"type": "string", "description": "Message body"},
		},
		"required": []string{"to", "subject"},
	}
}

func (t *mailTool) Call(ctx context.Context, args map[string]any) (string, error) {
	spec, err := decode.FromMap[MailSpec](args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return "", err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		t.cfg.From, spec.To, spec.Subject, spec.Body)

	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	err = t.send(t.cfg.Addr(), auth, t.cfg.From, []string{spec.To}, []byte(msg))
	if err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}

	t.logger.Info("mail sent", "to", spec.To, "subject", spec.Subject)
	return fmt.Sprintf("mail sent to %s", spec.To), nil
}
