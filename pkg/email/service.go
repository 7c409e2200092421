package email

import (
	"ptmanager_backend/pkg/config"
)

var GlobalEmailService *EmailService

// InitEmailService wires Resend when an API key is configured and falls
// back to logging otherwise.
func InitEmailService(cfg config.EmailConfig) error {
	var sender Sender = LogSender{}
	if cfg.ResendAPIKey != "" {
		sender = NewResendSender(cfg.ResendAPIKey, cfg.From)
	}

	service, err := NewEmailService(sender)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
