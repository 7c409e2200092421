package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/resend/resend-go/v2"
)

// Sender delivers a rendered message. Resend in production.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

type EmailService struct {
	sender    Sender
	templates *template.Template
}

type WelcomeEmailData struct {
	Name       string
	TenantName string
	LoginURL   string
}

type InviteEmailData struct {
	TenantName   string
	Role         string
	Email        string
	TempPassword string
	LoginURL     string
}

type NewLeadData struct {
	TenantName string
	LeadName   string
	LeadPhone  string
	LeadEmail  string
	Source     string
	PageTitle  string
}

type ExpiringClient struct {
	Name     string
	Scadenza time.Time
	DaysLeft int
}

type ExpiringClientsData struct {
	TenantName string
	Clients    []ExpiringClient
}

type LeadDigestRow struct {
	Name         string
	Source       string
	Collaborator string
	Booking      string
}

type LeadDigestData struct {
	TenantName string
	Date       time.Time
	Leads      []LeadDigestRow
}

type PlanEmailData struct {
	TenantName string
	PlanName   string
	ExpiresAt  time.Time
	DaysLeft   int
	IsRenewal  bool
}

type PasswordChangedData struct {
	Email string
}

func NewEmailService(sender Sender) (*EmailService, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}
	return &EmailService{sender: sender, templates: templates}, nil
}

func (s *EmailService) render(templateName string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return "", fmt.Errorf("template %s: %w", templateName, err)
	}
	return body.String(), nil
}

func (s *EmailService) sendTemplateEmail(to []string, subject, templateName string, data interface{}) error {
	if len(to) == 0 {
		return nil
	}
	html, err := s.render(templateName, data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.sender.Send(ctx, Message{To: to, Subject: subject, HTML: html}); err != nil {
		return err
	}
	log.Printf("Sent %q to %d recipient(s)", subject, len(to))
	return nil
}

func (s *EmailService) SendWelcomeEmail(to, name, tenantName, loginURL string) error {
	data := WelcomeEmailData{Name: name, TenantName: tenantName, LoginURL: loginURL}
	return s.sendTemplateEmail([]string{to}, "Benvenuto in PT Manager Pro! 🎉", "welcome.html", data)
}

func (s *EmailService) SendInviteEmail(data InviteEmailData) error {
	return s.sendTemplateEmail([]string{data.Email},
		fmt.Sprintf("%s ti ha invitato su PT Manager Pro", data.TenantName), "invite.html", data)
}

func (s *EmailService) SendNewLeadEmail(to []string, data NewLeadData) error {
	return s.sendTemplateEmail(to, fmt.Sprintf("Nuovo lead: %s 📋", data.LeadName), "new_lead.html", data)
}

func (s *EmailService) SendExpiringClientsEmail(to []string, data ExpiringClientsData) error {
	if len(data.Clients) == 0 {
		return nil
	}
	subject := fmt.Sprintf("%d abbonamenti in scadenza ⏳", len(data.Clients))
	return s.sendTemplateEmail(to, subject, "expiring_clients.html", data)
}

func (s *EmailService) SendLeadDigest(to []string, data LeadDigestData) error {
	if len(data.Leads) == 0 {
		return nil
	}
	subject := fmt.Sprintf("Riepilogo lead del %s 📊", data.Date.Format("02/01/2006"))
	return s.sendTemplateEmail(to, subject, "lead_digest.html", data)
}

func (s *EmailService) SendPlanStartedEmail(to string, data PlanEmailData) error {
	subject := "Il tuo piano PT Manager Pro è attivo 🎉"
	if data.IsRenewal {
		subject = "Il tuo piano PT Manager Pro è stato rinnovato 🔄"
	}
	return s.sendTemplateEmail([]string{to}, subject, "plan_started.html", data)
}

func (s *EmailService) SendPlanCancelledEmail(to string, data PlanEmailData) error {
	return s.sendTemplateEmail([]string{to}, "Il tuo piano è stato annullato", "plan_cancelled.html", data)
}

func (s *EmailService) SendPlanExpiryWarning(to string, data PlanEmailData) error {
	return s.sendTemplateEmail([]string{to},
		fmt.Sprintf("Il tuo piano scade tra %d giorni ⚠️", data.DaysLeft), "plan_expiry_warning.html", data)
}

func (s *EmailService) SendPasswordChangedEmail(to string) error {
	return s.sendTemplateEmail([]string{to}, "La tua password è stata modificata 🔐", "password_changed.html",
		PasswordChangedData{Email: to})
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (r *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := r.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	log.Printf("Resend accepted message %s", sent.Id)
	return nil
}

// LogSender only logs. Used when no Resend key is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	log.Printf("Email (not sent, no provider): to=%v subject=%q", msg.To, msg.Subject)
	return nil
}
