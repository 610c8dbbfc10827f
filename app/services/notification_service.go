// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailMessage is one outgoing email with an optional file attachment.
type EmailMessage struct {
	To             string
	Subject        string
	Body           string
	HTMLBody       string
	AttachmentPath string
}

// NotificationService handles sending invoice emails
type NotificationService interface {
	SendEmail(msg EmailMessage) error
}

// EmailProvider interface for email transport
type EmailProvider interface {
	SendEmail(msg EmailMessage) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider) NotificationService {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
	}
}

// SendEmail sends an email to the specified address
func (s *NotificationServiceImpl) SendEmail(msg EmailMessage) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	// Basic recipient validation
	if len(msg.To) == 0 || !strings.Contains(msg.To, "@") {
		return fmt.Errorf("invalid email address: %s", msg.To)
	}

	return s.emailProvider.SendEmail(msg)
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(msg EmailMessage) error {
	log.Printf("Email sent to %s [%s] (attachment: %s)", msg.To, msg.Subject, msg.AttachmentPath)
	return nil
}

// SMTPEmailProvider delivers mail through an SMTP relay
type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	useTLS    bool
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string, useTLS bool) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
		useTLS:    useTLS,
	}
}

func (p *SMTPEmailProvider) SendEmail(msg EmailMessage) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.fromEmail, p.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTMLBody != "" {
		m.SetBody("text/html", msg.HTMLBody)
		if msg.Body != "" {
			m.AddAlternative("text/plain", msg.Body)
		}
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	if msg.AttachmentPath != "" {
		m.Attach(msg.AttachmentPath)
	}

	d := gomail.NewDialer(p.host, p.port, p.username, p.password)
	d.SSL = p.useTLS

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	return nil
}
