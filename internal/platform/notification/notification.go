// Package notification renders patient-facing messages from templates and
// hands them to an email sender.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Template IDs.
const (
	TemplateAppointmentReminder  = "appointment-reminder"
	TemplateAppointmentBooked    = "appointment-booked"
	TemplateAppointmentCancelled = "appointment-cancelled"
)

type Notification struct {
	ID         string            `json:"id"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	TemplateID string            `json:"templateId,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	SentAt     *time.Time        `json:"sentAt,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Template defines a reusable notification template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{
			ID:      TemplateAppointmentReminder,
			Subject: "Reminder: appointment on {{date}} at {{time}}",
			Body:    "Dear {{patient_name}}, this is a reminder of your appointment on {{date}} at {{time}} with {{doctor_name}} at {{clinic_name}}.",
		},
		{
			ID:      TemplateAppointmentBooked,
			Subject: "Appointment booked for {{date}} at {{time}}",
			Body:    "Dear {{patient_name}}, your appointment with {{doctor_name}} at {{clinic_name}} on {{date}} at {{time}} is booked.",
		},
		{
			ID:      TemplateAppointmentCancelled,
			Subject: "Appointment on {{date}} cancelled",
			Body:    "Dear {{patient_name}}, your appointment on {{date}} at {{time}} with {{doctor_name}} has been cancelled.",
		},
	} {
		e.templates[t.ID] = t
	}
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render performs {{key}} replacement. Keys absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// LogEmailSender writes outgoing mail to the log. It stands in for an SMTP
// relay in development and in deployments without one.
type LogEmailSender struct {
	logger zerolog.Logger
}

func NewLogEmailSender(logger zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Int("body_len", len(body)).Msg("email sent")
	return nil
}

// Notifier renders templates and delivers them by email.
type Notifier struct {
	email     EmailSender
	templates *TemplateEngine
}

func NewNotifier(email EmailSender, tpl *TemplateEngine) *Notifier {
	return &Notifier{email: email, templates: tpl}
}

// SendFromTemplate renders the template and sends it. The returned
// notification records the outcome even when sending fails.
func (n *Notifier) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	if recipient == "" {
		return nil, fmt.Errorf("template %s: empty recipient", templateID)
	}
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	out := &Notification{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Data:       data,
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	}

	if err := n.email.SendEmail(ctx, recipient, subject, body); err != nil {
		out.Status = "failed"
		out.Error = err.Error()
		return out, fmt.Errorf("send %s to %s: %w", templateID, recipient, err)
	}
	sentAt := time.Now().UTC()
	out.Status = "sent"
	out.SentAt = &sentAt
	return out, nil
}
