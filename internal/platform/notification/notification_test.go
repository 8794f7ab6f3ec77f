package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type emailCall struct {
	To      string
	Subject string
	Body    string
}

type mockEmailSender struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

func (m *mockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, emailCall{To: to, Subject: subject, Body: body})
	return m.err
}

func reminderData() map[string]string {
	return map[string]string{
		"patient_name": "Jane Doe",
		"doctor_name":  "Dr. Smith",
		"clinic_name":  "Downtown Clinic",
		"date":         "2030-01-07",
		"time":         "10:00",
	}
}

func TestRender_Reminder(t *testing.T) {
	e := NewTemplateEngine()
	subject, body, err := e.Render(TemplateAppointmentReminder, reminderData())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Reminder: appointment on 2030-01-07 at 10:00" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "Dr. Smith at Downtown Clinic") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestRender_MissingKeysLeftAsIs(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateAppointmentCancelled, map[string]string{"patient_name": "Jane"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "{{date}}") {
		t.Errorf("expected untouched placeholder, got %q", body)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRegisterTemplate(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "custom", Subject: "Hi {{name}}", Body: "b"})
	subject, _, err := e.Render("custom", map[string]string{"name": "Ann"})
	if err != nil || subject != "Hi Ann" {
		t.Errorf("got %q, %v", subject, err)
	}
}

func TestNotifier_Sends(t *testing.T) {
	sender := &mockEmailSender{}
	n := NewNotifier(sender, NewTemplateEngine())

	out, err := n.SendFromTemplate(context.Background(), TemplateAppointmentBooked, reminderData(), "jane@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != "sent" || out.SentAt == nil {
		t.Errorf("expected sent status, got %+v", out)
	}
	if len(sender.calls) != 1 || sender.calls[0].To != "jane@example.com" {
		t.Errorf("unexpected calls: %+v", sender.calls)
	}
}

func TestNotifier_RecordsFailure(t *testing.T) {
	sender := &mockEmailSender{err: errors.New("smtp down")}
	n := NewNotifier(sender, NewTemplateEngine())

	out, err := n.SendFromTemplate(context.Background(), TemplateAppointmentReminder, reminderData(), "jane@example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if out == nil || out.Status != "failed" || out.Error != "smtp down" {
		t.Errorf("unexpected notification: %+v", out)
	}
}

func TestNotifier_RequiresRecipient(t *testing.T) {
	n := NewNotifier(&mockEmailSender{}, NewTemplateEngine())
	if _, err := n.SendFromTemplate(context.Background(), TemplateAppointmentReminder, nil, ""); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestLogEmailSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogEmailSender(zerolog.New(&buf))
	if err := s.SendEmail(context.Background(), "a@b.c", "subj", "body"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"to":"a@b.c"`) {
		t.Errorf("unexpected log %s", buf.String())
	}
}
