package scheduling

import (
	"context"
	"time"

	"github.com/medbook/medbook/internal/domain/slots"
	"github.com/medbook/medbook/internal/platform/notification"
)

// SendReminders notifies patients whose appointment falls on the day that
// starts lead from now, then publishes appointment.reminder for each. A
// failed send is logged and retried on the next pass. It returns the number
// of reminders sent.
func (s *Service) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	from, to := slots.DayWindow(s.now().In(s.loc).Add(lead))
	due, err := s.appts.ListDueForReminder(ctx, from.Format(slots.DateLayout), to.Format(slots.DateLayout))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		a := d.Appointment
		if s.notifier != nil {
			if _, err := s.notifier.SendFromTemplate(ctx, notification.TemplateAppointmentReminder, templateData(d), d.PatientEmail); err != nil {
				s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder failed")
				continue
			}
		}
		if err := s.appts.MarkReminded(ctx, a.ID); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("mark reminded")
			continue
		}
		s.publishType(ctx, "appointment.reminder", a)
		sent++
	}
	s.logger.Info().Int("due", len(due)).Int("sent", sent).Str("day", from.Format(slots.DateLayout)).Msg("reminder pass finished")
	return sent, nil
}

// Reminders runs SendReminders once at start and then on every tick until
// ctx is cancelled.
type Reminders struct {
	svc      *Service
	interval time.Duration
	lead     time.Duration
}

func NewReminders(svc *Service, interval, lead time.Duration) *Reminders {
	return &Reminders{svc: svc, interval: interval, lead: lead}
}

func (r *Reminders) Run(ctx context.Context) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.svc.logger.Info().Msg("reminder job stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Reminders) runOnce(ctx context.Context) {
	if _, err := r.svc.SendReminders(ctx, r.lead); err != nil && ctx.Err() == nil {
		r.svc.logger.Error().Err(err).Msg("reminder pass failed")
	}
}
