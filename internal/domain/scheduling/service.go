package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/clinic"
	"github.com/medbook/medbook/internal/domain/slots"
	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/events"
	"github.com/medbook/medbook/internal/platform/notification"
)

// Directory resolves the clinics and doctors appointments refer to.
// *clinic.Service satisfies it.
type Directory interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*clinic.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*clinic.Doctor, error)
	ListDoctors(ctx context.Context, clinicID uuid.UUID, availableOnly bool) ([]*clinic.Doctor, error)
}

// Notifier delivers templated messages to patients.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	appts    AppointmentRepository
	dir      Directory
	events   events.Publisher
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	inTx     TxRunner
	logger   zerolog.Logger
}

// TxRunner runs fn inside a storage transaction. db.WithTx bound to a pool
// satisfies it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func direct(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// NewService wires the booking service. Calendar days are interpreted in loc.
func NewService(appts AppointmentRepository, dir Directory, pub events.Publisher, notifier Notifier, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		appts:    appts,
		dir:      dir,
		events:   pub,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		inTx:     direct,
		logger:   logger.With().Str("component", "scheduling").Logger(),
	}
}

// UseTx makes admission run its slot check and insert in one transaction.
func (s *Service) UseTx(run TxRunner) {
	if run != nil {
		s.inTx = run
	}
}

// -- Availability --

// AvailableSlots lists, per doctor, the slots of the given day and whether
// each can still be booked. A doctor that does not work that weekday has an
// empty slot list. With doctorID set, only that doctor is considered; a doctor
// from another clinic or not accepting patients yields no entries. An inactive
// clinic takes no bookings and lists no doctors.
func (s *Service) AvailableSlots(ctx context.Context, clinicID uuid.UUID, date string, doctorID *uuid.UUID) (*Availability, error) {
	if strings.TrimSpace(date) == "" {
		return nil, apperr.Validation("date is required")
	}
	day, err := slots.ParseDate(strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	c, err := s.dir.GetClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	var doctors []*clinic.Doctor
	if c.IsActive {
		doctors, err = s.candidateDoctors(ctx, clinicID, doctorID)
		if err != nil {
			return nil, err
		}
	}

	candidates := make(map[uuid.UUID][]string, len(doctors))
	var working []uuid.UUID
	for _, d := range doctors {
		sched := d.Schedule.WithDefaults()
		if labels := sched.SlotsFor(day); len(labels) > 0 {
			candidates[d.ID] = labels
			working = append(working, d.ID)
		}
	}

	booked := make(map[uuid.UUID]map[string]bool, len(working))
	if len(working) > 0 {
		from, to := slots.DayWindow(day)
		held, err := s.appts.ListActiveInWindow(ctx, working, from.Format(slots.DateLayout), to.Format(slots.DateLayout))
		if err != nil {
			return nil, err
		}
		for _, a := range held {
			if booked[a.DoctorID] == nil {
				booked[a.DoctorID] = make(map[string]bool)
			}
			booked[a.DoctorID][a.TimeSlot] = true
		}
	}

	out := &Availability{
		Date:           day.Format(slots.DateLayout),
		Clinic:         ClinicRef{ID: c.ID, Name: c.Name},
		AvailableSlots: make([]DoctorSlots, 0, len(doctors)),
	}
	for _, d := range doctors {
		out.AvailableSlots = append(out.AvailableSlots, DoctorSlots{
			Doctor: d.Summary(),
			Slots:  slots.Annotate(candidates[d.ID], booked[d.ID]),
		})
	}
	return out, nil
}

func (s *Service) candidateDoctors(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) ([]*clinic.Doctor, error) {
	if doctorID == nil {
		return s.dir.ListDoctors(ctx, clinicID, true)
	}
	d, err := s.dir.GetDoctor(ctx, *doctorID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.ClinicID != clinicID || !d.IsAvailable {
		return nil, nil
	}
	return []*clinic.Doctor{d}, nil
}

// -- Booking --

// CreateBooking admits a booking for patientID. The active-slot uniqueness is
// enforced by the ledger on insert; the earlier SlotTaken check only gives the
// common case a cheaper rejection.
func (s *Service) CreateBooking(ctx context.Context, patientID uuid.UUID, in BookingInput) (*Appointment, error) {
	if in.ClinicID == uuid.Nil {
		return nil, apperr.Validation("clinicId is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctorId is required")
	}
	day, err := s.bookingDay(in.AppointmentDate)
	if err != nil {
		return nil, err
	}
	if _, err := slots.ParseClock(in.TimeSlot); err != nil {
		return nil, apperr.Validation("timeSlot must be HH:MM")
	}
	apptType := in.Type
	if apptType == "" {
		apptType = TypeConsultation
	}
	if !validTypes[apptType] {
		return nil, apperr.Validation("invalid appointment type %q", apptType)
	}
	today, _ := slots.DayWindow(s.now().In(s.loc))
	if day.Before(today) {
		return nil, apperr.Validation("appointmentDate must not be in the past")
	}

	c, err := s.dir.GetClinic(ctx, in.ClinicID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, apperr.Validation("clinic is not accepting appointments")
	}
	d, err := s.dir.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if d.ClinicID != c.ID {
		return nil, apperr.Validation("doctor does not practise at this clinic")
	}
	if !d.IsAvailable {
		return nil, apperr.Validation("doctor is not accepting appointments")
	}
	date := day.Format(slots.DateLayout)
	if !d.Schedule.WithDefaults().Offers(day, in.TimeSlot) {
		return nil, apperr.Validation("timeSlot %s is not offered on %s", in.TimeSlot, date)
	}

	a := &Appointment{
		PatientID:       patientID,
		DoctorID:        d.ID,
		ClinicID:        c.ID,
		AppointmentDate: date,
		TimeSlot:        in.TimeSlot,
		Status:          StatusScheduled,
		Type:            apptType,
		Reason:          in.Reason,
		Symptoms:        in.Symptoms,
		Notes:           in.Notes,
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		taken, err := s.appts.SlotTaken(ctx, d.ID, date, in.TimeSlot)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("slot already booked")
		}
		return s.appts.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("date", a.AppointmentDate).
		Str("time_slot", a.TimeSlot).
		Msg("appointment booked")
	s.publish(ctx, a)
	s.notify(ctx, a.ID, notification.TemplateAppointmentBooked)
	return a, nil
}

// bookingDay parses YYYY-MM-DD, or an RFC 3339 timestamp converted to the
// service location, and returns local midnight of that day.
func (s *Service) bookingDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.Validation("appointmentDate is required")
	}
	if day, err := slots.ParseDate(raw, s.loc); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("appointmentDate must be YYYY-MM-DD")
	}
	day, _ := slots.DayWindow(ts.In(s.loc))
	return day, nil
}

// -- Status transitions --

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionConfirm, nil)
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionStart, nil)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionComplete, nil)
}

// Cancel releases the slot. reason is optional.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*Appointment, error) {
	if reason != nil && strings.TrimSpace(*reason) == "" {
		reason = nil
	}
	return s.transition(ctx, id, ActionCancel, reason)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action Action, reason *string) (*Appointment, error) {
	t := transitions[action]
	current, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.allows(current.Status) {
		return nil, apperr.Validation("cannot %s an appointment that is %s", action, current.Status)
	}

	a, err := s.appts.TransitionStatus(ctx, id, t.from, t.to, reason)
	if errors.Is(err, ErrStatusChanged) {
		latest, gerr := s.appts.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperr.Validation("cannot %s an appointment that is %s", action, latest.Status)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", current.Status).
		Str("to", a.Status).
		Msg("appointment status changed")
	s.publish(ctx, a)
	if a.Status == StatusCancelled {
		s.notify(ctx, a.ID, notification.TemplateAppointmentCancelled)
	}
	return a, nil
}

// -- Queries --

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, apperr.Validation("invalid status %q", f.Status)
	}
	if f.Date != "" {
		day, err := slots.ParseDate(f.Date, s.loc)
		if err != nil {
			return nil, 0, apperr.Validation("%v", err)
		}
		f.Date = day.Format(slots.DateLayout)
	}
	return s.appts.List(ctx, f, limit, offset)
}

// DoctorForUser returns the doctor record linked to a user account.
func (s *Service) DoctorForUser(ctx context.Context, userID uuid.UUID) (*clinic.Doctor, error) {
	return s.dir.GetDoctorByUserID(ctx, userID)
}

// -- Side effects --

type eventData struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	PatientID     uuid.UUID `json:"patientId"`
	DoctorID      uuid.UUID `json:"doctorId"`
	ClinicID      uuid.UUID `json:"clinicId"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"timeSlot"`
	Status        string    `json:"status"`
}

func newEventData(a *Appointment) eventData {
	return eventData{
		AppointmentID: a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		ClinicID:      a.ClinicID,
		Date:          a.AppointmentDate,
		TimeSlot:      a.TimeSlot,
		Status:        a.Status,
	}
}

// publish emits appointment.<status>. Failures are logged only.
func (s *Service) publish(ctx context.Context, a *Appointment) {
	s.publishType(ctx, "appointment."+a.Status, a)
}

func (s *Service) publishType(ctx context.Context, eventType string, a *Appointment) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.New(eventType, newEventData(a))); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Str("appointment_id", a.ID.String()).Msg("event publish failed")
	}
}

func templateData(d *Details) map[string]string {
	return map[string]string{
		"patient_name": d.PatientName,
		"doctor_name":  d.DoctorName,
		"clinic_name":  d.ClinicName,
		"date":         d.Appointment.AppointmentDate,
		"time":         d.Appointment.TimeSlot,
	}
}

// notify sends a templated message to the patient. Failures are logged only.
func (s *Service) notify(ctx context.Context, id uuid.UUID, templateID string) {
	if s.notifier == nil {
		return
	}
	d, err := s.appts.GetDetails(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", id.String()).Msg("load appointment details")
		return
	}
	if _, err := s.notifier.SendFromTemplate(ctx, templateID, templateData(d), d.PatientEmail); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", id.String()).Str("template", templateID).Msg("notification failed")
	}
}
