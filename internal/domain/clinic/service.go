package clinic

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/slots"
	"github.com/medbook/medbook/internal/platform/apperr"
)

type Service struct {
	clinics ClinicRepository
	doctors DoctorRepository
	logger  zerolog.Logger
}

func NewService(clinics ClinicRepository, doctors DoctorRepository, logger zerolog.Logger) *Service {
	return &Service{clinics: clinics, doctors: doctors, logger: logger.With().Str("component", "clinic").Logger()}
}

// -- Clinic --

func (s *Service) CreateClinic(ctx context.Context, in ClinicInput) (*Clinic, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	c := &Clinic{IsActive: true}
	applyClinic(c, in)
	if err := s.clinics.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("clinic_id", c.ID.String()).Msg("clinic created")
	return c, nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, in ClinicInput) (*Clinic, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	c, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyClinic(c, in)
	if err := s.clinics.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListClinics(ctx context.Context, includeInactive bool, limit, offset int) ([]*Clinic, int, error) {
	return s.clinics.List(ctx, !includeInactive, limit, offset)
}

func applyClinic(c *Clinic, in ClinicInput) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Address != nil {
		c.Address = in.Address
	}
	if in.Phone != nil {
		c.Phone = in.Phone
	}
	if in.Email != nil {
		c.Email = in.Email
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}

// -- Doctor --

// CreateDoctor registers a doctor at an existing clinic. Omitted schedule
// fields take their defaults.
func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	if in.ClinicID == nil || *in.ClinicID == uuid.Nil {
		return nil, apperr.Validation("clinicId is required")
	}
	if in.FullName == nil || strings.TrimSpace(*in.FullName) == "" {
		return nil, apperr.Validation("fullName is required")
	}
	if in.Specialty == nil || strings.TrimSpace(*in.Specialty) == "" {
		return nil, apperr.Validation("specialty is required")
	}
	if _, err := s.clinics.GetByID(ctx, *in.ClinicID); err != nil {
		return nil, err
	}

	d := &Doctor{IsAvailable: true}
	var sched slots.Schedule
	if in.Schedule != nil {
		sched = *in.Schedule
	}
	in.Schedule = &sched
	if err := applyDoctor(d, in); err != nil {
		return nil, err
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("clinic_id", d.ClinicID.String()).Msg("doctor created")
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in DoctorInput) (*Doctor, error) {
	if in.FullName != nil && strings.TrimSpace(*in.FullName) == "" {
		return nil, apperr.Validation("fullName must not be empty")
	}
	if in.Specialty != nil && strings.TrimSpace(*in.Specialty) == "" {
		return nil, apperr.Validation("specialty must not be empty")
	}
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ClinicID != nil && *in.ClinicID != d.ClinicID {
		if _, err := s.clinics.GetByID(ctx, *in.ClinicID); err != nil {
			return nil, err
		}
	}
	if err := applyDoctor(d, in); err != nil {
		return nil, err
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateSchedule replaces a doctor's weekly schedule. Existing appointments
// are kept even when their slot is no longer offered.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, sched slots.Schedule) (*Doctor, error) {
	return s.UpdateDoctor(ctx, id, DoctorInput{Schedule: &sched})
}

// ListDoctors returns the doctors practising at a clinic. Unknown clinics
// are NotFound.
func (s *Service) ListDoctors(ctx context.Context, clinicID uuid.UUID, availableOnly bool) ([]*Doctor, error) {
	if _, err := s.clinics.GetByID(ctx, clinicID); err != nil {
		return nil, err
	}
	return s.doctors.ListByClinic(ctx, clinicID, availableOnly)
}

func applyDoctor(d *Doctor, in DoctorInput) error {
	if in.Schedule != nil {
		sched := in.Schedule.WithDefaults()
		if err := sched.Validate(); err != nil {
			return apperr.Validation("invalid schedule: %v", err)
		}
		d.Schedule = sched.Normalized()
	}
	if in.ConsultationFee != nil && *in.ConsultationFee < 0 {
		return apperr.Validation("consultationFee must not be negative")
	}
	if in.UserID != nil {
		d.UserID = in.UserID
	}
	if in.ClinicID != nil {
		d.ClinicID = *in.ClinicID
	}
	if in.FullName != nil {
		d.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Specialty != nil {
		d.Specialty = strings.TrimSpace(*in.Specialty)
	}
	if in.Email != nil {
		d.Email = in.Email
	}
	if in.Phone != nil {
		d.Phone = in.Phone
	}
	if in.Bio != nil {
		d.Bio = in.Bio
	}
	if in.ConsultationFee != nil {
		d.ConsultationFee = in.ConsultationFee
	}
	if in.IsAvailable != nil {
		d.IsAvailable = *in.IsAvailable
	}
	return nil
}
