package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/domain/slots"
)

// Clinic maps to the clinics table.
type Clinic struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Doctor maps to the doctors table. The weekly schedule is stored inline.
type Doctor struct {
	ID              uuid.UUID      `json:"id"`
	UserID          *uuid.UUID     `json:"userId,omitempty"`
	ClinicID        uuid.UUID      `json:"clinicId"`
	FullName        string         `json:"fullName"`
	Specialty       string         `json:"specialty"`
	Email           *string        `json:"email,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	Bio             *string        `json:"bio,omitempty"`
	ConsultationFee *float64       `json:"consultationFee,omitempty"`
	IsAvailable     bool           `json:"isAvailable"`
	Schedule        slots.Schedule `json:"schedule"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Summary is the compact doctor shape embedded in availability results.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Specialty string    `json:"specialty"`
}

func (d *Doctor) Summary() Summary {
	return Summary{ID: d.ID, FullName: d.FullName, Specialty: d.Specialty}
}

// ClinicInput carries create and update fields. Nil pointers leave the stored
// value unchanged on update.
type ClinicInput struct {
	Name        *string `json:"name"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

// DoctorInput carries create and update fields for a doctor.
type DoctorInput struct {
	UserID          *uuid.UUID      `json:"userId"`
	ClinicID        *uuid.UUID      `json:"clinicId"`
	FullName        *string         `json:"fullName"`
	Specialty       *string         `json:"specialty"`
	Email           *string         `json:"email"`
	Phone           *string         `json:"phone"`
	Bio             *string         `json:"bio"`
	ConsultationFee *float64        `json:"consultationFee"`
	IsAvailable     *bool           `json:"isAvailable"`
	Schedule        *slots.Schedule `json:"schedule"`
}
