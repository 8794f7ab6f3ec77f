package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/domain/clinic"
	"github.com/medbook/medbook/internal/domain/slots"
)

// Appointment statuses. Completed and cancelled are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Appointment types.
const (
	TypeConsultation = "consultation"
	TypeFollowUp     = "follow_up"
	TypeCheckup      = "checkup"
	TypeEmergency    = "emergency"
)

var validTypes = map[string]bool{
	TypeConsultation: true, TypeFollowUp: true, TypeCheckup: true, TypeEmergency: true,
}

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusInProgress: true,
	StatusCompleted: true, StatusCancelled: true,
}

// Appointment is one row of the booking ledger. AppointmentDate is a calendar
// day formatted as YYYY-MM-DD.
type Appointment struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          uuid.UUID `json:"patientId"`
	DoctorID           uuid.UUID `json:"doctorId"`
	ClinicID           uuid.UUID `json:"clinicId"`
	AppointmentDate    string    `json:"appointmentDate"`
	TimeSlot           string    `json:"timeSlot"`
	Status             string    `json:"status"`
	Type               string    `json:"type"`
	Reason             *string   `json:"reason,omitempty"`
	Symptoms           *string   `json:"symptoms,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
	CancellationReason *string   `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// IsActive reports whether the appointment holds its slot.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// BookingInput is the body of POST /appointments. AppointmentDate accepts
// YYYY-MM-DD or an RFC 3339 timestamp whose time of day is ignored.
type BookingInput struct {
	ClinicID        uuid.UUID `json:"clinicId"`
	DoctorID        uuid.UUID `json:"doctorId"`
	AppointmentDate string    `json:"appointmentDate"`
	TimeSlot        string    `json:"timeSlot"`
	Type            string    `json:"type"`
	Reason          *string   `json:"reason"`
	Symptoms        *string   `json:"symptoms"`
	Notes           *string   `json:"notes"`
}

// Action names a status operation.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

type transition struct {
	from []string
	to   string
}

var transitions = map[Action]transition{
	ActionConfirm:  {from: []string{StatusScheduled}, to: StatusConfirmed},
	ActionStart:    {from: []string{StatusConfirmed}, to: StatusInProgress},
	ActionComplete: {from: []string{StatusConfirmed, StatusInProgress}, to: StatusCompleted},
	ActionCancel:   {from: []string{StatusScheduled, StatusConfirmed}, to: StatusCancelled},
}

func (t transition) allows(status string) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// ClinicRef is the clinic header of an availability result.
type ClinicRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type DoctorSlots struct {
	Doctor clinic.Summary `json:"doctor"`
	Slots  []slots.Slot   `json:"slots"`
}

// Availability is the response of GET /clinics/:id/available-slots.
type Availability struct {
	Date           string        `json:"date"`
	Clinic         ClinicRef     `json:"clinic"`
	AvailableSlots []DoctorSlots `json:"availableSlots"`
}

// Filter narrows appointment listings. Zero values are ignored.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    string
	Date      string
}

// Details is an appointment joined with the names and contact needed to
// notify its patient.
type Details struct {
	Appointment  *Appointment
	PatientEmail string
	PatientName  string
	DoctorName   string
	ClinicName   string
}
