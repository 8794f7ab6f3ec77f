package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrStatusChanged is returned by TransitionStatus when the appointment is no
// longer in one of the expected states.
var ErrStatusChanged = errors.New("appointment status changed concurrently")

type AppointmentRepository interface {
	// Create inserts a scheduled appointment. It returns a Conflict error when
	// another active appointment already holds the doctor, day and slot.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*Details, error)
	// SlotTaken reports whether an active appointment holds the slot.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date, timeSlot string) (bool, error)
	// ListActiveInWindow returns active appointments of the given doctors whose
	// day falls in [from, to).
	ListActiveInWindow(ctx context.Context, doctorIDs []uuid.UUID, from, to string) ([]*Appointment, error)
	// TransitionStatus moves the appointment to status "to" only if its current
	// status is one of from. It returns ErrStatusChanged otherwise.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string, reason *string) (*Appointment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	// ListDueForReminder returns active, not yet reminded appointments whose
	// day falls in [from, to).
	ListDueForReminder(ctx context.Context, from, to string) ([]*Details, error)
	MarkReminded(ctx context.Context, id uuid.UUID) error
}
