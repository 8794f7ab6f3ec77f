package clinic

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/domain/slots"
	"github.com/medbook/medbook/internal/platform/apperr"
)

// -- Mock Repositories --

type mockClinicRepo struct {
	mu      sync.Mutex
	clinics map[uuid.UUID]*Clinic
}

func newMockClinicRepo() *mockClinicRepo {
	return &mockClinicRepo{clinics: make(map[uuid.UUID]*Clinic)}
}

func (m *mockClinicRepo) Create(_ context.Context, c *Clinic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.clinics[c.ID] = &cp
	return nil
}

func (m *mockClinicRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[id]
	if !ok {
		return nil, apperr.NotFound("clinic not found")
	}
	cp := *c
	return &cp, nil
}

func (m *mockClinicRepo) Update(_ context.Context, c *Clinic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clinics[c.ID]; !ok {
		return apperr.NotFound("clinic not found")
	}
	cp := *c
	m.clinics[c.ID] = &cp
	return nil
}

func (m *mockClinicRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Clinic
	for _, c := range m.clinics {
		if activeOnly && !c.IsActive {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type mockDoctorRepo struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.UserID != nil && *d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("doctor not found")
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[d.ID]; !ok {
		return apperr.NotFound("doctor not found")
	}
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) ListByClinic(_ context.Context, clinicID uuid.UUID, availableOnly bool) ([]*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Doctor
	for _, d := range m.doctors {
		if d.ClinicID != clinicID || (availableOnly && !d.IsAvailable) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func newTestService() *Service {
	return NewService(newMockClinicRepo(), newMockDoctorRepo(), zerolog.Nop())
}

func strPtr(s string) *string { return &s }

func mustClinic(t *testing.T, s *Service, name string) *Clinic {
	t.Helper()
	c, err := s.CreateClinic(context.Background(), ClinicInput{Name: strPtr(name)})
	if err != nil {
		t.Fatalf("CreateClinic: %v", err)
	}
	return c
}

// -- Clinic --

func TestCreateClinic(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "  Downtown  ")
	if c.Name != "Downtown" {
		t.Errorf("expected trimmed name, got %q", c.Name)
	}
	if !c.IsActive {
		t.Error("expected new clinic to be active")
	}
}

func TestCreateClinic_NameRequired(t *testing.T) {
	s := newTestService()
	_, err := s.CreateClinic(context.Background(), ClinicInput{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateClinic_Partial(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "Downtown")
	inactive := false

	updated, err := s.UpdateClinic(context.Background(), c.ID, ClinicInput{Phone: strPtr("555"), IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdateClinic: %v", err)
	}
	if updated.Name != "Downtown" || *updated.Phone != "555" || updated.IsActive {
		t.Errorf("unexpected clinic after update: %+v", updated)
	}

	items, total, _ := s.ListClinics(context.Background(), false, 10, 0)
	if total != 0 || len(items) != 0 {
		t.Errorf("inactive clinic should be hidden, got %d", total)
	}
	_, total, _ = s.ListClinics(context.Background(), true, 10, 0)
	if total != 1 {
		t.Errorf("expected inactive clinic when included, got %d", total)
	}
}

func TestUpdateClinic_NotFound(t *testing.T) {
	s := newTestService()
	_, err := s.UpdateClinic(context.Background(), uuid.New(), ClinicInput{Phone: strPtr("1")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// -- Doctor --

func TestCreateDoctor_AppliesScheduleDefaults(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "Downtown")

	d, err := s.CreateDoctor(context.Background(), DoctorInput{
		ClinicID:  &c.ID,
		FullName:  strPtr("Dr. Smith"),
		Specialty: strPtr("cardiology"),
	})
	if err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if !d.IsAvailable {
		t.Error("expected new doctor to be available")
	}
	want := slots.DefaultSchedule()
	if d.Schedule.StartTime != want.StartTime || d.Schedule.EndTime != want.EndTime ||
		d.Schedule.SlotDuration != want.SlotDuration || len(d.Schedule.WorkingDays) != 5 {
		t.Errorf("expected default schedule, got %+v", d.Schedule)
	}
}

func TestCreateDoctor_Validation(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "Downtown")

	tests := []struct {
		name string
		in   DoctorInput
	}{
		{"missing clinic", DoctorInput{FullName: strPtr("a"), Specialty: strPtr("b")}},
		{"missing name", DoctorInput{ClinicID: &c.ID, Specialty: strPtr("b")}},
		{"missing specialty", DoctorInput{ClinicID: &c.ID, FullName: strPtr("a")}},
		{"bad schedule", DoctorInput{ClinicID: &c.ID, FullName: strPtr("a"), Specialty: strPtr("b"),
			Schedule: &slots.Schedule{StartTime: "18:00", EndTime: "09:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateDoctor(context.Background(), tt.in)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateDoctor_UnknownClinic(t *testing.T) {
	s := newTestService()
	missing := uuid.New()
	_, err := s.CreateDoctor(context.Background(), DoctorInput{
		ClinicID: &missing, FullName: strPtr("a"), Specialty: strPtr("b"),
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSchedule(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "Downtown")
	d, _ := s.CreateDoctor(context.Background(), DoctorInput{
		ClinicID: &c.ID, FullName: strPtr("Dr. Who"), Specialty: strPtr("gp"),
	})

	updated, err := s.UpdateSchedule(context.Background(), d.ID, slots.Schedule{
		WorkingDays: []int{6, 2}, StartTime: "10:00", EndTime: "12:00", SlotDuration: 20,
	})
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if updated.Schedule.WorkingDays[0] != 2 || updated.Schedule.WorkingDays[1] != 6 {
		t.Errorf("expected sorted working days, got %v", updated.Schedule.WorkingDays)
	}
	saturday := time.Date(2030, 1, 12, 0, 0, 0, 0, time.UTC)
	if got := updated.Schedule.SlotsFor(saturday); len(got) != 6 {
		t.Errorf("expected 6 slots on Saturday, got %v", got)
	}

	_, err = s.UpdateSchedule(context.Background(), d.ID, slots.Schedule{WorkingDays: []int{9}})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for weekday 9, got %v", err)
	}
}

func TestListDoctors(t *testing.T) {
	s := newTestService()
	c := mustClinic(t, s, "Downtown")
	other := mustClinic(t, s, "Uptown")
	off := false

	for _, in := range []DoctorInput{
		{ClinicID: &c.ID, FullName: strPtr("B"), Specialty: strPtr("x")},
		{ClinicID: &c.ID, FullName: strPtr("A"), Specialty: strPtr("x"), IsAvailable: &off},
		{ClinicID: &other.ID, FullName: strPtr("C"), Specialty: strPtr("x")},
	} {
		if _, err := s.CreateDoctor(context.Background(), in); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListDoctors(context.Background(), c.ID, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 doctors, got %d (%v)", len(all), err)
	}
	available, _ := s.ListDoctors(context.Background(), c.ID, true)
	if len(available) != 1 || available[0].FullName != "B" {
		t.Errorf("expected only B available, got %+v", available)
	}

	if _, err := s.ListDoctors(context.Background(), uuid.New(), false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown clinic, got %v", err)
	}
}
