package patient

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func validInput() CreateInput {
	return CreateInput{
		FullName:  "Ana Souza",
		BirthDate: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC),
		CPF:       "111.444.777-35",
		Contact: ContactInfo{
			PhonePrimary: "+55 11 91234-5678",
			Email:        "ana.souza@example.com",
		},
	}
}

func TestNewPatient(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.CPF != "11144477735" {
		t.Errorf("expected clean CPF stored, got %q", p.CPF)
	}
	if p.FormattedCPF() != "111.444.777-35" {
		t.Errorf("unexpected formatted CPF %q", p.FormattedCPF())
	}
	if p.Status != StatusNew {
		t.Errorf("expected default status new, got %s", p.Status)
	}
	if !p.CreatedAt.Equal(testNow) || !p.UpdatedAt.Equal(testNow) {
		t.Error("timestamps should both be set to construction time")
	}
}

func TestNewPatient_AggregatesFieldErrors(t *testing.T) {
	in := CreateInput{
		FullName:  "",
		BirthDate: testNow.AddDate(1, 0, 0),
		CPF:       "123",
		Status:    "bogus",
	}
	_, err := NewPatient(in, testNow)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) < 4 {
		t.Errorf("expected every invalid field reported, got %v", verr.Fields)
	}
}

func TestPatient_Age(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Born 2015-03-01: the day after the 10th birthday reports 10.
	if got := p.Age(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)); got != 10 {
		t.Errorf("Age on 2025-03-02 = %d, want 10", got)
	}
	// The day before the 10th birthday still reports 9.
	if got := p.Age(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)); got != 9 {
		t.Errorf("Age on 2025-02-28 = %d, want 9", got)
	}
	// The birthday itself counts the new year.
	if got := p.Age(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)); got != 10 {
		t.Errorf("Age on 2025-03-01 = %d, want 10", got)
	}
}

func TestPatient_ApplyUpdate_PartialMerge(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later := testNow.Add(time.Hour)
	newName := "Ana Clara Souza"
	err = p.ApplyUpdate(UpdateInput{
		Personal: &PersonalUpdate{FullName: &newName},
	}, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.FullName != "Ana Clara Souza" {
		t.Errorf("name not updated: %q", p.FullName)
	}
	if p.Contact.Email != "ana.souza@example.com" {
		t.Error("untouched section should be preserved")
	}
	if !p.UpdatedAt.Equal(later) {
		t.Error("UpdatedAt should be bumped")
	}
	if !p.CreatedAt.Equal(testNow) {
		t.Error("CreatedAt should not change")
	}
}

func TestPatient_ApplyUpdate_RejectsInvalid(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	empty := ""
	badCPF := "11111111111"
	err = p.ApplyUpdate(UpdateInput{
		Personal: &PersonalUpdate{FullName: &empty, CPF: &badCPF},
	}, testNow)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if p.FullName != "Ana Souza" || p.CPF != "11144477735" {
		t.Error("failed update must not mutate the aggregate")
	}
}

func TestPatient_ChangeStatus_Discharge(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.ChangeStatus(StatusActive, StatusChange{}, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reason := "treatment completed"
	if err := p.ChangeStatus(StatusDischarged, StatusChange{DischargeReason: &reason}, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != StatusDischarged {
		t.Errorf("expected discharged, got %s", p.Status)
	}
	if p.DischargeDate == nil || !p.DischargeDate.Equal(testNow) {
		t.Error("discharge date should default to transition time")
	}
	if p.DischargeReason == nil || *p.DischargeReason != reason {
		t.Error("discharge reason should be recorded")
	}
}

func TestPatient_ChangeStatus_ReactivateClearsDischarge(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.ChangeStatus(StatusActive, StatusChange{}, testNow)
	p.ChangeStatus(StatusDischarged, StatusChange{}, testNow)

	if err := p.ChangeStatus(StatusActive, StatusChange{}, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DischargeDate != nil || p.DischargeReason != nil {
		t.Error("reactivation should clear discharge fields")
	}
}

func TestPatient_ChangeStatus_InvalidTransition(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = p.ChangeStatus(StatusDischarged, StatusChange{}, testNow)
	var trans *InvalidTransitionError
	if !errors.As(err, &trans) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if trans.From != StatusNew || trans.To != StatusDischarged {
		t.Errorf("unexpected transition details: %+v", trans)
	}
	if p.Status != StatusNew {
		t.Error("failed transition must not change status")
	}
}

func TestPatient_DerivedQueries(t *testing.T) {
	p, err := NewPatient(validInput(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.IsActive() || p.CanScheduleAppointment() {
		t.Error("new patient should not be active or schedulable")
	}

	p.ChangeStatus(StatusActive, StatusChange{}, testNow)
	if !p.IsActive() || !p.CanScheduleAppointment() {
		t.Error("active patient should be schedulable")
	}

	p.ChangeStatus(StatusDischarged, StatusChange{}, testNow)
	if p.CanScheduleAppointment() {
		t.Error("discharged patient should not be schedulable")
	}
}
