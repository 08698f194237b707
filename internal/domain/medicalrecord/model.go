package medicalrecord

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Diagnosis is one entry in the record's diagnosis list, stored as JSONB.
type Diagnosis struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	DiagnosedAt time.Time `json:"diagnosed_at"`
	Severity    string    `json:"severity,omitempty"`
}

// Medication is one prescription entry. Activity is derived from EndDate,
// never stored.
type Medication struct {
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency,omitempty"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	PrescribedBy string     `json:"prescribed_by,omitempty"`
}

// IsActive reports whether the medication is current: no end date, or an end
// date still in the future.
func (m Medication) IsActive(now time.Time) bool {
	return m.EndDate == nil || m.EndDate.After(now)
}

type Allergy struct {
	Allergen    string    `json:"allergen"`
	Reaction    string    `json:"reaction,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	DiagnosedAt time.Time `json:"diagnosed_at"`
}

// ProgressNote is an append-only session note. Notes are never edited or
// removed once attached to a record.
type ProgressNote struct {
	ID          uuid.UUID `json:"id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	SessionDate time.Time `json:"session_date"`
	Category    string    `json:"category,omitempty"`
}

type Assessment struct {
	Type            string    `json:"type"`
	Findings        string    `json:"findings,omitempty"`
	Recommendations string    `json:"recommendations,omitempty"`
	Date            time.Time `json:"date"`
	AssessedBy      string    `json:"assessed_by,omitempty"`
}

type Treatment struct {
	Description string     `json:"description"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Status      string     `json:"status,omitempty"`
	Goals       []string   `json:"goals,omitempty"`
}

// MedicalRecord maps to the medical_record table. Each list field is a JSONB
// column holding the full ordered list.
type MedicalRecord struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	PatientID     uuid.UUID      `db:"patient_id" json:"patient_id"`
	Diagnoses     []Diagnosis    `db:"diagnoses" json:"diagnoses"`
	Medications   []Medication   `db:"medications" json:"medications"`
	Allergies     []Allergy      `db:"allergies" json:"allergies"`
	ProgressNotes []ProgressNote `db:"progress_notes" json:"progress_notes"`
	Assessments   []Assessment   `db:"assessments" json:"assessments"`
	Treatments    []Treatment    `db:"treatments" json:"treatments"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// ActiveMedications filters the medication list down to entries still active
// at now.
func (r *MedicalRecord) ActiveMedications(now time.Time) []Medication {
	out := make([]Medication, 0, len(r.Medications))
	for _, m := range r.Medications {
		if m.IsActive(now) {
			out = append(out, m)
		}
	}
	return out
}

type CreateInput struct {
	PatientID         uuid.UUID    `json:"patient_id"`
	Diagnoses         []Diagnosis  `json:"diagnoses,omitempty"`
	Medications       []Medication `json:"medications,omitempty"`
	Allergies         []Allergy    `json:"allergies,omitempty"`
	Treatments        []Treatment  `json:"treatments,omitempty"`
	InitialAssessment *Assessment  `json:"initial_assessment,omitempty"`
}

// UpdateInput replaces the supplied lists wholesale. There is no item-level
// merge: callers send the complete new list for each field they include.
type UpdateInput struct {
	Diagnoses   *[]Diagnosis  `json:"diagnoses,omitempty"`
	Medications *[]Medication `json:"medications,omitempty"`
	Allergies   *[]Allergy    `json:"allergies,omitempty"`
	Treatments  *[]Treatment  `json:"treatments,omitempty"`
}

// NewMedicalRecord validates every nested item and assembles the aggregate.
// All failures are collected into one ValidationError.
func NewMedicalRecord(in CreateInput, now time.Time) (*MedicalRecord, error) {
	verr := &ValidationError{}

	if in.PatientID == uuid.Nil {
		verr.Add("patient_id", "is required")
	}
	validateDiagnoses(verr, in.Diagnoses)
	validateMedications(verr, in.Medications)
	validateAllergies(verr, in.Allergies)
	validateTreatments(verr, in.Treatments)

	assessments := []Assessment{}
	if in.InitialAssessment != nil {
		validateAssessment(verr, "initial_assessment", *in.InitialAssessment)
		assessments = append(assessments, *in.InitialAssessment)
	}

	if verr.HasErrors() {
		return nil, verr
	}

	return &MedicalRecord{
		ID:            uuid.New(),
		PatientID:     in.PatientID,
		Diagnoses:     orEmptyDiagnoses(in.Diagnoses),
		Medications:   orEmptyMedications(in.Medications),
		Allergies:     orEmptyAllergies(in.Allergies),
		ProgressNotes: []ProgressNote{},
		Assessments:   assessments,
		Treatments:    orEmptyTreatments(in.Treatments),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyUpdate replaces the lists present in the input after validating them,
// and bumps UpdatedAt. Progress notes are not replaceable here; they only
// grow through AddProgressNote.
func (r *MedicalRecord) ApplyUpdate(in UpdateInput, now time.Time) error {
	verr := &ValidationError{}

	if in.Diagnoses != nil {
		validateDiagnoses(verr, *in.Diagnoses)
	}
	if in.Medications != nil {
		validateMedications(verr, *in.Medications)
	}
	if in.Allergies != nil {
		validateAllergies(verr, *in.Allergies)
	}
	if in.Treatments != nil {
		validateTreatments(verr, *in.Treatments)
	}

	if verr.HasErrors() {
		return verr
	}

	if in.Diagnoses != nil {
		r.Diagnoses = orEmptyDiagnoses(*in.Diagnoses)
	}
	if in.Medications != nil {
		r.Medications = orEmptyMedications(*in.Medications)
	}
	if in.Allergies != nil {
		r.Allergies = orEmptyAllergies(*in.Allergies)
	}
	if in.Treatments != nil {
		r.Treatments = orEmptyTreatments(*in.Treatments)
	}

	r.UpdatedAt = now
	return nil
}

// AddProgressNote validates and appends a note, assigning its identity and
// creation time. Existing notes are never touched.
func (r *MedicalRecord) AddProgressNote(note ProgressNote, now time.Time) (*ProgressNote, error) {
	verr := &ValidationError{}
	if note.Content == "" {
		verr.Add("content", "is required")
	}
	if note.CreatedBy == "" {
		verr.Add("created_by", "is required")
	}
	if note.SessionDate.IsZero() {
		verr.Add("session_date", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	note.ID = uuid.New()
	note.CreatedAt = now
	r.ProgressNotes = append(r.ProgressNotes, note)
	r.UpdatedAt = now
	return &note, nil
}

func validateDiagnoses(verr *ValidationError, items []Diagnosis) {
	for i, d := range items {
		if d.Code == "" {
			verr.Add(fmt.Sprintf("diagnoses[%d].code", i), "is required")
		}
		if d.Description == "" {
			verr.Add(fmt.Sprintf("diagnoses[%d].description", i), "is required")
		}
		if d.DiagnosedAt.IsZero() {
			verr.Add(fmt.Sprintf("diagnoses[%d].diagnosed_at", i), "is required")
		}
	}
}

func validateMedications(verr *ValidationError, items []Medication) {
	for i, m := range items {
		if m.Name == "" {
			verr.Add(fmt.Sprintf("medications[%d].name", i), "is required")
		}
		if m.Dosage == "" {
			verr.Add(fmt.Sprintf("medications[%d].dosage", i), "is required")
		}
		if m.StartDate.IsZero() {
			verr.Add(fmt.Sprintf("medications[%d].start_date", i), "is required")
		}
		if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
			verr.Add(fmt.Sprintf("medications[%d].end_date", i), "must not be before start_date")
		}
	}
}

func validateAllergies(verr *ValidationError, items []Allergy) {
	for i, a := range items {
		if a.Allergen == "" {
			verr.Add(fmt.Sprintf("allergies[%d].allergen", i), "is required")
		}
	}
}

func validateTreatments(verr *ValidationError, items []Treatment) {
	for i, t := range items {
		if t.Description == "" {
			verr.Add(fmt.Sprintf("treatments[%d].description", i), "is required")
		}
		if t.StartDate.IsZero() {
			verr.Add(fmt.Sprintf("treatments[%d].start_date", i), "is required")
		}
		if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
			verr.Add(fmt.Sprintf("treatments[%d].end_date", i), "must not be before start_date")
		}
	}
}

func validateAssessment(verr *ValidationError, field string, a Assessment) {
	if a.Type == "" {
		verr.Add(field+".type", "is required")
	}
	if a.Date.IsZero() {
		verr.Add(field+".date", "is required")
	}
}

// JSONB round-trips turn nil slices into SQL NULL; empty lists keep the
// column shape uniform.
func orEmptyDiagnoses(in []Diagnosis) []Diagnosis {
	if in == nil {
		return []Diagnosis{}
	}
	return in
}

func orEmptyMedications(in []Medication) []Medication {
	if in == nil {
		return []Medication{}
	}
	return in
}

func orEmptyAllergies(in []Allergy) []Allergy {
	if in == nil {
		return []Allergy{}
	}
	return in
}

func orEmptyTreatments(in []Treatment) []Treatment {
	if in == nil {
		return []Treatment{}
	}
	return in
}
