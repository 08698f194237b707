package patient

import (
	"time"

	"github.com/google/uuid"
)

// Address is the Brazilian postal layout used inside ContactInfo.
type Address struct {
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// ContactInfo is persisted as a JSONB column on the patient row.
type ContactInfo struct {
	PhonePrimary   string  `json:"phone_primary,omitempty"`
	PhoneSecondary string  `json:"phone_secondary,omitempty"`
	Email          string  `json:"email,omitempty"`
	Address        Address `json:"address,omitempty"`
}

// EmergencyContact is persisted as a JSONB column on the patient row.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// InsuranceInfo is persisted as a JSONB column on the patient row.
type InsuranceInfo struct {
	Provider     string     `json:"provider"`
	PolicyNumber string     `json:"policy_number,omitempty"`
	GroupNumber  string     `json:"group_number,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

// Patient maps to the patient table. Status and the discharge fields are only
// mutated through ChangeStatus so the transition rules cannot be bypassed.
type Patient struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	FullName        string            `db:"full_name" json:"full_name"`
	BirthDate       time.Time         `db:"birth_date" json:"birth_date"`
	Gender          *string           `db:"gender" json:"gender,omitempty"`
	CPF             string            `db:"cpf" json:"cpf"` // clean 11-digit form
	RG              *string           `db:"rg" json:"rg,omitempty"`
	Contact         ContactInfo       `db:"contact_info" json:"contact_info"`
	Emergency       *EmergencyContact `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Insurance       *InsuranceInfo    `db:"insurance_info" json:"insurance_info,omitempty"`
	Status          Status            `db:"status" json:"status"`
	DischargeDate   *time.Time        `db:"discharge_date" json:"discharge_date,omitempty"`
	DischargeReason *string           `db:"discharge_reason" json:"discharge_reason,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// CreateInput carries the raw fields for registering a patient. CPF and
// status arrive as strings and are validated during construction.
type CreateInput struct {
	FullName  string            `json:"full_name"`
	BirthDate time.Time         `json:"birth_date"`
	Gender    *string           `json:"gender,omitempty"`
	CPF       string            `json:"cpf"`
	RG        *string           `json:"rg,omitempty"`
	Contact   ContactInfo       `json:"contact_info"`
	Emergency *EmergencyContact `json:"emergency_contact,omitempty"`
	Insurance *InsuranceInfo    `json:"insurance_info,omitempty"`
	Status    string            `json:"status,omitempty"`
}

// PersonalUpdate holds the optional personal-info fields of a partial update.
type PersonalUpdate struct {
	FullName  *string    `json:"full_name,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Gender    *string    `json:"gender,omitempty"`
	CPF       *string    `json:"cpf,omitempty"`
	RG        *string    `json:"rg,omitempty"`
}

// UpdateInput is a partial update: only non-nil sections are merged.
type UpdateInput struct {
	Personal  *PersonalUpdate   `json:"personal_info,omitempty"`
	Contact   *ContactInfo      `json:"contact_info,omitempty"`
	Emergency *EmergencyContact `json:"emergency_contact,omitempty"`
	Insurance *InsuranceInfo    `json:"insurance_info,omitempty"`
}

// StatusChange carries the optional context of a guarded transition.
type StatusChange struct {
	DischargeDate   *time.Time `json:"discharge_date,omitempty"`
	DischargeReason *string    `json:"discharge_reason,omitempty"`
}

// NewPatient validates every field and assembles the aggregate. All failures
// are collected into one ValidationError rather than stopping at the first.
func NewPatient(in CreateInput, now time.Time) (*Patient, error) {
	verr := &ValidationError{}

	if in.FullName == "" {
		verr.Add("full_name", "is required")
	}
	if in.BirthDate.IsZero() {
		verr.Add("birth_date", "is required")
	} else if !in.BirthDate.Before(now) {
		verr.Add("birth_date", "must be in the past")
	}

	cpf, err := NewCPF(in.CPF)
	if err != nil {
		var cpfErr *ValidationError
		if ok := asValidation(err, &cpfErr); ok {
			verr.Fields = append(verr.Fields, cpfErr.Fields...)
		} else {
			verr.Add("cpf", err.Error())
		}
	}

	status := StatusNew
	if in.Status != "" {
		status, err = NewStatus(in.Status)
		if err != nil {
			verr.Add("status", "unknown status "+in.Status)
		}
	}

	if in.Emergency != nil {
		if in.Emergency.Name == "" {
			verr.Add("emergency_contact.name", "is required")
		}
		if in.Emergency.Phone == "" {
			verr.Add("emergency_contact.phone", "is required")
		}
	}
	if in.Insurance != nil && in.Insurance.Provider == "" {
		verr.Add("insurance_info.provider", "is required")
	}

	if verr.HasErrors() {
		return nil, verr
	}

	return &Patient{
		ID:        uuid.New(),
		FullName:  in.FullName,
		BirthDate: in.BirthDate,
		Gender:    in.Gender,
		CPF:       cpf.Clean(),
		RG:        in.RG,
		Contact:   in.Contact,
		Emergency: in.Emergency,
		Insurance: in.Insurance,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyUpdate merges only the sections present in the input, re-validating
// what changed, and bumps UpdatedAt.
func (p *Patient) ApplyUpdate(in UpdateInput, now time.Time) error {
	verr := &ValidationError{}

	var newCPF *CPF
	if in.Personal != nil {
		if in.Personal.FullName != nil && *in.Personal.FullName == "" {
			verr.Add("full_name", "cannot be empty")
		}
		if in.Personal.BirthDate != nil && !in.Personal.BirthDate.Before(now) {
			verr.Add("birth_date", "must be in the past")
		}
		if in.Personal.CPF != nil {
			cpf, err := NewCPF(*in.Personal.CPF)
			if err != nil {
				var cpfErr *ValidationError
				if ok := asValidation(err, &cpfErr); ok {
					verr.Fields = append(verr.Fields, cpfErr.Fields...)
				} else {
					verr.Add("cpf", err.Error())
				}
			} else {
				newCPF = &cpf
			}
		}
	}
	if in.Emergency != nil {
		if in.Emergency.Name == "" {
			verr.Add("emergency_contact.name", "is required")
		}
		if in.Emergency.Phone == "" {
			verr.Add("emergency_contact.phone", "is required")
		}
	}
	if in.Insurance != nil && in.Insurance.Provider == "" {
		verr.Add("insurance_info.provider", "is required")
	}

	if verr.HasErrors() {
		return verr
	}

	if in.Personal != nil {
		if in.Personal.FullName != nil {
			p.FullName = *in.Personal.FullName
		}
		if in.Personal.BirthDate != nil {
			p.BirthDate = *in.Personal.BirthDate
		}
		if in.Personal.Gender != nil {
			p.Gender = in.Personal.Gender
		}
		if newCPF != nil {
			p.CPF = newCPF.Clean()
		}
		if in.Personal.RG != nil {
			p.RG = in.Personal.RG
		}
	}
	if in.Contact != nil {
		p.Contact = *in.Contact
	}
	if in.Emergency != nil {
		p.Emergency = in.Emergency
	}
	if in.Insurance != nil {
		p.Insurance = in.Insurance
	}

	p.UpdatedAt = now
	return nil
}

// ChangeStatus performs a guarded transition. Discharging sets the discharge
// date and reason atomically with the status; reactivating clears them.
func (p *Patient) ChangeStatus(to Status, change StatusChange, now time.Time) error {
	if !to.IsValid() {
		return NewValidationError("status", "unknown status "+string(to))
	}
	if !p.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: p.Status, To: to}
	}

	switch to {
	case StatusDischarged:
		date := now
		if change.DischargeDate != nil {
			date = *change.DischargeDate
		}
		p.DischargeDate = &date
		p.DischargeReason = change.DischargeReason
	case StatusActive:
		p.DischargeDate = nil
		p.DischargeReason = nil
	}

	p.Status = to
	p.UpdatedAt = now
	return nil
}

// Age returns completed years at now, with day precision: the day before a
// birthday still counts the previous year.
func (p *Patient) Age(now time.Time) int {
	years := now.Year() - p.BirthDate.Year()
	birthdayThisYear := time.Date(now.Year(), p.BirthDate.Month(), p.BirthDate.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(birthdayThisYear) {
		years--
	}
	return years
}

// IsActive reports whether the patient is in the active state.
func (p *Patient) IsActive() bool {
	return p.Status == StatusActive
}

// CanScheduleAppointment is true only for active, non-discharged patients.
func (p *Patient) CanScheduleAppointment() bool {
	return p.IsActive() && p.Status != StatusDischarged
}

// FormattedCPF renders the stored clean CPF in canonical punctuated form.
func (p *Patient) FormattedCPF() string {
	if len(p.CPF) != 11 {
		return p.CPF
	}
	return p.CPF[:3] + "." + p.CPF[3:6] + "." + p.CPF[6:9] + "-" + p.CPF[9:]
}
