package patient

// Status is the patient lifecycle state. The canonical set uses snake_case;
// legacy spellings like "on-hold" are not accepted.
type Status string

const (
	StatusNew        Status = "new"
	StatusActive     Status = "active"
	StatusOnHold     Status = "on_hold"
	StatusDischarged Status = "discharged"
	StatusInactive   Status = "inactive"
)

var validStatuses = map[Status]bool{
	StatusNew:        true,
	StatusActive:     true,
	StatusOnHold:     true,
	StatusDischarged: true,
	StatusInactive:   true,
}

// NewStatus validates raw against the canonical set.
func NewStatus(raw string) (Status, error) {
	s := Status(raw)
	if !validStatuses[s] {
		return "", NewValidationError("status", "unknown status "+raw)
	}
	return s, nil
}

// statusTransitions is the allowed transition table. Discharged and inactive
// patients can only come back through reactivation.
var statusTransitions = map[Status]map[Status]bool{
	StatusNew:        {StatusActive: true, StatusOnHold: true, StatusInactive: true},
	StatusActive:     {StatusOnHold: true, StatusDischarged: true, StatusInactive: true},
	StatusOnHold:     {StatusActive: true, StatusDischarged: true, StatusInactive: true},
	StatusDischarged: {StatusActive: true},
	StatusInactive:   {StatusActive: true},
}

// CanTransitionTo reports whether the status change is allowed.
func (s Status) CanTransitionTo(to Status) bool {
	return statusTransitions[s][to]
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}
