package document

// Status is the document lifecycle state.
type Status string

const (
	StatusActive      Status = "active"
	StatusArchived    Status = "archived"
	StatusQuarantined Status = "quarantined"
	StatusDeleted     Status = "deleted"
)

var validStatuses = map[Status]bool{
	StatusActive:      true,
	StatusArchived:    true,
	StatusQuarantined: true,
	StatusDeleted:     true,
}

// statusTransitions defines the allowed moves. Deleted is terminal;
// quarantined documents can only be deleted, never restored through a status
// change (a clean rescan re-uploads instead).
var statusTransitions = map[Status][]Status{
	StatusActive:      {StatusArchived, StatusQuarantined, StatusDeleted},
	StatusArchived:    {StatusActive, StatusDeleted},
	StatusQuarantined: {StatusDeleted},
	StatusDeleted:     {},
}

func NewStatus(raw string) (Status, error) {
	s := Status(raw)
	if !validStatuses[s] {
		return "", NewValidationError("status", "unknown document status "+raw)
	}
	return s, nil
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}
