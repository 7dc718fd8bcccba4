package domain

// UnknownRole is the job title used when no position could be guessed.
const UnknownRole = "Unknown Role"

// Signal is the status and best-effort company/position guesses derived from
// one email. Empty Company or Position means no guess was made; callers
// check HasCompany before touching stored applications.
type Signal struct {
	Status   LifecycleStatus
	Company  string
	Position string
}

func (s Signal) HasCompany() bool {
	return s.Company != ""
}

func (s Signal) HasPosition() bool {
	return s.Position != ""
}

// JobTitle returns the guessed position or UnknownRole.
func (s Signal) JobTitle() string {
	if s.Position == "" {
		return UnknownRole
	}
	return s.Position
}
