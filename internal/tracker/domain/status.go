package domain

import "strings"

// LifecycleStatus is the stage an application has reached.
type LifecycleStatus string

const (
	StatusSaved     LifecycleStatus = "SAVED"
	StatusApplied   LifecycleStatus = "APPLIED"
	StatusOA        LifecycleStatus = "OA"
	StatusInterview LifecycleStatus = "INTERVIEW"
	StatusOffer     LifecycleStatus = "OFFER"
	StatusRejected  LifecycleStatus = "REJECTED"
	StatusWithdrawn LifecycleStatus = "WITHDRAWN"
)

// statusOrder ranks statuses for forward-progress comparison. REJECTED and
// WITHDRAWN are terminal and outrank every active stage.
var statusOrder = []LifecycleStatus{
	StatusSaved,
	StatusApplied,
	StatusOA,
	StatusInterview,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// AllStatuses returns every status in rank order.
func AllStatuses() []LifecycleStatus {
	out := make([]LifecycleStatus, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Rank returns the position of s in the ordering, or -1 if s is unknown.
func (s LifecycleStatus) Rank() int {
	for i, candidate := range statusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

func (s LifecycleStatus) Valid() bool {
	return s.Rank() >= 0
}

// Outranks reports whether s is strictly further along than other.
func (s LifecycleStatus) Outranks(other LifecycleStatus) bool {
	return s.Rank() > other.Rank()
}

func (s LifecycleStatus) String() string {
	return string(s)
}

// ParseStatus accepts any casing of a known status name.
func ParseStatus(raw string) (LifecycleStatus, bool) {
	s := LifecycleStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}
