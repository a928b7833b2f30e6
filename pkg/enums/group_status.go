package enums

import "fmt"

// GroupStatus is the derived standing of a group purchase requirement.
type GroupStatus string

const (
	GroupStatusInProgress        GroupStatus = "in-progress"
	GroupStatusRequirementMet    GroupStatus = "requirement-met"
	GroupStatusRequirementNotMet GroupStatus = "requirement-not-met"
	GroupStatusPartial           GroupStatus = "partial"
)

var validGroupStatuses = []GroupStatus{
	GroupStatusInProgress,
	GroupStatusRequirementMet,
	GroupStatusRequirementNotMet,
	GroupStatusPartial,
}

// String implements fmt.Stringer.
func (g GroupStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GroupStatus.
func (g GroupStatus) IsValid() bool {
	for _, candidate := range validGroupStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGroupStatus converts raw input into a GroupStatus.
func ParseGroupStatus(value string) (GroupStatus, error) {
	for _, candidate := range validGroupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group status %q", value)
}
