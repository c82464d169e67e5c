package inventory

import "fmt"

// ChangeType is the closed taxonomy of classified differences between two snapshots.
type ChangeType string

const (
	ChangeNewEntity             ChangeType = "NEW_ENTITY"
	ChangeFlaggedBySource       ChangeType = "FLAGGED_BY_SOURCE"
	ChangeStatusChanged         ChangeType = "STATUS_CHANGED"
	ChangeEliminated            ChangeType = "ELIMINATED"
	ChangeReinstated            ChangeType = "REINSTATED_FROM_ELIMINATED"
	ChangeReworkReopened        ChangeType = "REWORK_REOPENED"
	ChangeReworkReturned        ChangeType = "REWORK_RETURNED"
	ChangeReworkBlocked         ChangeType = "REWORK_BLOCKED"
	ChangeMeasureChanged        ChangeType = "MEASURE_CHANGED"
	ChangeDisappearedAllowed    ChangeType = "DISAPPEARED_ALLOWED"
	ChangeDisappearedUnexpected ChangeType = "DISAPPEARED_UNEXPECTED"
	ChangeUnclassified          ChangeType = "UNCLASSIFIED"
)

func AllChangeTypes() []ChangeType {
	return []ChangeType{
		ChangeNewEntity,
		ChangeFlaggedBySource,
		ChangeStatusChanged,
		ChangeEliminated,
		ChangeReinstated,
		ChangeReworkReopened,
		ChangeReworkReturned,
		ChangeReworkBlocked,
		ChangeMeasureChanged,
		ChangeDisappearedAllowed,
		ChangeDisappearedUnexpected,
		ChangeUnclassified,
	}
}

func (c ChangeType) Valid() bool {
	for _, known := range AllChangeTypes() {
		if c == known {
			return true
		}
	}
	return false
}

func ParseChangeType(name string) (ChangeType, error) {
	c := ChangeType(name)
	if !c.Valid() {
		return "", fmt.Errorf("unknown change type %q", name)
	}
	return c, nil
}

// IsRework reports whether the change reopens completed work.
func (c ChangeType) IsRework() bool {
	switch c {
	case ChangeReworkReopened, ChangeReworkReturned, ChangeReworkBlocked:
		return true
	}
	return false
}

// ReworkChangeTypes lists the change types counted as rework.
func ReworkChangeTypes() []ChangeType {
	return []ChangeType{ChangeReworkReopened, ChangeReworkReturned, ChangeReworkBlocked}
}
