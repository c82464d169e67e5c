package inventory

import (
	"fmt"
	"strings"
)

// Status is the closed lifecycle vocabulary of a tracked entity.
type Status int

const (
	StatusFree Status = iota
	StatusReserved
	StatusInTransit
	StatusBlocked
	StatusDone
	StatusEliminated
)

var statusNames = map[Status]string{
	StatusFree:       "Free",
	StatusReserved:   "Reserved",
	StatusInTransit:  "InTransit",
	StatusBlocked:    "Blocked",
	StatusDone:       "Done",
	StatusEliminated: "Eliminated",
}

// AllStatuses returns every status in declaration order.
func AllStatuses() []Status {
	return []Status{
		StatusFree,
		StatusReserved,
		StatusInTransit,
		StatusBlocked,
		StatusDone,
		StatusEliminated,
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsActive reports whether the status belongs to a live item.
func (s Status) IsActive() bool {
	return s.Valid() && s != StatusEliminated
}

// Progress ranks how far an item has advanced. Eliminated has no rank.
func (s Status) Progress() int {
	switch s {
	case StatusFree:
		return 0
	case StatusReserved:
		return 1
	case StatusInTransit, StatusBlocked:
		return 2
	case StatusDone:
		return 3
	default:
		return -1
	}
}

// ParseStatus resolves the canonical name (case-insensitive).
func ParseStatus(name string) (Status, error) {
	trimmed := strings.TrimSpace(name)
	for s, n := range statusNames {
		if strings.EqualFold(n, trimmed) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
