package classification

import (
	"github.com/shopspring/decimal"

	"cablesync/internal/inventory"
)

// Rule matches a status transition. Empty From/To sets match any status; a nil
// Flagged matches both flagged and unflagged rows.
type Rule struct {
	Name    string
	From    []inventory.Status
	To      []inventory.Status
	Flagged *bool
	Outcome inventory.Outcome
}

func (r Rule) matches(oldStatus, newStatus inventory.Status, flagged bool) bool {
	if r.Flagged != nil && *r.Flagged != flagged {
		return false
	}
	return containsOrAny(r.From, oldStatus) && containsOrAny(r.To, newStatus)
}

func containsOrAny(set []inventory.Status, s inventory.Status) bool {
	if len(set) == 0 {
		return true
	}
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

// DefaultRegressionEpsilon is the largest decrease of a progress measure still
// treated as noise rather than lost work.
var DefaultRegressionEpsilon = decimal.RequireFromString("0.01")

func statusesWhere(keep func(inventory.Status) bool) []inventory.Status {
	var out []inventory.Status
	for _, s := range inventory.AllStatuses() {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func activeStatuses() []inventory.Status {
	return statusesWhere(inventory.Status.IsActive)
}

// Work has started once an item reaches the progress rank of InTransit.
func beforeWork() []inventory.Status {
	return statusesWhere(func(s inventory.Status) bool {
		return s.IsActive() && s.Progress() < inventory.StatusInTransit.Progress()
	})
}

func afterWork() []inventory.Status {
	return statusesWhere(func(s inventory.Status) bool {
		return s.Progress() >= inventory.StatusInTransit.Progress()
	})
}

// DefaultRules is the transition table for cable inventory imports. Order matters:
// the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "eliminated_before_work",
			From: beforeWork(),
			To:   []inventory.Status{inventory.StatusEliminated},
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeEliminated,
				Severity:   inventory.SeverityWarn,
			},
		},
		{
			Name: "eliminated_after_work",
			From: afterWork(),
			To:   []inventory.Status{inventory.StatusEliminated},
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeEliminated,
				Severity:   inventory.SeverityBlock,
			},
		},
		{
			Name: "reinstated",
			From: []inventory.Status{inventory.StatusEliminated},
			To:   activeStatuses(),
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeReinstated,
				Severity:   inventory.SeverityWarn,
			},
		},
		{
			Name: "rework_reopened",
			From: []inventory.Status{inventory.StatusDone},
			To:   beforeWork(),
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeReworkReopened,
				Severity:   inventory.SeverityWarn,
			},
		},
		{
			Name: "rework_returned",
			From: []inventory.Status{inventory.StatusDone},
			To:   []inventory.Status{inventory.StatusInTransit},
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeReworkReturned,
				Severity:   inventory.SeverityWarn,
			},
		},
		{
			Name: "rework_blocked",
			From: []inventory.Status{inventory.StatusDone},
			To:   []inventory.Status{inventory.StatusBlocked},
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeReworkBlocked,
				Severity:   inventory.SeverityWarn,
			},
		},
		{
			Name: "status_changed",
			From: activeStatuses(),
			To:   activeStatuses(),
			Outcome: inventory.Outcome{
				ChangeType: inventory.ChangeStatusChanged,
				Severity:   inventory.SeverityInfo,
			},
		},
	}
}

// DefaultSafeToDisappear lists prior statuses whose disappearance is an expected lifecycle end.
func DefaultSafeToDisappear() []inventory.Status {
	return []inventory.Status{inventory.StatusEliminated}
}
