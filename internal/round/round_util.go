package round

import (
	"slices"
	"time"
)

const DefaultDurationSec = 10

var AllowedDurations = []int{5, 10, 20}

func NewEmptyState() State {
	return State{}
}

func ValidDuration(sec int) bool {
	return slices.Contains(AllowedDurations, sec)
}

// ResolveDuration applies the default when nothing was requested.
func ResolveDuration(requested *int) (int, error) {
	if requested == nil {
		return DefaultDurationSec, nil
	}
	if !ValidDuration(*requested) {
		return 0, ErrInvalidDuration
	}
	return *requested, nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func DerivePhase(s State, now time.Time) Phase {
	if s.Current == nil {
		return PhasePending
	}
	if s.Current.IsResolved(now) {
		return PhaseResolved
	}
	return PhaseActive
}
