// Package ledger is the attendance state machine. It decides, from a
// student's current daily state and the clock, whether an entry or exit
// attempt is accepted and which mutations follow. The decisions are pure;
// applying them transactionally is the persistence layer's job.
package ledger

import "time"

// Status is a student's attendance state for the current day.
type Status string

const (
	StatusAbsent  Status = "Absent"
	StatusPresent Status = "Present"
	StatusExited  Status = "Exited"
)

// Mode selects which side of the attendance workflow a recognition drives.
type Mode string

const (
	ModeEntry Mode = "entry"
	ModeExit  Mode = "exit"
)

// ValidMode reports whether m is a recognized mode value.
func ValidMode(m Mode) bool {
	return m == ModeEntry || m == ModeExit
}

// Outcome classifies the result of an entry/exit attempt. Rejections are
// expected business outcomes, not errors.
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeCooldown   Outcome = "cooldown"
	OutcomeNotPresent Outcome = "not_present"
)

// DefaultCooldown guards against a continuous video stream re-recognizing the
// same person across consecutive frames.
const DefaultCooldown = 30 * time.Minute

// State is the per-student daily snapshot the machine decides on. A zero
// LastEntryTime means the student has never entered.
type State struct {
	Status        Status
	LastEntryTime time.Time
	TotalPresent  int
}

// Decision is the outcome of one attempt plus the mutations to apply when
// accepted. Rejected decisions mutate nothing.
type Decision struct {
	Outcome Outcome

	// Set on accepted decisions.
	NewStatus Status

	// Entry acceptance: stamp last_entry_time, bump total_present, and append
	// a new open attendance event.
	NewLastEntry     time.Time
	IncrementPresent bool
	OpenEvent        bool

	// Exit acceptance: stamp exit_time on the day's open event.
	CloseEvent bool
}

// Accepted reports whether the attempt went through.
func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeAccepted
}

// DecideEntry evaluates an entry attempt. An attempt strictly inside the
// cooldown window after the last accepted entry is rejected; an attempt at
// exactly last_entry_time + cooldown is accepted (the rejection condition is
// strictly now-last < cooldown). A student never seen before always passes.
func DecideEntry(st State, now time.Time, cooldown time.Duration) Decision {
	if !st.LastEntryTime.IsZero() && now.Sub(st.LastEntryTime) < cooldown {
		return Decision{Outcome: OutcomeCooldown}
	}
	return Decision{
		Outcome:          OutcomeAccepted,
		NewStatus:        StatusPresent,
		NewLastEntry:     now,
		IncrementPresent: true,
		OpenEvent:        true,
	}
}

// DecideExit evaluates an exit attempt. Only a Present student can exit;
// total_present is untouched, exit only marks departure.
func DecideExit(st State) Decision {
	if st.Status != StatusPresent {
		return Decision{Outcome: OutcomeNotPresent}
	}
	return Decision{
		Outcome:    OutcomeAccepted,
		NewStatus:  StatusExited,
		CloseEvent: true,
	}
}

// Decide dispatches on mode.
func Decide(st State, mode Mode, now time.Time, cooldown time.Duration) Decision {
	if mode == ModeExit {
		return DecideExit(st)
	}
	return DecideEntry(st, now, cooldown)
}
