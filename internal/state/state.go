// Package state implements the Orion interaction state machine: a finite
// set of mutually-exclusive UI states driven by user activity, timers, and
// asynchronous agent replies.
package state

// State is the current interaction state of a session. Exactly one state
// is current at any time; transitions are the only way to change it.
type State int

const (
	// Unauthenticated is the initial state in multi-user mode.
	Unauthenticated State = iota
	// Authenticating runs the fixed-delay login animation.
	Authenticating
	// Booting runs the fixed-delay startup animation.
	Booting
	// Idle is the baseline resting state.
	Idle
	// FocusedEmpty means the input has focus and is empty.
	FocusedEmpty
	// Focused means the input has focus and holds text.
	Focused
	// SystemSearching is the cosmetic scan shown before system-topic turns.
	SystemSearching
	// Processing means a submission is in flight; input is disabled.
	Processing
	// Active is the brief post-reply state for ordinary replies.
	Active
	// SystemSuccess is the brief post-reply state when a fact was stored
	// or the session was reset.
	SystemSuccess
	// AwaitingPermission blocks the session on a user grant/deny decision.
	AwaitingPermission
	// SystemAlert signals a transport or UI failure.
	SystemAlert
	// PreSleep, Squinting and Sleeping are the staged drowsiness sequence.
	PreSleep
	Squinting
	Sleeping
	// Observing is the background watching state in deep conversations.
	Observing
	// Charging and OnBattery are ambient states driven by power
	// notifications; cosmetic only.
	Charging
	OnBattery
)

var stateNames = map[State]string{
	Unauthenticated:    "UNAUTHENTICATED",
	Authenticating:     "AUTHENTICATING",
	Booting:            "BOOTING",
	Idle:               "IDLE",
	FocusedEmpty:       "FOCUSED_EMPTY",
	Focused:            "FOCUSED",
	SystemSearching:    "SYSTEM_SEARCHING",
	Processing:         "PROCESSING",
	Active:             "ACTIVE",
	SystemSuccess:      "SYSTEM_SUCCESS",
	AwaitingPermission: "AWAITING_PERMISSION",
	SystemAlert:        "SYSTEM_ALERT",
	PreSleep:           "PRE_SLEEP",
	Squinting:          "SQUINTING",
	Sleeping:           "SLEEPING",
	Observing:          "OBSERVING",
	Charging:           "CHARGING",
	OnBattery:          "ON_BATTERY",
}

// String returns the wire name of the state as rendered by the frontend.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler so snapshots serialize
// states by wire name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// urgent states take precedence over focus changes and block the sleep
// sequence.
func (s State) urgent() bool {
	switch s {
	case Processing, AwaitingPermission, SystemAlert, SystemSuccess:
		return true
	}
	return false
}

// focusable states may be overridden when the input gains focus or the
// user types.
func (s State) focusable() bool {
	switch s {
	case Idle, FocusedEmpty, Focused, Active, PreSleep, Squinting, Sleeping,
		Observing, Charging, OnBattery:
		return true
	}
	return false
}

// drowsy states are eligible stages of the sleep sequence.
func (s State) drowsy() bool {
	switch s {
	case Idle, PreSleep, Squinting:
		return true
	}
	return false
}
