package domain

import dErrors "blockship/pkg/domain-errors"

// DisclosureState is the observable state of the disclosure machine for one
// session. Invariant: the value must be one of the declared states.
//
// Usage: construct via ParseDisclosureState at trust boundaries (store reads,
// API input) to enforce the allowlist; direct casting bypasses validation.
type DisclosureState string

// Declared states. Claiming and Claimed are part of the state space but no
// transition currently produces them: the claim pipeline is a disabled
// extension point whose guards are enforced without a producing call.
const (
	StateIdle            DisclosureState = "idle"
	StateSearching       DisclosureState = "searching"
	StateFound           DisclosureState = "found"
	StateNotFoundOrError DisclosureState = "not_found_or_error"
	StateClaiming        DisclosureState = "claiming"
	StateClaimed         DisclosureState = "claimed"
)

// validDisclosureStates is the single source of truth for the state space.
var validDisclosureStates = map[DisclosureState]bool{
	StateIdle:            true,
	StateSearching:       true,
	StateFound:           true,
	StateNotFoundOrError: true,
	StateClaiming:        true,
	StateClaimed:         true,
}

// ParseDisclosureState constructs a DisclosureState from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a declared
// state; no other errors are expected.
func ParseDisclosureState(s string) (DisclosureState, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "disclosure state cannot be empty")
	}
	st := DisclosureState(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown disclosure state")
	}
	return st, nil
}

// IsValid checks if the state is one of the declared enum values.
func (s DisclosureState) IsValid() bool {
	return validDisclosureStates[s]
}

// IsTerminalSearch reports whether the state is a settled search outcome.
func (s DisclosureState) IsTerminalSearch() bool {
	return s == StateFound || s == StateNotFoundOrError
}

// String returns the string representation of the state.
func (s DisclosureState) String() string {
	return string(s)
}
