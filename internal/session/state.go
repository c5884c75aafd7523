// SPDX-License-Identifier: MIT
package session

// State is the lifecycle phase of a session.
type State int

const (
	Idle State = iota
	Recording
	Processing
	Completed
	Error
)

var stateNames = [...]string{
	Idle:       "idle",
	Recording:  "recording",
	Processing: "processing",
	Completed:  "completed",
	Error:      "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == Completed || s == Error
}
