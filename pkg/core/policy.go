package core

import (
	"fmt"
	"strings"
)

// Policy controls what happens when a scheduled instant arrives while
// previously dispatched work may still be running.
type Policy string

const (
	// PolicyAllow dispatches every fire without waiting; executions may overlap.
	PolicyAllow Policy = "allow"

	// PolicySkip waits for the running work, then discards an instant that
	// lapsed meanwhile instead of firing it back-to-back.
	PolicySkip Policy = "skip"

	// PolicyWait waits for the running work and fires a lapsed instant
	// immediately.
	PolicyWait Policy = "wait"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyWait

// ParsePolicy parses a policy name. An empty string yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPolicy, nil
	case "allow":
		return PolicyAllow, nil
	case "skip":
		return PolicySkip, nil
	case "wait":
		return PolicyWait, nil
	default:
		return "", fmt.Errorf("%w %q: must be \"allow\", \"skip\" or \"wait\"", ErrInvalidPolicy, s)
	}
}

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAllow, PolicySkip, PolicyWait:
		return true
	}
	return false
}

// AwaitsCompletion reports whether the loop blocks on the completion
// signal after each dispatch.
func (p Policy) AwaitsCompletion() bool {
	return p != PolicyAllow
}

func (p Policy) String() string { return string(p) }
