package alerts

import (
	"fmt"
	"strings"

	"sedori/internal/services"
)

var transitions = map[State][]State{
	StatePending:   {StateYay, StateNay},
	StateYay:       {StatePurchased},
	StatePurchased: {StateShipped},
	StateShipped:   {StateReceived},
	StateReceived:  {StatePosted},
	StatePosted:    {StateSold},
}

// chain is the forward path an accepted item follows.
var chain = []State{StatePending, StateYay, StatePurchased, StateShipped, StateReceived, StatePosted, StateSold}

// LegalNext returns the states directly reachable from s.
func LegalNext(s State) []State {
	next := transitions[s]
	cp := make([]State, len(next))
	copy(cp, next)
	return cp
}

// CanTransition reports whether to is a direct successor of from.
func CanTransition(from, to State) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Policy selects how bulk transitions validate their target.
type Policy string

const (
	// PolicyStrict allows only direct successors.
	PolicyStrict Policy = "strict"
	// PolicyDirect allows any forward jump along the chain. nay is still
	// reachable only from pending.
	PolicyDirect Policy = "direct"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyDirect:
		return PolicyDirect, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "alerts", "parse policy",
			fmt.Sprintf("unknown bulk transition policy %q (valid: strict, direct)", value), nil)
	}
}

// Next returns the targets the policy accepts from s.
func (p Policy) Next(s State) []State {
	if p != PolicyDirect {
		return LegalNext(s)
	}
	if s.IsTerminal() {
		return []State{}
	}
	var out []State
	if s == StatePending {
		out = append(out, StateNay)
	}
	pos := chainIndex(s)
	if pos < 0 {
		return []State{}
	}
	out = append(out, chain[pos+1:]...)
	return out
}

// Allows reports whether the policy accepts from -> to.
func (p Policy) Allows(from, to State) bool {
	for _, s := range p.Next(from) {
		if s == to {
			return true
		}
	}
	return false
}

func chainIndex(s State) int {
	for i, c := range chain {
		if c == s {
			return i
		}
	}
	return -1
}
