package pool

import "fmt"

// Policy decides which worker drains a submitted item.
type Policy int

const (
	// PolicyShared puts every item on one queue shared by all workers.
	// Whichever worker is draining takes the next item.
	PolicyShared Policy = iota

	// PolicyLeastLoaded gives every worker its own queue and assigns each
	// item to the worker with the fewest remaining declared bytes, lowest
	// index first on ties.
	PolicyLeastLoaded
)

// ParsePolicy parses "shared" or "least-loaded".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "shared":
		return PolicyShared, nil
	case "least-loaded":
		return PolicyLeastLoaded, nil
	default:
		return 0, configError("policy", fmt.Errorf("%w: %q", ErrUnknownPolicy, s))
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyShared:
		return "shared"
	case PolicyLeastLoaded:
		return "least-loaded"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}
