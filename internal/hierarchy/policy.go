package hierarchy

import "fmt"

// Placement policy names accepted by PolicyByName.
const (
	PolicyDefault  = "default"
	PolicyAdjacent = "adjacent"
)

// Policy decides where moved nodes land.
type Policy interface {
	// PromoteIndex returns the insertion index for a promoted node in a
	// destination list of length n. formerParent is the position of the
	// node's old parent in that list, or -1. topLevel reports whether the
	// destination is the document's top-level list.
	PromoteIndex(n, formerParent int, topLevel bool) int

	// DemoteIndex returns the insertion index for a demoted node among the
	// n existing children of its new parent.
	DemoteIndex(n int) int
}

// DefaultPolicy inserts a promoted node right after its former parent,
// except at the top level where it is appended. Demoted nodes become the
// last child.
type DefaultPolicy struct{}

func (DefaultPolicy) PromoteIndex(n, formerParent int, topLevel bool) int {
	if topLevel || formerParent < 0 {
		return n
	}
	return formerParent + 1
}

func (DefaultPolicy) DemoteIndex(n int) int { return n }

// AdjacentPolicy always inserts a promoted node right after its former
// parent, including at the top level. Demoted nodes become the last child.
type AdjacentPolicy struct{}

func (AdjacentPolicy) PromoteIndex(n, formerParent int, _ bool) int {
	if formerParent < 0 {
		return n
	}
	return formerParent + 1
}

func (AdjacentPolicy) DemoteIndex(n int) int { return n }

// PolicyByName returns the named placement policy. An empty name selects
// DefaultPolicy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", PolicyDefault:
		return DefaultPolicy{}, nil
	case PolicyAdjacent:
		return AdjacentPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown placement policy %q (want %s or %s)", name, PolicyDefault, PolicyAdjacent)
}

func clampIndex(i, n int) int {
	return max(0, min(i, n))
}
