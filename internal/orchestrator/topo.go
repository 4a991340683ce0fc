package orchestrator

import "fmt"

// Graph is the ordered input to TopologicalSort and ResolveDependencies:
// Names fixes the order ties are broken in (typically the authoring order)
// so the result is deterministic, and Services holds each name's
// normalized config.
type Graph struct {
	Names    []string
	Services map[string]ServiceConfig
}

// SortResult is the result of TopologicalSort.
type SortResult struct {
	Order []string
	Error string
}

// TopologicalSort orders services so every dependency precedes its
// dependent. Ties are broken by the insertion order of g.Names: at each
// step the earliest-authored service with no remaining dependency is
// emitted next, so independent services surface in input order.
func TopologicalSort(g Graph) SortResult {
	for _, name := range g.Names {
		for _, need := range g.Services[name].Needs {
			if _, ok := g.Services[need]; !ok {
				return SortResult{Error: fmt.Sprintf("Unknown dependency: %s", need)}
			}
		}
	}

	remaining := make(map[string]bool, len(g.Names))
	for _, name := range g.Names {
		remaining[name] = true
	}

	var order []string
	for len(remaining) > 0 {
		picked := ""
		for _, name := range g.Names {
			if !remaining[name] {
				continue
			}
			if allSatisfied(g.Services[name].Needs, order) {
				picked = name
				break
			}
		}
		if picked == "" {
			cycle := findCycle(g)
			return SortResult{Error: fmt.Sprintf("Circular dependency: %s", cycle)}
		}
		order = append(order, picked)
		delete(remaining, picked)
	}

	return SortResult{Order: order}
}

func allSatisfied(needs []string, emitted []string) bool {
	done := make(map[string]bool, len(emitted))
	for _, e := range emitted {
		done[e] = true
	}
	for _, need := range needs {
		if !done[need] {
			return false
		}
	}
	return true
}

// findCycle walks the "needs" graph depth-first from each name, in input
// order, and returns the first cycle it finds rendered as "a → b → … → a".
// It is only called once TopologicalSort has already determined a cycle
// exists, so it is guaranteed to find one.
func findCycle(g Graph) string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.Names))
	var stack []string

	var visit func(name string) string
	visit = func(name string) string {
		state[name] = visiting
		stack = append(stack, name)
		for _, need := range g.Services[name].Needs {
			switch state[need] {
			case visiting:
				return cyclePath(stack, need)
			case unvisited:
				if path := visit(need); path != "" {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return ""
	}

	for _, name := range g.Names {
		if state[name] == unvisited {
			if path := visit(name); path != "" {
				return path
			}
		}
	}
	return ""
}

// cyclePath renders the portion of stack from the cycle's entry point
// (where name first appears) back around to name again.
func cyclePath(stack []string, name string) string {
	start := 0
	for i, n := range stack {
		if n == name {
			start = i
			break
		}
	}
	cycle := append([]string{}, stack[start:]...)
	cycle = append(cycle, name)

	out := cycle[0]
	for _, n := range cycle[1:] {
		out += " → " + n
	}
	return out
}

// ResolveResult is the result of ResolveDependencies.
type ResolveResult struct {
	Deps  map[string]bool
	Error string
}

// ResolveDependencies returns the transitive closure of target's "needs",
// including target itself.
func ResolveDependencies(target string, g Graph) ResolveResult {
	if _, ok := g.Services[target]; !ok {
		return ResolveResult{Error: fmt.Sprintf("not found: %s", target)}
	}

	deps := map[string]bool{target: true}
	var walk func(name string) string
	walk = func(name string) string {
		for _, need := range g.Services[name].Needs {
			if _, ok := g.Services[need]; !ok {
				return fmt.Sprintf("not defined: %s", need)
			}
			if deps[need] {
				continue
			}
			deps[need] = true
			if errMsg := walk(need); errMsg != "" {
				return errMsg
			}
		}
		return ""
	}

	if errMsg := walk(target); errMsg != "" {
		return ResolveResult{Error: errMsg}
	}
	return ResolveResult{Deps: deps}
}
