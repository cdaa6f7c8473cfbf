// Package graph computes dependency tiers over a resolved process config and
// reports dependency cycles.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Node is the minimal shape the resolver needs from a process: its name and
// its (already-normalized) list of dependency names.
type Node struct {
	Name      string
	DependsOn []string
}

// CycleError reports a dependency cycle found while computing tiers. Members
// lists the cycle in walk order, starting and ending at the same name.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Members, " → "))
}

// Tiers computes an ordered list of tiers: tier k contains exactly the nodes
// whose dependencies all lie in tiers 0..k-1. Nodes within a tier are sorted
// by name for deterministic, presentation-friendly ordering.
//
// Uses Kahn's algorithm with explicit in-degree and reverse-adjacency maps. If
// nodes remain with nonzero in-degree once no further tier can be emitted, a
// single cycle is located by walking DependsOn edges restricted to the
// remaining nodes and returned as a *CycleError.
func Tiers(nodes []Node) ([][]string, error) {
	byName := make(map[string]Node, len(nodes))
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))

	for _, n := range nodes {
		byName[n.Name] = n
		if _, ok := inDegree[n.Name]; !ok {
			inDegree[n.Name] = 0
		}
	}
	for _, n := range nodes {
		inDegree[n.Name] += len(n.DependsOn)
		for _, dep := range n.DependsOn {
			dependents[dep] = append(dependents[dep], n.Name)
		}
	}

	remaining := make(map[string]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	var tiers [][]string
	for len(remaining) > 0 {
		var tier []string
		for name, deg := range remaining {
			if deg == 0 {
				tier = append(tier, name)
			}
		}
		if len(tier) == 0 {
			return nil, findCycle(byName, remaining)
		}
		sort.Strings(tier)
		tiers = append(tiers, tier)
		for _, name := range tier {
			delete(remaining, name)
			for _, dependent := range dependents[name] {
				if _, ok := remaining[dependent]; ok {
					remaining[dependent]--
				}
			}
		}
	}
	return tiers, nil
}

// findCycle walks DependsOn edges restricted to the nodes still in remaining,
// starting from an arbitrary remaining node, until a node is revisited. The
// reported trace starts at that revisit, per spec: "the first revisit closes
// the cycle; the reported trace starts at that revisit."
func findCycle(byName map[string]Node, remaining map[string]int) *CycleError {
	var start string
	for name := range remaining {
		start = name
		break
	}

	visited := make(map[string]int) // name -> position in path
	path := []string{start}
	visited[start] = 0
	current := start

	for {
		node := byName[current]
		var next string
		for _, dep := range node.DependsOn {
			if _, ok := remaining[dep]; ok {
				next = dep
				break
			}
		}
		if next == "" {
			// Shouldn't happen for a true cycle restricted to `remaining`,
			// but guard against malformed input rather than looping forever.
			return &CycleError{Members: append(path, start)}
		}
		if pos, seen := visited[next]; seen {
			trace := append([]string{}, path[pos:]...)
			trace = append(trace, next)
			return &CycleError{Members: trace}
		}
		visited[next] = len(path)
		path = append(path, next)
		current = next
	}
}
