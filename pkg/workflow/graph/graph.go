// Package graph holds the static prerequisite graph over sections and the
// stale-propagation rules that fire when accepted content is edited.
package graph

import (
	"fmt"
	"strings"

	"ai-proposalgen-be/pkg/workflow/state"
)

// Graph maps each section to its direct prerequisites. It is built once at
// startup, validated acyclic, and never mutated afterwards, so concurrent
// reads need no synchronization.
type Graph struct {
	deps       map[state.SectionID][]state.SectionID
	dependents map[state.SectionID][]state.SectionID
	order      []state.SectionID
}

// New validates the prerequisite map and returns an immutable graph. A cycle
// is a configuration error and is reported with the full cycle path.
func New(deps map[state.SectionID][]state.SectionID) (*Graph, error) {
	nodes := make([]state.SectionID, 0, len(deps))
	nodeSet := make(map[state.SectionID]bool, len(deps))
	for id := range deps {
		nodes = append(nodes, id)
		nodeSet[id] = true
	}
	// Prerequisites may name sections that carry no prerequisites themselves.
	for _, prereqs := range deps {
		for _, p := range prereqs {
			if !nodeSet[p] {
				nodes = append(nodes, p)
				nodeSet[p] = true
			}
		}
	}

	g := &Graph{
		deps:       make(map[state.SectionID][]state.SectionID, len(nodes)),
		dependents: make(map[state.SectionID][]state.SectionID, len(nodes)),
	}
	for _, id := range nodes {
		g.deps[id] = append([]state.SectionID(nil), deps[id]...)
	}
	for id, prereqs := range g.deps {
		for _, p := range prereqs {
			g.dependents[p] = append(g.dependents[p], id)
		}
	}

	order, err := topoSort(nodes, g.deps)
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// Dependencies returns the direct prerequisites of a section.
func (g *Graph) Dependencies(id state.SectionID) []state.SectionID {
	return g.deps[id]
}

// AllDependents returns the transitive closure of sections that list id as a
// direct or indirect prerequisite, computed by reverse breadth-first
// traversal. The edited section itself is never included.
func (g *Graph) AllDependents(id state.SectionID) []state.SectionID {
	var out []state.SectionID
	seen := map[state.SectionID]bool{id: true}
	queue := append([]state.SectionID(nil), g.dependents[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	return out
}

// TopoOrder returns a dependency-safe ordering of all known sections.
func (g *Graph) TopoOrder() []state.SectionID {
	return g.order
}

// topoSort runs Kahn's algorithm; on cycle detection it reports the cycle
// path found by DFS over the remaining nodes.
func topoSort(nodes []state.SectionID, deps map[state.SectionID][]state.SectionID) ([]state.SectionID, error) {
	inDegree := make(map[state.SectionID]int, len(nodes))
	forward := make(map[state.SectionID][]state.SectionID)
	for _, n := range nodes {
		inDegree[n] = 0
	}
	for node, prereqs := range deps {
		for _, p := range prereqs {
			inDegree[node]++
			forward[p] = append(forward[p], node)
		}
	}

	var queue []state.SectionID
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	var sorted []state.SectionID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, dep := range forward[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) == len(nodes) {
		return sorted, nil
	}
	return nil, fmt.Errorf("circular section dependency: %s", strings.Join(findCyclePath(nodes, deps), " -> "))
}

func findCyclePath(nodes []state.SectionID, deps map[state.SectionID][]state.SectionID) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[state.SectionID]int)
	parent := make(map[state.SectionID]state.SectionID)
	var cycle []string

	var dfs func(n state.SectionID) bool
	dfs = func(n state.SectionID) bool {
		color[n] = gray
		for _, dep := range deps[n] {
			if color[dep] == gray {
				path := []state.SectionID{dep}
				for cur := n; cur != dep; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, dep)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				for _, id := range path {
					cycle = append(cycle, string(id))
				}
				return true
			}
			if color[dep] == white {
				parent[dep] = n
				if dfs(dep) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for _, n := range nodes {
		if color[n] == white && dfs(n) {
			break
		}
	}
	return cycle
}
