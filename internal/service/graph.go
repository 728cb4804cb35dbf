package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/evently/scheduling-engine/internal/model"
)

// Graph analysis over the session dependency edges. All operations here are
// read-only; they tolerate a slightly stale view and never hold locks.

// DetectCircularDependencies finds every cycle in the event's dependency
// graph. Each cycle is reported as the ordered list of session ids forming
// it. An empty result means the graph is acyclic.
func (s *PrerequisiteService) DetectCircularDependencies(ctx context.Context, eventID string) ([][]string, error) {
	adj, _, err := s.dependencyGraph(ctx, eventID)
	if err != nil {
		return nil, err
	}

	nodes := sortedNodes(adj)

	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // fully explored
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycles [][]string
	seen := make(map[string]bool) // canonical cycle keys, to avoid duplicates

	var visit func(node string)
	visit = func(node string) {
		color[node] = grey
		stack = append(stack, node)

		for _, next := range adj[node] {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				// Back edge: the cycle is the stack suffix from next onward.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := append([]string(nil), stack[i:]...)
						if key := canonicalCycle(cycle); !seen[key] {
							seen[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, node := range nodes {
		if color[node] == white {
			visit(node)
		}
	}
	return cycles, nil
}

// GetSessionDependencyPath returns the shortest dependency path between two
// sessions via BFS. Absence of a path is a normal result, not an error.
func (s *PrerequisiteService) GetSessionDependencyPath(ctx context.Context, fromSessionID, toSessionID string) (*model.DependencyPath, error) {
	from, err := s.sessions.GetSession(ctx, fromSessionID)
	if err != nil {
		return nil, fmt.Errorf("get source session: %w", err)
	}
	adj, _, err := s.dependencyGraph(ctx, from.EventID)
	if err != nil {
		return nil, err
	}

	result := &model.DependencyPath{FromSessionID: fromSessionID, ToSessionID: toSessionID}

	prev := map[string]string{fromSessionID: ""}
	queue := []string{fromSessionID}
	for len(queue) > 0 && !result.Found {
		node := queue[0]
		queue = queue[1:]
		if node == toSessionID {
			result.Found = true
			break
		}
		for _, next := range adj[node] {
			if _, visited := prev[next]; visited {
				continue
			}
			prev[next] = node
			queue = append(queue, next)
		}
	}
	if _, reached := prev[toSessionID]; reached {
		result.Found = true
		for node := toSessionID; node != ""; node = prev[node] {
			result.Path = append([]string{node}, result.Path...)
		}
	}
	return result, nil
}

// AnalyzeDependencyStructure computes fan-in/fan-out per session, the root
// and leaf sessions of the graph and the longest dependency chain.
func (s *PrerequisiteService) AnalyzeDependencyStructure(ctx context.Context, eventID string) (*model.DependencyAnalysis, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	adj, edgeCount, err := s.dependencyGraph(ctx, eventID)
	if err != nil {
		return nil, err
	}

	analysis := &model.DependencyAnalysis{
		SessionCount:    len(sessions),
		DependencyCount: edgeCount,
		FanIn:           make(map[string]int),
		FanOut:          make(map[string]int),
	}
	for parent, dependents := range adj {
		analysis.FanOut[parent] = len(dependents)
		for _, dep := range dependents {
			analysis.FanIn[dep]++
		}
	}

	// Roots and leaves are judged among sessions that participate in the
	// graph at all; isolated sessions are neither.
	for _, node := range sortedNodes(adj) {
		in, out := analysis.FanIn[node], analysis.FanOut[node]
		if in == 0 && out > 0 {
			analysis.RootSessions = append(analysis.RootSessions, node)
		}
		if out == 0 && in > 0 {
			analysis.LeafSessions = append(analysis.LeafSessions, node)
		}
	}

	analysis.LongestChain = longestChain(adj)
	return analysis, nil
}

// dependencyGraph builds the adjacency list for an event. Every endpoint of
// an edge becomes a node.
func (s *PrerequisiteService) dependencyGraph(ctx context.Context, eventID string) (map[string][]string, int, error) {
	edges, err := s.deps.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("list dependencies: %w", err)
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.ParentSessionID] = append(adj[e.ParentSessionID], e.DependentSessionID)
		if _, ok := adj[e.DependentSessionID]; !ok {
			adj[e.DependentSessionID] = nil
		}
	}
	for node := range adj {
		sort.Strings(adj[node])
	}
	return adj, len(edges), nil
}

func sortedNodes(adj map[string][]string) []string {
	nodes := make([]string, 0, len(adj))
	for node := range adj {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// canonicalCycle keys a cycle by rotating it to start at its smallest
// member, so the same loop discovered from different entry points counts
// once.
func canonicalCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	key := ""
	for i := range cycle {
		key += cycle[(minIdx+i)%len(cycle)] + "→"
	}
	return key
}

// longestChain returns the longest simple path following dependency edges.
// A visiting guard keeps it terminating even if the graph currently holds a
// cycle.
func longestChain(adj map[string][]string) []string {
	memo := make(map[string][]string)
	onStack := make(map[string]bool)

	var chase func(node string) []string
	chase = func(node string) []string {
		if cached, ok := memo[node]; ok {
			return cached
		}
		if onStack[node] {
			return nil
		}
		onStack[node] = true
		var best []string
		for _, next := range adj[node] {
			if tail := chase(next); len(tail) > len(best) {
				best = tail
			}
		}
		onStack[node] = false

		chain := append([]string{node}, best...)
		memo[node] = chain
		return chain
	}

	var longest []string
	for _, node := range sortedNodes(adj) {
		if chain := chase(node); len(chain) > len(longest) {
			longest = chain
		}
	}
	if len(longest) < 2 {
		return nil
	}
	return longest
}
