package catalog

import (
	"slices"
)

// dependencyGraph maps a derived column to the derived columns it reads.
// Raw fields are leaves and never appear as nodes.
type dependencyGraph map[string][]string

func buildDependencyGraph(columns map[string]Resolver) dependencyGraph {
	graph := make(dependencyGraph, len(columns))
	for name, r := range columns {
		edges := []string{}
		for _, dep := range r.Deps {
			if _, derived := columns[dep]; derived {
				edges = append(edges, dep)
			}
		}
		graph[name] = edges
	}
	return graph
}

// findCycle returns one dependency cycle as a path whose first member is
// repeated at the end (["a", "b", "a"]), or nil if the graph is acyclic.
//
// Nodes are visited in sorted order so the reported cycle is deterministic.
func findCycle(graph dependencyGraph) []string {
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			return cyclePath(scc, graph)
		}
	}
	return nil
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cyclePath returns the shortest cycle through the SCC's smallest member,
// found breadth-first over edges inside the SCC.
func cyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)

	parent := map[string]string{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, w := range graph[current] {
			if w == start {
				path := []string{start}
				for n := current; n != start; n = parent[n] {
					path = append(path, n)
				}
				slices.Reverse(path[1:])
				return append(path, start)
			}
			if _, seen := parent[w]; members[w] && !seen {
				parent[w] = current
				queue = append(queue, w)
			}
		}
	}
	return []string{start, start}
}
