// Package graph finds simple paths between callbacks over the directed
// edges of an architecture.
package graph

import "sort"

// Branch is one directed edge between two vertices, identified by name.
type Branch struct {
	From string
	To   string
}

// Searcher answers path queries over a fixed set of branches. Duplicate
// branches collapse to one edge. A Searcher is safe for concurrent use once
// built.
type Searcher struct {
	adjacency map[string][]string
}

// NewSearcher builds the adjacency structure for the given branches.
func NewSearcher(branches []Branch) *Searcher {
	adjacency := map[string][]string{}
	seen := map[Branch]struct{}{}
	for _, br := range branches {
		if _, dup := seen[br]; dup {
			continue
		}
		seen[br] = struct{}{}
		adjacency[br.From] = append(adjacency[br.From], br.To)
	}
	// Deterministic traversal order regardless of branch input order.
	for _, next := range adjacency {
		sort.Strings(next)
	}
	return &Searcher{adjacency: adjacency}
}

// Search returns every simple path from start to end, in depth-first order.
// No vertex repeats within a path, so cycles terminate naturally. Equal
// start and end yield the single-vertex degenerate path. An empty result is
// a valid answer, not an error.
func (s *Searcher) Search(start, end string) [][]string {
	if start == end {
		return [][]string{{start}}
	}

	var paths [][]string
	visited := map[string]struct{}{start: {}}
	path := []string{start}

	var walk func(vertex string)
	walk = func(vertex string) {
		for _, next := range s.adjacency[vertex] {
			if next == end {
				found := make([]string, len(path)+1)
				copy(found, path)
				found[len(path)] = end
				paths = append(paths, found)
				continue
			}
			if _, ok := visited[next]; ok {
				continue
			}
			visited[next] = struct{}{}
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			delete(visited, next)
		}
	}
	walk(start)

	return paths
}
