package dag

import (
	"dag-console/models"
)

// Stats summarises the loaded snapshot.
type Stats struct {
	Nodes      int                       `json:"nodes"`
	Edges      int                       `json:"edges"`
	ByStatus   map[models.NodeStatus]int `json:"by_status"`
	Validators int                       `json:"validators"`
	MaxLevel   int                       `json:"max_level"`
	Tips       int                       `json:"tips"`
}

// Stats returns counts over the whole snapshot, ignoring filters.
func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{ByStatus: map[models.NodeStatus]int{}}
	if m.g == nil {
		return s
	}
	validators := make(map[string]bool)
	for _, n := range m.g.nodes {
		s.ByStatus[n.Status]++
		validators[n.ValidatorID] = true
		if n.Level > s.MaxLevel {
			s.MaxLevel = n.Level
		}
		if len(m.g.children[n.ID]) == 0 {
			s.Tips++
		}
	}
	s.Nodes = len(m.g.nodes)
	s.Edges = len(m.g.edges)
	s.Validators = len(validators)
	return s
}

// Tips returns the nodes no other node in the snapshot builds on.
func (m *Model) Tips() []models.Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tips := []models.Node{}
	if m.g == nil {
		return tips
	}
	for _, n := range m.g.nodes {
		if len(m.g.children[n.ID]) == 0 {
			tips = append(tips, cloneNode(n))
		}
	}
	return tips
}

// CumulativeWeights returns, per node, its direct approvals (children) plus the
// cumulative weight of every child. The surface uses it to size nodes.
func (m *Model) CumulativeWeights() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cumWeight := make(map[string]int64)
	if m.g == nil {
		return cumWeight
	}
	children := m.g.children

	// memoized DFS along children; the snapshot is acyclic so recursion ends at tips
	var computeCum func(id string) int64
	computeCum = func(id string) int64 {
		if v, ok := cumWeight[id]; ok {
			return v
		}
		sum := int64(len(children[id]))
		for _, childID := range children[id] {
			sum += computeCum(childID)
		}
		cumWeight[id] = sum
		return sum
	}

	for _, n := range m.g.nodes {
		_ = computeCum(n.ID)
	}
	return cumWeight
}
