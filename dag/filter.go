package dag

import (
	"slices"
	"strings"

	"dag-console/models"
)

// TxBucket is an inclusive transaction-count range. Max < 0 means unbounded.
type TxBucket struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether n lies in the bucket.
func (b TxBucket) Contains(n int) bool {
	return n >= b.Min && (b.Max < 0 || n <= b.Max)
}

// DefaultTxBuckets are the buckets offered by the filter panel.
var DefaultTxBuckets = []TxBucket{
	{Min: 0, Max: 0},
	{Min: 1, Max: 10},
	{Min: 11, Max: 50},
	{Min: 51, Max: -1},
}

// Filters is a predicate set. Categories combine with AND, values inside a
// category with OR. An empty category does not constrain.
type Filters struct {
	Validators []string            `json:"validators,omitempty"`
	Levels     []int               `json:"levels,omitempty"`
	Statuses   []models.NodeStatus `json:"statuses,omitempty"`
	TxBuckets  []TxBucket          `json:"tx_buckets,omitempty"`
}

// Active reports whether any category constrains.
func (f Filters) Active() bool {
	return len(f.Validators) > 0 || len(f.Levels) > 0 || len(f.Statuses) > 0 || len(f.TxBuckets) > 0
}

// Match reports whether n satisfies every active category.
func (f Filters) Match(n models.Node) bool {
	if len(f.Validators) > 0 && !slices.Contains(f.Validators, n.ValidatorID) {
		return false
	}
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, n.Level) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, n.Status) {
		return false
	}
	if len(f.TxBuckets) > 0 {
		in := false
		for _, b := range f.TxBuckets {
			if b.Contains(n.TransactionCount) {
				in = true
				break
			}
		}
		if !in {
			return false
		}
	}
	return true
}

// matchTerm is a case-insensitive substring match on label, validator and hash.
// term must already be lower-cased.
func matchTerm(n models.Node, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Label), term) ||
		strings.Contains(strings.ToLower(n.ValidatorID), term) ||
		strings.Contains(strings.ToLower(n.Hash), term)
}

// ApplyFilters makes f the active predicate set and returns the resulting view.
func (m *Model) ApplyFilters(f Filters) View {
	m.mu.Lock()
	m.filters = f
	m.mu.Unlock()
	return m.View()
}

// ClearFilters drops the active predicate set and search term.
func (m *Model) ClearFilters() View {
	m.mu.Lock()
	m.filters = Filters{}
	m.term = ""
	m.mu.Unlock()
	return m.View()
}

// Search makes term the active search and returns the resulting view.
// An empty term clears the search.
func (m *Model) Search(term string) View {
	m.mu.Lock()
	m.term = strings.ToLower(strings.TrimSpace(term))
	m.mu.Unlock()
	return m.View()
}

// ActiveFilters returns the predicate set and search term currently applied.
func (m *Model) ActiveFilters() (Filters, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filters, m.term
}

// View returns the nodes passing the active filters and search, in snapshot
// order, plus the edges whose endpoints both survive.
func (m *Model) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewLocked()
}

func (m *Model) viewLocked() View {
	v := View{Nodes: []models.Node{}, Edges: []models.Edge{}}
	if m.g == nil {
		return v
	}

	kept := make(map[string]bool, len(m.g.nodes))
	for _, n := range m.g.nodes {
		if m.filters.Match(n) && matchTerm(n, m.term) {
			kept[n.ID] = true
			v.Nodes = append(v.Nodes, cloneNode(n))
		}
	}
	for _, e := range m.g.edges {
		if kept[e.From] && kept[e.To] {
			v.Edges = append(v.Edges, e)
		}
	}
	return v
}
