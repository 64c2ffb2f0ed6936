// Package dag holds the latest block-DAG snapshot and derives the filtered,
// searched views the rendering surface draws.
package dag

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dag-console/apperr"
	"dag-console/logger"
	"dag-console/models"
)

// View is a derived subset of the snapshot.
type View struct {
	Nodes []models.Node `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// Surface is the rendering collaborator that can rasterise a view.
type Surface interface {
	RequestSnapshot(view View) ([]byte, error)
}

type graph struct {
	nodes    []models.Node
	byID     map[string]int
	edges    []models.Edge
	children map[string][]string
}

// Model is a pure derived-view computer over the latest snapshot. A snapshot is
// swapped in whole, so readers never observe a mix of two snapshots.
type Model struct {
	mu      sync.RWMutex
	g       *graph
	filters Filters
	term    string
	surface Surface
}

// Option configures a Model.
type Option func(*Model)

// WithSurface sets the collaborator used for image export.
func WithSurface(s Surface) Option {
	return func(m *Model) { m.surface = s }
}

func NewModel(opts ...Option) *Model {
	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadSnapshot replaces the current graph. A snapshot with duplicate ids, invalid
// fields or a parent cycle is rejected as a whole and the previous one stays
// active. Edges with an unknown endpoint are dropped. When edges is empty, the
// parent -> child edges are derived from the nodes' parent hashes.
func (m *Model) LoadSnapshot(nodes []models.Node, edges []models.Edge) error {
	g, pruned, err := build(nodes, edges)
	if err != nil {
		logger.Logger.Warn("Rejected DAG snapshot", zap.Int("nodes", len(nodes)), zap.Error(err))
		return err
	}
	if pruned > 0 {
		logger.Logger.Warn("Dropped dangling edges", zap.Int("dropped", pruned))
	}

	m.mu.Lock()
	m.g = g
	m.mu.Unlock()

	logger.Logger.Info("DAG snapshot loaded",
		zap.Int("nodes", len(g.nodes)), zap.Int("edges", len(g.edges)))
	return nil
}

// Loaded reports whether a snapshot has been accepted.
func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g != nil
}

// NodeByID returns one node of the snapshot.
func (m *Model) NodeByID(id string) (models.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.g != nil {
		if i, ok := m.g.byID[id]; ok {
			return cloneNode(m.g.nodes[i]), nil
		}
	}
	return models.Node{}, apperr.NewNotFound("node", id)
}

func build(nodes []models.Node, edges []models.Edge) (*graph, int, error) {
	g := &graph{
		nodes:    make([]models.Node, 0, len(nodes)),
		byID:     make(map[string]int, len(nodes)),
		children: make(map[string][]string),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, 0, apperr.NewMalformedSnapshot("node without id")
		}
		if _, dup := g.byID[n.ID]; dup {
			return nil, 0, apperr.NewMalformedSnapshot("duplicate node id " + n.ID)
		}
		if n.Level < 0 {
			return nil, 0, apperr.NewMalformedSnapshot(fmt.Sprintf("node %s has negative level", n.ID))
		}
		if n.TransactionCount < 0 {
			return nil, 0, apperr.NewMalformedSnapshot(fmt.Sprintf("node %s has negative transaction count", n.ID))
		}
		if !n.Status.Valid() {
			return nil, 0, apperr.NewMalformedSnapshot(fmt.Sprintf("node %s has unknown status %q", n.ID, n.Status))
		}
		g.byID[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, cloneNode(n))
	}

	if id, ok := findCycle(g); ok {
		return nil, 0, apperr.NewMalformedSnapshot("parent cycle through node " + id)
	}

	if len(edges) == 0 {
		for _, n := range g.nodes {
			for _, p := range n.ParentHashes {
				if _, ok := g.byID[p]; ok {
					edges = append(edges, models.Edge{From: p, To: n.ID})
				}
			}
		}
	}

	pruned := 0
	g.edges = make([]models.Edge, 0, len(edges))
	for _, e := range edges {
		_, okFrom := g.byID[e.From]
		_, okTo := g.byID[e.To]
		if !okFrom || !okTo {
			pruned++
			continue
		}
		g.edges = append(g.edges, e)
		g.children[e.From] = append(g.children[e.From], e.To)
	}
	if !edgesAcyclic(g) {
		return nil, 0, apperr.NewMalformedSnapshot("edges form a cycle")
	}
	return g, pruned, nil
}

// edgesAcyclic runs Kahn's algorithm over the kept edges. Explicit edges are
// not required to mirror parent hashes, so they are checked separately.
func edgesAcyclic(g *graph) bool {
	indegree := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		indegree[e.To]++
	}
	queue := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, c := range g.children[id] {
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return visited == len(g.nodes)
}

// findCycle walks the parent relation restricted to nodes inside the snapshot.
// Parents outside the snapshot window are ignored.
func findCycle(g *graph) (string, bool) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = grey
		for _, p := range g.nodes[g.byID[id]].ParentHashes {
			if _, known := g.byID[p]; !known {
				continue
			}
			switch color[p] {
			case grey:
				return p, true
			case white:
				if c, ok := visit(p); ok {
					return c, true
				}
			}
		}
		color[id] = black
		return "", false
	}

	for _, n := range g.nodes {
		if color[n.ID] == white {
			if id, ok := visit(n.ID); ok {
				return id, true
			}
		}
	}
	return "", false
}

func cloneNode(n models.Node) models.Node {
	n.ParentHashes = append([]string(nil), n.ParentHashes...)
	return n
}
