// Package stub is an in-memory graph store. It keeps nodes, relationships,
// constraints and indexes in memory and honours transactions, so engine
// tests can run without a database server. Statements passed to Run are
// recorded, not interpreted.
package stub

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/golang-migrate/graphmigrate/database"
)

func init() {
	database.Register("stub", &Stub{})
}

type Config struct{}

type node struct {
	id    string
	label string
	props map[string]any
}

type relationship struct {
	typ   string
	start string
	end   string
	props map[string]any
}

type graph struct {
	nodes       []*node
	rels        []*relationship
	constraints map[string]bool
	indexes     map[string]bool
}

func newGraph() *graph {
	return &graph{
		constraints: make(map[string]bool),
		indexes:     make(map[string]bool),
	}
}

func (g *graph) clone() *graph {
	c := newGraph()
	for _, n := range g.nodes {
		c.nodes = append(c.nodes, &node{id: n.id, label: n.label, props: copyProps(n.props)})
	}
	for _, r := range g.rels {
		c.rels = append(c.rels, &relationship{typ: r.typ, start: r.start, end: r.end, props: copyProps(r.props)})
	}
	for k, v := range g.constraints {
		c.constraints[k] = v
	}
	for k, v := range g.indexes {
		c.indexes[k] = v
	}
	return c
}

type Stub struct {
	Url      string
	Instance interface{}
	Config   *Config

	// Executed holds every statement passed to Run, including statements
	// of transactions that were rolled back.
	Executed []string

	mu     sync.Mutex
	g      *graph
	failOn map[string]error
}

func (s *Stub) Open(url string) (database.Store, error) {
	return &Stub{
		Url:    url,
		Config: &Config{},
		g:      newGraph(),
		failOn: make(map[string]error),
	}, nil
}

func WithInstance(instance interface{}, config *Config) (database.Store, error) {
	if config == nil {
		config = &Config{}
	}
	return &Stub{
		Instance: instance,
		Config:   config,
		g:        newGraph(),
		failOn:   make(map[string]error),
	}, nil
}

// FailOn makes Run return err whenever query is executed.
func (s *Stub) FailOn(query string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[query] = err
}

func (s *Stub) Close() error {
	return nil
}

func (s *Stub) RunInTransaction(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &stubTx{s: s, g: s.g.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.g = tx.g
	return nil
}

func (s *Stub) Run(ctx context.Context, query string, params map[string]any) (records []database.Record, err error) {
	err = s.RunInTransaction(ctx, func(tx database.Tx) error {
		records, err = tx.Run(ctx, query, params)
		return err
	})
	return records, err
}

func (s *Stub) CreateNode(ctx context.Context, label string, props map[string]any) error {
	return s.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.CreateNode(ctx, label, props)
	})
}

func (s *Stub) CreateEdge(ctx context.Context, from, to database.Match, relType string, props map[string]any) error {
	return s.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.CreateEdge(ctx, from, to, relType, props)
	})
}

func (s *Stub) DeleteNode(ctx context.Context, m database.Match) error {
	return s.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.DeleteNode(ctx, m)
	})
}

func (s *Stub) EnsureConstraint(ctx context.Context, label, property string) error {
	return s.ensureRule(ctx, func(g *graph) map[string]bool { return g.constraints }, label, property)
}

func (s *Stub) EnsureIndex(ctx context.Context, label, property string) error {
	return s.ensureRule(ctx, func(g *graph) map[string]bool { return g.indexes }, label, property)
}

func (s *Stub) ensureRule(ctx context.Context, rules func(*graph) map[string]bool, label, property string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := label + "." + property
	if rules(s.g)[key] {
		return database.ErrAlreadyExists
	}
	rules(s.g)[key] = true
	return nil
}

func (s *Stub) MatchPath(ctx context.Context, label, relType string) (*database.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &database.Path{}
	ids := make(map[string]bool)
	for _, n := range s.g.nodes {
		if n.label != label {
			continue
		}
		ids[n.id] = true
		p.Nodes = append(p.Nodes, database.Node{ID: n.id, Props: copyProps(n.props)})
	}
	for _, r := range s.g.rels {
		if r.typ != relType || !ids[r.start] || !ids[r.end] {
			continue
		}
		p.Relationships = append(p.Relationships, database.Relationship{
			Type:    r.typ,
			StartID: r.start,
			EndID:   r.end,
			Props:   copyProps(r.props),
		})
	}
	return p, nil
}

func (s *Stub) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g = newGraph()
	return nil
}

// stubTx works on a private copy of the graph that replaces the store's
// graph on commit.
type stubTx struct {
	s *Stub
	g *graph
}

func (tx *stubTx) Run(ctx context.Context, query string, params map[string]any) ([]database.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx.s.Executed = append(tx.s.Executed, query)
	if err := tx.s.failOn[query]; err != nil {
		return nil, err
	}
	return nil, nil
}

func (tx *stubTx) CreateNode(ctx context.Context, label string, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for key, v := range props {
		if !tx.g.constraints[label+"."+key] {
			continue
		}
		for _, n := range tx.g.nodes {
			if n.label == label && reflect.DeepEqual(n.props[key], v) {
				return fmt.Errorf("node(%s) already exists with label `%s` and property `%s` = %v", n.id, label, key, v)
			}
		}
	}
	tx.g.nodes = append(tx.g.nodes, &node{id: uuid.NewString(), label: label, props: copyProps(props)})
	return nil
}

func (tx *stubTx) CreateEdge(ctx context.Context, from, to database.Match, relType string, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start, err := tx.single(from)
	if err != nil {
		return err
	}
	end, err := tx.single(to)
	if err != nil {
		return err
	}
	tx.g.rels = append(tx.g.rels, &relationship{typ: relType, start: start.id, end: end.id, props: copyProps(props)})
	return nil
}

func (tx *stubTx) DeleteNode(ctx context.Context, m database.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deleted := make(map[string]bool)
	nodes := tx.g.nodes[:0]
	for _, n := range tx.g.nodes {
		if matches(n, m) {
			deleted[n.id] = true
			continue
		}
		nodes = append(nodes, n)
	}
	tx.g.nodes = nodes

	rels := tx.g.rels[:0]
	for _, r := range tx.g.rels {
		if deleted[r.start] || deleted[r.end] {
			continue
		}
		rels = append(rels, r)
	}
	tx.g.rels = rels
	return nil
}

func (tx *stubTx) single(m database.Match) (*node, error) {
	var found *node
	for _, n := range tx.g.nodes {
		if !matches(n, m) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("more than one %s node matches %v", m.Label, m.Props)
		}
		found = n
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s %v", database.ErrNotFound, m.Label, m.Props)
	}
	return found, nil
}

func matches(n *node, m database.Match) bool {
	if n.label != m.Label {
		return false
	}
	for k, v := range m.Props {
		if !reflect.DeepEqual(n.props[k], v) {
			return false
		}
	}
	return true
}

func copyProps(props map[string]any) map[string]any {
	c := make(map[string]any, len(props))
	for k, v := range props {
		c[k] = v
	}
	return c
}
