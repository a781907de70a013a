// Package database provides the Store interface.
// All graph stores must implement this interface, register themselves,
// optionally provide a `WithInstance` function and pass the tests
// in package database/testing.
package database

import (
	"context"
	"errors"
	"fmt"
	nurl "net/url"
	"sort"
	"sync"
)

var (
	// ErrAlreadyExists is returned by EnsureConstraint and EnsureIndex when
	// an equivalent schema rule is already present.
	ErrAlreadyExists = errors.New("schema rule already exists")

	// ErrNotFound is returned when a Match selects no node.
	ErrNotFound = errors.New("no matching node")
)

var driversMu sync.RWMutex
var drivers = make(map[string]Store)

// Record is a single result row keyed by column name.
type Record map[string]any

// Match selects nodes by label and exact property values.
type Match struct {
	Label string
	Props map[string]any
}

// Node is a node as returned by MatchPath.
type Node struct {
	ID    string
	Props map[string]any
}

// Relationship is a directed edge as returned by MatchPath.
type Relationship struct {
	Type    string
	StartID string
	EndID   string
	Props   map[string]any
}

// Path holds every node carrying a label and every relationship of a type
// between two such nodes. Order is unspecified.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}

// Tx is the set of primitives available inside a transaction.
type Tx interface {
	// Run executes a single statement and collects its records.
	Run(ctx context.Context, query string, params map[string]any) ([]Record, error)

	// CreateNode creates one node with label and props.
	CreateNode(ctx context.Context, label string, props map[string]any) error

	// CreateEdge creates a relationship from the node matched by from to
	// the node matched by to. Both matches must select exactly one node.
	CreateEdge(ctx context.Context, from, to Match, relType string, props map[string]any) error

	// DeleteNode deletes the matched nodes together with all their
	// relationships.
	DeleteNode(ctx context.Context, m Match) error
}

// Store is an interface every graph store must implement.
// The Tx methods on a Store run in their own auto-committed transaction.
// A Store never retries a failed call.
type Store interface {
	Tx

	// Open returns a new store instance configured with parameters
	// coming from the URL string. Migrate will call this function
	// only once per instance.
	Open(url string) (Store, error)

	// Close closes the underlying database instance managed by the store.
	// Migrate will call this function only once per instance.
	Close() error

	// RunInTransaction calls fn inside a single write transaction. The
	// transaction is committed if fn returns nil and rolled back otherwise.
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	// EnsureConstraint creates a uniqueness constraint on label.property.
	// It returns ErrAlreadyExists if the constraint is already present.
	EnsureConstraint(ctx context.Context, label, property string) error

	// EnsureIndex creates an index on label.property.
	// It returns ErrAlreadyExists if an equivalent index is present.
	EnsureIndex(ctx context.Context, label, property string) error

	// MatchPath returns all nodes with label and all relType relationships
	// between them.
	MatchPath(ctx context.Context, label, relType string) (*Path, error)

	// Drop deletes everything in the database.
	Drop(ctx context.Context) error
}

// Open returns a new store instance.
func Open(url string) (Store, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL, did you escape all reserved URL characters? %v", err)
	}

	if u.Scheme == "" {
		return nil, fmt.Errorf("database driver: invalid URL scheme")
	}

	driversMu.RLock()
	d, ok := drivers[u.Scheme]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database driver: unknown driver %v (forgotten import?)", u.Scheme)
	}

	return d.Open(url)
}

// Register globally registers a store.
func Register(name string, store Store) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if store == nil {
		panic("Register store is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("Register called twice for store " + name)
	}
	drivers[name] = store
}

// List lists the registered stores
func List() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
