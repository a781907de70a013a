// Package testing has the database tests.
// All graph stores must pass the Test function.
// This lives in it's own package so it stays a test dependency.
package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golang-migrate/graphmigrate/database"
)

const (
	testLabel   = "StoreTestNode"
	testRelType = "STORE_TEST_NEXT"
)

// Test runs tests against store implementations. statement must be a valid
// statement for the store, badStatement one that fails.
func Test(t *testing.T, s database.Store, statement, badStatement string) {
	TestEnsureConstraint(t, s)
	TestEnsureIndex(t, s)
	TestRun(t, s, statement, badStatement)
	TestNodesAndEdges(t, s)
	TestRollback(t, s)
	// Drop wipes everything, so test it last.
	TestDrop(t, s)
}

func TestEnsureConstraint(t *testing.T, s database.Store) {
	ctx := context.Background()

	err := s.EnsureConstraint(ctx, testLabel, "key")
	if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
		t.Fatal(err)
	}

	err = s.EnsureConstraint(ctx, testLabel, "key")
	assert.ErrorIs(t, err, database.ErrAlreadyExists, "second EnsureConstraint")
}

func TestEnsureIndex(t *testing.T, s database.Store) {
	ctx := context.Background()

	err := s.EnsureIndex(ctx, testLabel, "name")
	if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
		t.Fatal(err)
	}

	err = s.EnsureIndex(ctx, testLabel, "name")
	assert.ErrorIs(t, err, database.ErrAlreadyExists, "second EnsureIndex")
}

func TestRun(t *testing.T, s database.Store, statement, badStatement string) {
	ctx := context.Background()

	_, err := s.Run(ctx, statement, nil)
	require.NoError(t, err)

	_, err = s.Run(ctx, badStatement, nil)
	assert.Error(t, err)
}

func TestNodesAndEdges(t *testing.T, s database.Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateNode(ctx, testLabel, map[string]any{"key": "a"}))
	require.NoError(t, s.CreateNode(ctx, testLabel, map[string]any{"key": "b"}))
	require.NoError(t, s.CreateNode(ctx, testLabel, map[string]any{"key": "c"}))

	// uniqueness constraint from TestEnsureConstraint
	assert.Error(t, s.CreateNode(ctx, testLabel, map[string]any{"key": "a"}))

	a := database.Match{Label: testLabel, Props: map[string]any{"key": "a"}}
	b := database.Match{Label: testLabel, Props: map[string]any{"key": "b"}}
	c := database.Match{Label: testLabel, Props: map[string]any{"key": "c"}}
	require.NoError(t, s.CreateEdge(ctx, a, b, testRelType, map[string]any{"n": int64(1)}))
	require.NoError(t, s.CreateEdge(ctx, b, c, testRelType, map[string]any{"n": int64(2)}))

	missing := database.Match{Label: testLabel, Props: map[string]any{"key": "zzz"}}
	assert.Error(t, s.CreateEdge(ctx, a, missing, testRelType, nil))

	p, err := s.MatchPath(ctx, testLabel, testRelType)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 3)
	require.Len(t, p.Relationships, 2)

	keys := keysByID(p)
	edges := make(map[string]any)
	for _, r := range p.Relationships {
		edges[keys[r.StartID]+"->"+keys[r.EndID]] = r.Props["n"]
	}
	assert.Equal(t, map[string]any{"a->b": int64(1), "b->c": int64(2)}, edges)

	// detach delete removes incident relationships
	require.NoError(t, s.DeleteNode(ctx, b))
	p, err = s.MatchPath(ctx, testLabel, testRelType)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 2)
	assert.Len(t, p.Relationships, 0)
}

func TestRollback(t *testing.T, s database.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(tx database.Tx) error {
		if err := tx.CreateNode(ctx, testLabel, map[string]any{"key": "rolled-back"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.MatchPath(ctx, testLabel, testRelType)
	require.NoError(t, err)
	for _, n := range p.Nodes {
		assert.NotEqual(t, "rolled-back", n.Props["key"])
	}

	err = s.RunInTransaction(ctx, func(tx database.Tx) error {
		return tx.CreateNode(ctx, testLabel, map[string]any{"key": "committed"})
	})
	require.NoError(t, err)

	p, err = s.MatchPath(ctx, testLabel, testRelType)
	require.NoError(t, err)
	assert.Contains(t, keysByID(p), idOf(p, "committed"))
}

func TestDrop(t *testing.T, s database.Store) {
	ctx := context.Background()
	require.NoError(t, s.Drop(ctx))

	p, err := s.MatchPath(ctx, testLabel, testRelType)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 0)
}

func keysByID(p *database.Path) map[string]string {
	keys := make(map[string]string, len(p.Nodes))
	for _, n := range p.Nodes {
		k, _ := n.Props["key"].(string)
		keys[n.ID] = k
	}
	return keys
}

func idOf(p *database.Path, key string) string {
	for _, n := range p.Nodes {
		if n.Props["key"] == key {
			return n.ID
		}
	}
	return ""
}
