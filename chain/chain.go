// Package chain persists the applied migration history as a path of nodes
// linked by MIGRATED_TO relationships, starting at a BASELINE node.
package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/graphmigrate/version"
)

const (
	DefaultLabel = "__Neo4jMigration"
	RelType      = "MIGRATED_TO"
)

var ErrBrokenChain = errors.New("broken migration chain")

// Entry is an applied migration as stored on its node.
type Entry struct {
	Version     string
	Description string
	Checksum    string
	Source      string
	Type        string
}

// Link is a MIGRATED_TO relationship between two versions.
type Link struct {
	From      string
	To        string
	AppliedAt time.Time
	Duration  time.Duration
}

// Chain is a snapshot of the stored history.
type Chain struct {
	HasBaseline bool

	// Entries are sorted by version, the baseline is not included.
	Entries []Entry
	Links   []Link
}

func (c *Chain) Versions() []string {
	versions := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		versions = append(versions, e.Version)
	}
	return versions
}

func (c *Chain) Entry(v string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Version == v {
			return e, true
		}
	}
	return Entry{}, false
}

// Incoming returns the link ending at version v.
func (c *Chain) Incoming(v string) (Link, bool) {
	for _, l := range c.Links {
		if l.To == v {
			return l, true
		}
	}
	return Link{}, false
}

// HasLink reports whether from is directly linked to to.
func (c *Chain) HasLink(from, to string) bool {
	for _, l := range c.Links {
		if l.From == from && l.To == to {
			return true
		}
	}
	return false
}

// Tail returns the version of the only node without an outgoing link, or
// version.Baseline if nothing has been applied yet.
func (c *Chain) Tail() (string, error) {
	if len(c.Entries) == 0 {
		return version.Baseline, nil
	}

	outgoing := make(map[string]bool, len(c.Links))
	for _, l := range c.Links {
		outgoing[l.From] = true
	}

	var candidates []string
	if c.HasBaseline && !outgoing[version.Baseline] {
		candidates = append(candidates, version.Baseline)
	}
	for _, e := range c.Entries {
		if !outgoing[e.Version] {
			candidates = append(candidates, e.Version)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("%w: no node without outgoing %s", ErrBrokenChain, RelType)
	default:
		return "", fmt.Errorf("%w: %d nodes without outgoing %s: %v", ErrBrokenChain, len(candidates), RelType, candidates)
	}
}
