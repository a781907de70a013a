package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-migrate/graphmigrate/database"
	"github.com/golang-migrate/graphmigrate/version"
)

const versionProperty = "version"

type Config struct {
	// Label of every chain node, DefaultLabel when empty.
	Label string
}

// Repository reads and writes the chain through a database.Store.
type Repository struct {
	store  database.Store
	config Config
}

func New(store database.Store, config Config) *Repository {
	if config.Label == "" {
		config.Label = DefaultLabel
	}
	return &Repository{store: store, config: config}
}

func (r *Repository) Label() string {
	return r.config.Label
}

// EnsureBaseline creates the uniqueness constraint, the version index and
// the baseline node unless they already exist.
func (r *Repository) EnsureBaseline(ctx context.Context) error {
	if err := r.store.EnsureConstraint(ctx, r.config.Label, versionProperty); err != nil && !errors.Is(err, database.ErrAlreadyExists) {
		return fmt.Errorf("ensure constraint on %s.%s: %w", r.config.Label, versionProperty, err)
	}
	if err := r.store.EnsureIndex(ctx, r.config.Label, versionProperty); err != nil && !errors.Is(err, database.ErrAlreadyExists) {
		return fmt.Errorf("ensure index on %s.%s: %w", r.config.Label, versionProperty, err)
	}

	c, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if c.HasBaseline {
		return nil
	}
	return r.store.CreateNode(ctx, r.config.Label, map[string]any{versionProperty: version.Baseline})
}

func (r *Repository) Load(ctx context.Context) (*Chain, error) {
	p, err := r.store.MatchPath(ctx, r.config.Label, RelType)
	if err != nil {
		return nil, err
	}

	c := &Chain{}
	versionByID := make(map[string]string, len(p.Nodes))
	for _, n := range p.Nodes {
		v, _ := n.Props[versionProperty].(string)
		if v == "" {
			return nil, fmt.Errorf("%w: %s node %s has no version", ErrBrokenChain, r.config.Label, n.ID)
		}
		versionByID[n.ID] = v
		if v == version.Baseline {
			c.HasBaseline = true
			continue
		}
		c.Entries = append(c.Entries, entryFromProps(n.Props))
	}
	sort.SliceStable(c.Entries, func(i, j int) bool {
		return version.Less(c.Entries[i].Version, c.Entries[j].Version)
	})

	for _, rel := range p.Relationships {
		c.Links = append(c.Links, linkFromProps(versionByID[rel.StartID], versionByID[rel.EndID], rel.Props))
	}
	return c, nil
}

func (r *Repository) Tail(ctx context.Context) (string, error) {
	c, err := r.Load(ctx)
	if err != nil {
		return "", err
	}
	return c.Tail()
}

// Append adds e after prev. Node and relationship are created in one
// transaction.
func (r *Repository) Append(ctx context.Context, prev string, e Entry, appliedAt time.Time, duration time.Duration) error {
	return r.store.RunInTransaction(ctx, func(tx database.Tx) error {
		if err := tx.CreateNode(ctx, r.config.Label, entryProps(e)); err != nil {
			return err
		}
		return tx.CreateEdge(ctx, r.match(prev), r.match(e.Version), RelType, linkProps(appliedAt, duration))
	})
}

// Remove deletes target and its relationships. A non-nil relink is created
// in the same transaction, before the delete.
func (r *Repository) Remove(ctx context.Context, target string, relink *Link) error {
	if target == version.Baseline {
		return fmt.Errorf("refusing to remove %s", version.Baseline)
	}
	return r.store.RunInTransaction(ctx, func(tx database.Tx) error {
		if relink != nil {
			err := tx.CreateEdge(ctx, r.match(relink.From), r.match(relink.To), RelType,
				linkProps(relink.AppliedAt, relink.Duration))
			if err != nil {
				return err
			}
		}
		return tx.DeleteNode(ctx, r.match(target))
	})
}

func (r *Repository) match(v string) database.Match {
	return database.Match{Label: r.config.Label, Props: map[string]any{versionProperty: v}}
}

func entryProps(e Entry) map[string]any {
	return map[string]any{
		versionProperty: e.Version,
		"description":   e.Description,
		"checksum":      e.Checksum,
		"source":        e.Source,
		"type":          e.Type,
	}
}

func entryFromProps(props map[string]any) Entry {
	str := func(k string) string {
		s, _ := props[k].(string)
		return s
	}
	return Entry{
		Version:     str(versionProperty),
		Description: str("description"),
		Checksum:    str("checksum"),
		Source:      str("source"),
		Type:        str("type"),
	}
}

func linkProps(appliedAt time.Time, duration time.Duration) map[string]any {
	return map[string]any{
		"appliedAt": appliedAt.UTC(),
		"duration":  duration.Milliseconds(),
	}
}

func linkFromProps(from, to string, props map[string]any) Link {
	l := Link{From: from, To: to}
	if t, ok := props["appliedAt"].(time.Time); ok {
		l.AppliedAt = t.UTC()
	}
	if ms, ok := props["duration"].(int64); ok {
		l.Duration = time.Duration(ms) * time.Millisecond
	}
	return l
}
