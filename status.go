package migrate

import (
	"context"
	"sort"
	"time"

	"github.com/golang-migrate/graphmigrate/version"
)

type MigrationState string

const (
	// StateApplied is in the chain and matches its file.
	StateApplied MigrationState = "applied"
	// StatePending would be applied by the next Up.
	StatePending MigrationState = "pending"
	// StateMissingFile is in the chain but has no file.
	StateMissingFile MigrationState = "missing file"
	// StateChanged is in the chain but its file has a different checksum.
	StateChanged MigrationState = "changed"
	// StateIgnored has a file older than the tail that was never applied.
	// Up does not apply it.
	StateIgnored MigrationState = "ignored"
)

type StatusRow struct {
	Version     string
	Description string
	Source      string
	State       MigrationState

	// AppliedAt and Duration are zero unless the migration is in the chain
	// with an incoming link.
	AppliedAt time.Time
	Duration  time.Duration
}

// Status lists chain entries and source migrations by ascending version.
func (m *Migrate) Status(ctx context.Context) ([]StatusRow, error) {
	if err := m.open(); err != nil {
		return nil, err
	}
	migrations, err := m.sourceDrv.List()
	if err != nil {
		return nil, err
	}
	c, err := m.chain.Load(ctx)
	if err != nil {
		return nil, err
	}
	tail, err := c.Tail()
	if err != nil {
		return nil, err
	}

	byVersion := indexByVersion(migrations)
	rows := make([]StatusRow, 0, len(migrations)+len(c.Entries))

	for _, e := range c.Entries {
		row := StatusRow{
			Version:     e.Version,
			Description: e.Description,
			Source:      e.Source,
			State:       StateApplied,
		}
		if l, ok := c.Incoming(e.Version); ok {
			row.AppliedAt = l.AppliedAt
			row.Duration = l.Duration
		}
		migr, ok := byVersion[e.Version]
		switch {
		case !ok:
			row.State = StateMissingFile
		case migr.Checksum(m.config.ChecksumPolicy) != e.Checksum:
			row.State = StateChanged
		}
		rows = append(rows, row)
	}

	for _, migr := range migrations {
		if _, ok := c.Entry(migr.Version); ok {
			continue
		}
		state := StatePending
		if version.Compare(migr.Version, tail) <= 0 {
			state = StateIgnored
		}
		rows = append(rows, StatusRow{
			Version:     migr.Version,
			Description: migr.Description,
			Source:      migr.Identifier,
			State:       state,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return version.Less(rows[i].Version, rows[j].Version)
	})
	return rows, nil
}
