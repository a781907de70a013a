package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/golang-migrate/graphmigrate/chain"
	"github.com/golang-migrate/graphmigrate/database"
	"github.com/golang-migrate/graphmigrate/source"
	"github.com/golang-migrate/graphmigrate/version"
)

// Result of an Up call.
type Result struct {
	// Applied holds the versions applied by this call, in order.
	Applied []string

	TailVersion string
}

// Up applies every pending migration, one transaction per migration. When
// nothing is pending it returns the result and ErrNoChange. Errors are
// returned, not logged.
//
// Before anything runs, every applied migration is checked against its file.
// A missing file or a changed checksum fails the call without applying
// anything. Only versions greater than the tail are applied, see Pending.
func (m *Migrate) Up(ctx context.Context) (*Result, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.unlock()

	res, err := m.up(ctx)
	if err != nil && !errors.Is(err, ErrNoChange) {
		m.setState(StateFailed)
	}
	return res, err
}

func (m *Migrate) up(ctx context.Context) (*Result, error) {
	m.setState(StateInit)
	if err := m.open(); err != nil {
		return nil, err
	}

	if err := m.ensureBaseline(ctx); err != nil {
		return nil, err
	}
	m.setState(StateBaselineEnsured)

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

	if err := m.validateAppliedIntegrity(c, migrations); err != nil {
		return nil, err
	}
	m.setState(StateIntegrityValidated)

	res := &Result{TailVersion: tail}
	pending := computePending(tail, migrations)
	if len(pending) == 0 {
		m.setState(StateUpToDate)
		m.logVerbosePrintf("No change, database is at version %v\n", tail)
		return res, ErrNoChange
	}

	for i, migr := range pending {
		if m.stop() {
			m.logPrintf("Graceful stop requested, %d migration(s) left\n", len(pending)-i)
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		m.setState(StateApplying)
		m.logVerbosePrintf("Applying %d/%d: %v\n", i+1, len(pending), migr)
		if err := m.applyOne(ctx, res.TailVersion, migr); err != nil {
			return res, err
		}
		res.Applied = append(res.Applied, migr.Version)
		res.TailVersion = migr.Version
	}

	m.setState(StateDone)
	return res, nil
}

func (m *Migrate) ensureBaseline(ctx context.Context) error {
	return m.chain.EnsureBaseline(ctx)
}

// validateAppliedIntegrity compares every applied migration with its file
// and returns all failures found.
func (m *Migrate) validateAppliedIntegrity(c *chain.Chain, migrations []*source.Migration) error {
	byVersion := indexByVersion(migrations)

	var result error
	for _, e := range c.Entries {
		migr, ok := byVersion[e.Version]
		if !ok {
			result = multierror.Append(result, &MissingFileError{Version: e.Version, Source: e.Source})
			continue
		}
		if sum := migr.Checksum(m.config.ChecksumPolicy); sum != e.Checksum {
			result = multierror.Append(result, &ChecksumMismatchError{
				Version:  e.Version,
				Source:   migr.Identifier,
				Stored:   e.Checksum,
				Computed: sum,
			})
		}
	}
	return result
}

// computePending returns the migrations newer than tail. migrations must be
// sorted.
func computePending(tail string, migrations []*source.Migration) []*source.Migration {
	var pending []*source.Migration
	for _, migr := range migrations {
		if version.Compare(migr.Version, tail) > 0 {
			pending = append(pending, migr)
		}
	}
	return pending
}

// applyOne runs the statements of migr in one transaction. After the commit
// the migration is appended to the chain after prev.
func (m *Migrate) applyOne(ctx context.Context, prev string, migr *source.Migration) error {
	start := time.Now()
	err := m.store.RunInTransaction(ctx, func(tx database.Tx) error {
		for _, stmt := range migr.Statements {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return &TransactionError{Version: migr.Version, Statement: stmt, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	duration := time.Since(start)

	entry := chain.Entry{
		Version:     migr.Version,
		Description: migr.Description,
		Checksum:    migr.Checksum(m.config.ChecksumPolicy),
		Source:      migr.Identifier,
		Type:        source.Type,
	}
	if err := m.chain.Append(ctx, prev, entry, time.Now().UTC(), duration); err != nil {
		return fmt.Errorf("recording migration %v: %w", migr.Version, err)
	}

	m.logVerbosePrintf("%v (%v)\n", migr, duration)
	return nil
}

// Pending returns the migrations the next Up would apply: those with a
// version greater than the tail of the chain. A file whose version sorts
// before the tail but was never applied is not pending and is never applied;
// Status lists it as ignored and Validate reports it as MISSING_DB.
func (m *Migrate) Pending(ctx context.Context) ([]*source.Migration, error) {
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
	return computePending(tail, migrations), nil
}

// Version returns the tail of the chain, version.Baseline when nothing has
// been applied.
func (m *Migrate) Version(ctx context.Context) (string, error) {
	if err := m.open(); err != nil {
		return "", err
	}
	return m.chain.Tail(ctx)
}

func indexByVersion(migrations []*source.Migration) map[string]*source.Migration {
	byVersion := make(map[string]*source.Migration, len(migrations))
	for _, migr := range migrations {
		byVersion[migr.Version] = migr
	}
	return byVersion
}
