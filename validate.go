package migrate

import (
	"context"
	"fmt"

	"github.com/golang-migrate/graphmigrate/chain"
	"github.com/golang-migrate/graphmigrate/source"
	"github.com/golang-migrate/graphmigrate/version"
)

type FailureKind string

const (
	MissingFile      FailureKind = "MISSING_FILE"
	MissingDB        FailureKind = "MISSING_DB"
	OrderMismatch    FailureKind = "ORDER_MISMATCH"
	ChecksumMismatch FailureKind = "CHECKSUM_MISMATCH"
)

// Failure is a single discrepancy between the chain and the source.
type Failure struct {
	Kind    FailureKind
	Version string
	Source  string

	// Expected is the chain's side, Actual the source's. Set for
	// ORDER_MISMATCH (versions) and CHECKSUM_MISMATCH (checksums).
	Expected string
	Actual   string

	// Index in the sorted version lists, ORDER_MISMATCH only.
	Index int
}

func (f Failure) String() string {
	switch f.Kind {
	case MissingFile:
		return fmt.Sprintf("%v: version %v (%v) is applied but its file is missing", f.Kind, f.Version, f.Source)
	case MissingDB:
		return fmt.Sprintf("%v: version %v (%v) is not applied", f.Kind, f.Version, f.Source)
	case OrderMismatch:
		return fmt.Sprintf("%v: position %d is %v in the database and %v in the source", f.Kind, f.Index, f.Expected, f.Actual)
	case ChecksumMismatch:
		return fmt.Sprintf("%v: version %v (%v) was applied with checksum %v, file has %v", f.Kind, f.Version, f.Source, f.Expected, f.Actual)
	default:
		return fmt.Sprintf("%v: version %v", f.Kind, f.Version)
	}
}

type ValidationResult struct {
	Failures []Failure
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Failures) == 0
}

type ValidateOptions struct {
	// FailFast stops after the first check that finds a failure and returns
	// a *ValidationError.
	FailFast bool

	// SummaryOnly logs the summary line without one line per failure.
	SummaryOnly bool
}

// Validate cross checks the chain against the source. Checks run in order:
// MISSING_FILE, MISSING_DB, ORDER_MISMATCH, CHECKSUM_MISMATCH. Failures are
// collected in the result, only a fail fast run returns them as an error.
// Nothing is written to the database.
func (m *Migrate) Validate(ctx context.Context, opts ValidateOptions) (*ValidationResult, error) {
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

	checks := []func(*chain.Chain, []*source.Migration) []Failure{
		missingFiles,
		missingInDB,
		orderMismatches,
		m.checksumMismatches,
	}

	res := &ValidationResult{}
	for _, check := range checks {
		failures := check(c, migrations)
		for _, f := range failures {
			if !opts.SummaryOnly {
				m.logPrintf("%v\n", f)
			}
		}
		res.Failures = append(res.Failures, failures...)
		if opts.FailFast && len(failures) > 0 {
			m.logPrintf("Validation stopped at first failing check, %d failure(s)\n", len(res.Failures))
			return res, &ValidationError{Failures: res.Failures}
		}
	}

	if res.IsValid() {
		m.logPrintf("Validated %d applied migration(s) against %d file(s)\n", len(c.Entries), len(migrations))
	} else {
		m.logPrintf("Validation found %d failure(s)\n", len(res.Failures))
	}
	return res, nil
}

func missingFiles(c *chain.Chain, migrations []*source.Migration) []Failure {
	byVersion := indexByVersion(migrations)

	var failures []Failure
	for _, e := range c.Entries {
		if _, ok := byVersion[e.Version]; !ok {
			failures = append(failures, Failure{Kind: MissingFile, Version: e.Version, Source: e.Source})
		}
	}
	return failures
}

func missingInDB(c *chain.Chain, migrations []*source.Migration) []Failure {
	var failures []Failure
	for _, migr := range migrations {
		if _, ok := c.Entry(migr.Version); !ok {
			failures = append(failures, Failure{Kind: MissingDB, Version: migr.Version, Source: migr.Identifier})
		}
	}
	return failures
}

// orderMismatches compares both sorted version lists index by index, up to
// the shorter one.
func orderMismatches(c *chain.Chain, migrations []*source.Migration) []Failure {
	applied := c.Versions()
	version.Sort(applied)

	local := make([]string, 0, len(migrations))
	for _, migr := range migrations {
		local = append(local, migr.Version)
	}
	version.Sort(local)

	var failures []Failure
	for i := 0; i < len(applied) && i < len(local); i++ {
		if applied[i] != local[i] {
			failures = append(failures, Failure{
				Kind:     OrderMismatch,
				Version:  applied[i],
				Expected: applied[i],
				Actual:   local[i],
				Index:    i,
			})
		}
	}
	return failures
}

func (m *Migrate) checksumMismatches(c *chain.Chain, migrations []*source.Migration) []Failure {
	byVersion := indexByVersion(migrations)

	var failures []Failure
	for _, e := range c.Entries {
		migr, ok := byVersion[e.Version]
		if !ok {
			continue
		}
		if sum := migr.Checksum(m.config.ChecksumPolicy); sum != e.Checksum {
			failures = append(failures, Failure{
				Kind:     ChecksumMismatch,
				Version:  e.Version,
				Source:   migr.Identifier,
				Expected: e.Checksum,
				Actual:   sum,
			})
		}
	}
	return failures
}
