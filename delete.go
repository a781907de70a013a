package migrate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/golang-migrate/graphmigrate/chain"
	"github.com/golang-migrate/graphmigrate/version"
)

type DeleteOptions struct {
	// DryRun resolves the plan without writing.
	DryRun bool
}

// DeletePlan describes what Delete removes and relinks.
type DeletePlan struct {
	Target chain.Entry

	// Predecessor is version.Baseline when Target is the first migration.
	Predecessor string

	// Successor is empty when Target is the tail.
	Successor string

	// Relink is the relationship created from Predecessor to Successor, nil
	// when none is needed.
	Relink *chain.Link

	DryRun bool
}

// Delete removes an applied migration from the chain and links its
// neighbours. target is a version or a source file name.
//
// Neighbours are resolved by version order, not by following the stored
// relationships, so a chain whose relationships disagree with the version
// order is repaired towards the version order. This is an operator repair
// tool: the migration's changes to the graph are not reverted.
func (m *Migrate) Delete(ctx context.Context, target string, opts DeleteOptions) (*DeletePlan, error) {
	if err := m.lock(); err != nil {
		return nil, err
	}
	defer m.unlock()

	if err := m.open(); err != nil {
		return nil, err
	}
	c, err := m.chain.Load(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := resolveDelete(c, target)
	if err != nil {
		return nil, err
	}
	plan.DryRun = opts.DryRun

	if opts.DryRun {
		m.logVerbosePrintf("Dry run: would delete %v\n", describePlan(plan))
		return plan, nil
	}

	if err := m.chain.Remove(ctx, plan.Target.Version, plan.Relink); err != nil {
		return nil, err
	}
	m.logVerbosePrintf("Deleted %v\n", describePlan(plan))
	return plan, nil
}

func resolveDelete(c *chain.Chain, target string) (*DeletePlan, error) {
	if target == "" || target == version.Baseline {
		return nil, &MigrationNotFoundError{Target: target}
	}

	idx := -1
	for i, e := range c.Entries {
		if e.Version == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		name := filepath.Base(target)
		for i, e := range c.Entries {
			if e.Source == name {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, &MigrationNotFoundError{Target: target}
	}

	plan := &DeletePlan{
		Target:      c.Entries[idx],
		Predecessor: version.Baseline,
	}
	if idx > 0 {
		plan.Predecessor = c.Entries[idx-1].Version
	}
	if idx+1 < len(c.Entries) {
		plan.Successor = c.Entries[idx+1].Version
	}

	if plan.Successor != "" && !c.HasLink(plan.Predecessor, plan.Successor) {
		relink := &chain.Link{From: plan.Predecessor, To: plan.Successor, AppliedAt: time.Now().UTC()}
		if l, ok := c.Incoming(plan.Successor); ok {
			relink.AppliedAt = l.AppliedAt
			relink.Duration = l.Duration
		}
		plan.Relink = relink
	}
	return plan, nil
}

func describePlan(p *DeletePlan) string {
	s := p.Target.Version + " (" + p.Target.Source + ")"
	if p.Relink != nil {
		s += ", relinking " + p.Relink.From + " -> " + p.Relink.To
	}
	return s
}
