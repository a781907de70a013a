package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/golang-migrate/graphmigrate"
	"github.com/golang-migrate/graphmigrate/chain"
	"github.com/golang-migrate/graphmigrate/source"
	"github.com/golang-migrate/graphmigrate/version"
)

func TestRenderStatus(t *testing.T) {
	applied := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []migrate.StatusRow{
		{Version: "1.0.0", Description: "create people", State: migrate.StateApplied, AppliedAt: applied, Duration: 1500 * time.Millisecond},
		{Version: "2.0.0", Description: "link people", State: migrate.StateMissingFile, AppliedAt: applied.Add(2 * time.Second), Duration: 250 * time.Millisecond},
		{Version: "3.0.0", Description: "add index", State: migrate.StatePending},
	}

	var buf bytes.Buffer
	renderStatus(&buf, rows)
	goldie.New(t).Assert(t, "status", buf.Bytes())
}

func TestRenderPending(t *testing.T) {
	pending := []*source.Migration{
		{Version: "2.10.1", Description: "add index", Identifier: "V2_10_1__add_index.cypher", Statements: []string{"a", "b"}},
		{Version: "3", Description: "seed", Identifier: "V3__seed.cypher", Statements: []string{"c"}},
	}

	var buf bytes.Buffer
	renderPending(&buf, pending)
	goldie.New(t).Assert(t, "pending", buf.Bytes())

	buf.Reset()
	renderPending(&buf, nil)
	goldie.New(t).Assert(t, "pending_empty", buf.Bytes())
}

func validationResult() *migrate.ValidationResult {
	return &migrate.ValidationResult{Failures: []migrate.Failure{
		{Kind: migrate.MissingFile, Version: "2.0.0", Source: "V2_0_0__link_people.cypher"},
		{Kind: migrate.MissingDB, Version: "4", Source: "V4__next.cypher"},
		{Kind: migrate.OrderMismatch, Version: "2.0.0", Index: 1, Expected: "2.0.0", Actual: "3.0.0"},
		{Kind: migrate.ChecksumMismatch, Version: "3.0.0", Source: "V3_0_0__add_index.cypher", Expected: "c59e7e6f9d1ab1f0", Actual: "0d1b2c3a4f5e6d7c"},
	}}
}

func TestRenderValidation(t *testing.T) {
	g := goldie.New(t)

	var buf bytes.Buffer
	renderValidation(&buf, validationResult(), false)
	g.Assert(t, "validate", buf.Bytes())

	buf.Reset()
	renderValidation(&buf, validationResult(), true)
	g.Assert(t, "validate_summary", buf.Bytes())

	buf.Reset()
	renderValidation(&buf, &migrate.ValidationResult{}, false)
	g.Assert(t, "validate_valid", buf.Bytes())
}

func TestRenderDelete(t *testing.T) {
	g := goldie.New(t)
	plan := &migrate.DeletePlan{
		Target:      chain.Entry{Version: "2.0.0", Source: "V2_0_0__link_people.cypher"},
		Predecessor: "1.0.0",
		Successor:   "3.0.0",
		Relink:      &chain.Link{From: "1.0.0", To: "3.0.0"},
		DryRun:      true,
	}

	var buf bytes.Buffer
	renderDelete(&buf, plan)
	g.Assert(t, "delete_dry_run", buf.Bytes())

	buf.Reset()
	renderDelete(&buf, &migrate.DeletePlan{
		Target:      chain.Entry{Version: "1", Source: "V1__init.cypher"},
		Predecessor: version.Baseline,
	})
	g.Assert(t, "delete_tail", buf.Bytes())
}

func TestRenderUp(t *testing.T) {
	g := goldie.New(t)

	var buf bytes.Buffer
	renderUp(&buf, &migrate.Result{Applied: []string{"1.0.0", "2.0.0"}, TailVersion: "2.0.0"})
	g.Assert(t, "up", buf.Bytes())

	buf.Reset()
	renderUp(&buf, &migrate.Result{TailVersion: "2.0.0"})
	g.Assert(t, "up_no_change", buf.Bytes())
}
