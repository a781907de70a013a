package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/golang-migrate/graphmigrate"
	"github.com/golang-migrate/graphmigrate/source"
)

const timeFormat = time.RFC3339

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func renderUp(out io.Writer, res *migrate.Result) {
	if len(res.Applied) == 0 {
		fmt.Fprintf(out, "no change, at version %s\n", res.TailVersion)
		return
	}
	for _, v := range res.Applied {
		fmt.Fprintf(out, "applied %s\n", v)
	}
	fmt.Fprintf(out, "at version %s\n", res.TailVersion)
}

func renderPending(out io.Writer, pending []*source.Migration) {
	if len(pending) == 0 {
		fmt.Fprintln(out, "no pending migrations")
		return
	}
	w := newTable(out)
	fmt.Fprintln(w, "VERSION\tDESCRIPTION\tSOURCE\tSTATEMENTS")
	for _, m := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.Version, m.Description, m.Identifier, len(m.Statements))
	}
	_ = w.Flush()
}

func renderStatus(out io.Writer, rows []migrate.StatusRow) {
	w := newTable(out)
	fmt.Fprintln(w, "VERSION\tDESCRIPTION\tSTATE\tAPPLIED AT\tDURATION")
	for _, r := range rows {
		appliedAt, duration := "-", "-"
		if !r.AppliedAt.IsZero() {
			appliedAt = r.AppliedAt.UTC().Format(timeFormat)
			duration = r.Duration.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Version, r.Description, r.State, appliedAt, duration)
	}
	_ = w.Flush()
}

func renderValidation(out io.Writer, res *migrate.ValidationResult, summaryOnly bool) {
	if res.IsValid() {
		fmt.Fprintln(out, "valid")
		return
	}
	if !summaryOnly {
		for _, f := range res.Failures {
			fmt.Fprintln(out, f)
		}
	}

	counts := make(map[migrate.FailureKind]int)
	for _, f := range res.Failures {
		counts[f.Kind]++
	}
	fmt.Fprintf(out, "invalid: %d failure(s)", len(res.Failures))
	for _, kind := range []migrate.FailureKind{migrate.MissingFile, migrate.MissingDB, migrate.OrderMismatch, migrate.ChecksumMismatch} {
		if counts[kind] > 0 {
			fmt.Fprintf(out, ", %s=%d", kind, counts[kind])
		}
	}
	fmt.Fprintln(out)
}

func renderDelete(out io.Writer, plan *migrate.DeletePlan) {
	verb := "deleted"
	if plan.DryRun {
		verb = "would delete"
	}
	fmt.Fprintf(out, "%s %s (%s)\n", verb, plan.Target.Version, plan.Target.Source)

	succ := plan.Successor
	if succ == "" {
		succ = "none, it is the tail"
	}
	fmt.Fprintf(out, "predecessor: %s\nsuccessor: %s\n", plan.Predecessor, succ)
	if plan.Relink != nil {
		fmt.Fprintf(out, "relink: %s -> %s\n", plan.Relink.From, plan.Relink.To)
	}
}
