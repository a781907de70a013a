package migrate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClean(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMigrate(t, threeMigrations(), Config{})
	_, err := m.Up(ctx)
	require.NoError(t, err)

	vr, err := m.Validate(ctx, ValidateOptions{})
	require.NoError(t, err)
	assert.True(t, vr.IsValid())
	assert.Empty(t, vr.Failures)
}

func TestValidateDoesNotWrite(t *testing.T) {
	m, st := newTestMigrate(t, threeMigrations(), Config{})

	vr, err := m.Validate(context.Background(), ValidateOptions{})
	require.NoError(t, err)
	assert.Len(t, kinds(vr, MissingDB), 3)
	assert.False(t, loadChain(t, st).HasBaseline)
}

// drifted applies 1.0.0, 2.0.0 and 3.0.0, then removes the file of 2.0.0,
// edits 3.0.0 and adds 4.
func drifted(t *testing.T) *Migrate {
	t.Helper()
	fsys := threeMigrations()
	m, _ := newTestMigrate(t, fsys, Config{})
	_, err := m.Up(context.Background())
	require.NoError(t, err)

	delete(fsys, "migrations/V2_0_0__link_people.cypher")
	fsys["migrations/V3_0_0__add_index.cypher"] = file("CREATE INDEX other FOR (p:Person) ON (p.age);\n")
	fsys["migrations/V4__next.cypher"] = file("CREATE (:Next);\n")
	return m
}

func TestValidateAggregatesAllChecks(t *testing.T) {
	m := drifted(t)

	vr, err := m.Validate(context.Background(), ValidateOptions{})
	require.NoError(t, err)
	assert.False(t, vr.IsValid())

	got := make([]string, 0, len(vr.Failures))
	for _, f := range vr.Failures {
		got = append(got, string(f.Kind)+" "+f.Version)
	}
	// sorted chain 1.0.0 2.0.0 3.0.0 against files 1.0.0 3.0.0 4
	assert.Equal(t, []string{
		"MISSING_FILE 2.0.0",
		"MISSING_DB 4",
		"ORDER_MISMATCH 2.0.0",
		"ORDER_MISMATCH 3.0.0",
		"CHECKSUM_MISMATCH 3.0.0",
	}, got)

	order := kinds(vr, OrderMismatch)
	assert.Equal(t, 1, order[0].Index)
	assert.Equal(t, "3.0.0", order[0].Actual)
	assert.Equal(t, 2, order[1].Index)
	assert.Equal(t, "4", order[1].Actual)
}

func TestValidateFailFast(t *testing.T) {
	m := drifted(t)

	vr, err := m.Validate(context.Background(), ValidateOptions{FailFast: true})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, vr.Failures, 1)
	assert.Equal(t, MissingFile, vr.Failures[0].Kind)
	assert.Equal(t, vr.Failures, verr.Failures)
	assert.Contains(t, err.Error(), "2.0.0")
}

func TestValidateFailFastChecksumOnly(t *testing.T) {
	ctx := context.Background()
	fsys := threeMigrations()
	m, _ := newTestMigrate(t, fsys, Config{})
	_, err := m.Up(ctx)
	require.NoError(t, err)

	fsys["migrations/V1_0_0__create_people.cypher"] = file("CREATE (:Person {name: 'c'});\n")
	fsys["migrations/V2_0_0__link_people.cypher"] = file("CREATE (:Person {name: 'd'});\n")

	vr, err := m.Validate(ctx, ValidateOptions{FailFast: true})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// every failure of the failing check is reported
	assert.Len(t, kinds(vr, ChecksumMismatch), 2)
}

func TestValidateSummaryOnly(t *testing.T) {
	for _, summaryOnly := range []bool{false, true} {
		m := drifted(t)
		log := &testLogger{}
		m.Log = log

		vr, err := m.Validate(context.Background(), ValidateOptions{SummaryOnly: summaryOnly})
		require.NoError(t, err)
		assert.Len(t, vr.Failures, 5, "the result always carries every failure")

		perFailure := 0
		for _, line := range log.lines {
			if strings.Contains(line, "_") && strings.Contains(line, ": ") {
				perFailure++
			}
		}
		if summaryOnly {
			assert.Zero(t, perFailure)
		} else {
			assert.Equal(t, 5, perFailure)
		}
		assert.Contains(t, log.lines[len(log.lines)-1], "5 failure(s)")
	}
}

func TestFailureString(t *testing.T) {
	f := Failure{Kind: ChecksumMismatch, Version: "1.2", Source: "V1_2__x.cypher", Expected: "aa", Actual: "bb"}
	assert.Equal(t, "CHECKSUM_MISMATCH: version 1.2 (V1_2__x.cypher) was applied with checksum aa, file has bb", f.String())

	f = Failure{Kind: OrderMismatch, Index: 3, Expected: "2", Actual: "3"}
	assert.Equal(t, "ORDER_MISMATCH: position 3 is 2 in the database and 3 in the source", f.String())
}
