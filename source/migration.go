package source

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/golang-migrate/graphmigrate/checksum"
	"github.com/golang-migrate/graphmigrate/version"
)

// Type is stored on every chain node created from a source migration.
const Type = "CYPHER"

// StatementSeparator ends a statement when followed by a line break.
const StatementSeparator = ";"

var separatorRegex = regexp.MustCompile(`;[ \t]*\n`)

// Migration is a single migration script.
type Migration struct {
	Version     string
	Description string
	Statements  []string

	// Identifier is the file name, it is stored as the node's source.
	Identifier string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%v (%v)", m.Version, m.Description)
}

// Checksum fingerprints the migration's statements.
func (m *Migration) Checksum(policy checksum.SeedPolicy) string {
	return checksum.Sum(policy, m.Statements)
}

// SplitStatements splits a script on a separator followed by a newline.
// Statements are trimmed, a trailing separator is removed and blank
// statements are dropped.
func SplitStatements(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	parts := separatorRegex.Split(body+"\n", -1)

	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimSpace(strings.TrimSuffix(p, StatementSeparator))
		if p == "" {
			continue
		}
		stmts = append(stmts, p)
	}
	return stmts
}

// ErrDuplicateMigration is an error type for reporting duplicate migration
// versions.
type ErrDuplicateMigration struct {
	Version string
	Names   []string
}

// Error implements error interface.
func (e ErrDuplicateMigration) Error() string {
	return fmt.Sprintf("duplicate migration version %v: %v", e.Version, strings.Join(e.Names, ", "))
}

// Sort sorts migrations by ascending version and rejects duplicates.
func Sort(migrations []*Migration) error {
	sort.SliceStable(migrations, func(i, j int) bool {
		return version.Less(migrations[i].Version, migrations[j].Version)
	})
	for i := 1; i < len(migrations); i++ {
		if version.Compare(migrations[i-1].Version, migrations[i].Version) == 0 {
			return ErrDuplicateMigration{
				Version: migrations[i].Version,
				Names:   []string{migrations[i-1].Identifier, migrations[i].Identifier},
			}
		}
	}
	return nil
}
