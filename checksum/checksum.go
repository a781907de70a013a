// Package checksum fingerprints the statements of a migration so edits made
// after a migration was applied can be detected.
package checksum

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SeedPolicy selects the accumulator seed. History recorded under one policy
// only validates under the same policy.
type SeedPolicy int

const (
	SeedZero SeedPolicy = iota
	SeedLegacy
)

// LegacySeed is the accumulator seed used by SeedLegacy.
const LegacySeed uint64 = 5381

// DefaultSeedPolicy is used when no policy is configured.
var DefaultSeedPolicy = SeedZero

func (p SeedPolicy) String() string {
	switch p {
	case SeedZero:
		return "zero"
	case SeedLegacy:
		return "legacy"
	}
	return fmt.Sprintf("SeedPolicy(%d)", int(p))
}

// Seed returns the initial accumulator value for p.
func (p SeedPolicy) Seed() uint64 {
	if p == SeedLegacy {
		return LegacySeed
	}
	return 0
}

// ParseSeedPolicy parses "zero" or "legacy". An empty string yields
// DefaultSeedPolicy.
func ParseSeedPolicy(s string) (SeedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultSeedPolicy, nil
	case "zero":
		return SeedZero, nil
	case "legacy":
		return SeedLegacy, nil
	}
	return 0, fmt.Errorf("unknown checksum seed policy %q", s)
}

// Sum returns the checksum of statements, in order, as 16 hex digits. Every
// statement is prefixed with its length.
func Sum(policy SeedPolicy, statements []string) string {
	d := xxhash.NewWithSeed(policy.Seed())
	var prefix []byte
	for _, stmt := range statements {
		prefix = binary.AppendUvarint(prefix[:0], uint64(len(stmt)))
		_, _ = d.Write(prefix)
		_, _ = d.WriteString(stmt)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
