// Package version orders dotted migration versions such as 1.2.0.
//
// Segments are compared numerically, so 2.9.1 sorts before 2.10.1.
// The sentinel Baseline sorts before every dotted version.
package version

import (
	"regexp"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Baseline is the version of the root node of every migration chain.
const Baseline = "BASELINE"

var validRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// Valid reports whether v is a usable migration file version.
// Baseline is never valid.
func Valid(v string) bool {
	return validRegex.MatchString(v)
}

// Compare returns -1 if a < b, 0 if a == b and 1 if a > b. Versions that
// are numerically equal, such as 1.0 and 1.0.0, are ordered by segment count
// and then by their raw text.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	if a == Baseline {
		return -1
	}
	if b == Baseline {
		return 1
	}

	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	if c := compareNumeric(a, b, as, bs); c != 0 {
		return c
	}

	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts versions in ascending order.
func Sort(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Less(versions[i], versions[j])
	})
}

// compareNumeric compares segment by segment, missing trailing segments
// count as zero. Segments too large for go-version are compared as digit
// strings.
func compareNumeric(a, b string, as, bs []string) int {
	if Valid(a) && Valid(b) {
		av, aerr := goversion.NewVersion(a)
		bv, berr := goversion.NewVersion(b)
		if aerr == nil && berr == nil {
			return av.Compare(bv)
		}
	}

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if c := compareSegment(segment(as, i), segment(bs, i)); c != 0 {
			return c
		}
	}
	return 0
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

func compareSegment(a, b string) int {
	ad, bd := isDigits(a), isDigits(b)
	switch {
	case ad && bd:
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case ad:
		// numbers before anything else
		return -1
	case bd:
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
