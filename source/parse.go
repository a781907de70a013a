package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrParse = errors.New("no match")

var (
	DefaultParse = Parse
	DefaultRegex = Regex
)

// DefaultExtension is the file extension of migration scripts.
const DefaultExtension = "cypher"

// Regex matches the following pattern:
//
//	V1__name.ext
//	V1_2_0__name_with_words.ext
var Regex = regexp.MustCompile(`^V([0-9]+(?:_[0-9]+)*)__([^.]+)\.([A-Za-z0-9]+)$`)

// ParseError is returned for a file name that should be a migration but
// doesn't match Regex.
type ParseError struct {
	Name string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed migration file name %q, expected V<version>__<description>.<ext>", e.Name)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Parse returns a Migration for a file name matching Regex. Statements are
// left empty.
func Parse(raw string) (*Migration, error) {
	m := Regex.FindStringSubmatch(raw)
	if len(m) != 4 {
		return nil, &ParseError{Name: raw}
	}
	return &Migration{
		Version:     strings.ReplaceAll(m[1], "_", "."),
		Description: strings.ReplaceAll(m[2], "_", " "),
		Identifier:  raw,
	}, nil
}

// HasExtension reports whether name carries ext (with or without a leading dot).
func HasExtension(name, ext string) bool {
	ext = "." + strings.TrimPrefix(ext, ".")
	return strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext))
}
