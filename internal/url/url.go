package url

import (
	"errors"
	"fmt"
	"strings"
)

var errNoScheme = errors.New("no scheme")
var errEmptyURL = errors.New("URL cannot be empty")

// SchemeFromURL returns the lower cased scheme of url, everything before the
// first colon. Schemes like neo4j+s keep their suffix.
func SchemeFromURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errEmptyURL
	}

	i := strings.Index(url, ":")

	// No : or : is the first character.
	if i < 1 {
		return "", errNoScheme
	}

	scheme := strings.ToLower(url[:i])
	if !validScheme(scheme) {
		return "", fmt.Errorf("invalid scheme %q", url[:i])
	}
	return scheme, nil
}

// validScheme follows RFC 3986: a letter followed by letters, digits, '+',
// '-' or '.'.
func validScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
