package cli

import (
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/golang-migrate/graphmigrate"
	"github.com/golang-migrate/graphmigrate/checksum"
)

// Options are the global settings, usually filled from flags, environment
// and config file by cmd/migrate.
type Options struct {
	DatabaseURL      string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string

	// Source wins over Path, Path is a shorthand for file://Path.
	Source string
	Path   string

	Label          string
	Extension      string
	ChecksumPolicy string

	Verbose bool
}

var DefaultOptions = Options{
	DatabaseURL:    "neo4j://localhost:7687",
	Extension:      "cypher",
	ChecksumPolicy: checksum.DefaultSeedPolicy.String(),
}

// Config turns the options into a migrate.Config. Credentials and the
// database name are merged into the database URL, the extension into a file
// source URL.
func (o Options) Config() (migrate.Config, error) {
	policy, err := checksum.ParseSeedPolicy(o.ChecksumPolicy)
	if err != nil {
		return migrate.Config{}, err
	}

	databaseURL, err := o.databaseURL()
	if err != nil {
		return migrate.Config{}, err
	}
	sourceURL, err := o.sourceURL()
	if err != nil {
		return migrate.Config{}, err
	}

	return migrate.Config{
		SourceURL:      sourceURL,
		DatabaseURL:    databaseURL,
		Label:          o.Label,
		ChecksumPolicy: policy,
	}, nil
}

func (o Options) databaseURL() (string, error) {
	if o.DatabaseURL == "" {
		return "", fmt.Errorf("no database url")
	}
	u, err := neturl.Parse(o.DatabaseURL)
	if err != nil {
		return "", err
	}
	if o.DatabaseUser != "" {
		u.User = neturl.UserPassword(o.DatabaseUser, o.DatabasePassword)
	}
	if o.DatabaseName != "" {
		q := u.Query()
		q.Set("x-database", o.DatabaseName)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (o Options) sourceURL() (string, error) {
	source := o.Source
	if source == "" && o.Path != "" {
		source = "file://" + o.Path
	}
	if source == "" {
		return "", fmt.Errorf("no source, set -source or -path")
	}
	if o.Extension == "" || !strings.HasPrefix(source, "file://") {
		return source, nil
	}

	u, err := neturl.Parse(source)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("x-extension") == "" {
		q.Set("x-extension", strings.TrimPrefix(o.Extension, "."))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
