// Package iofs implements a source driver on top of io/fs#FS.
package iofs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/golang-migrate/graphmigrate/source"
)

func init() {
	source.Register("iofs", &IoFS{})
}

// Config configures an IoFS driver.
type Config struct {
	// Extension of migration files, defaults to source.DefaultExtension.
	Extension string
}

// IoFS is a source driver for io/fs#FS.
type IoFS struct {
	fsys   fs.FS
	path   string
	config *Config
}

// Open by url is not supported with IoFS.
func (i *IoFS) Open(url string) (source.Driver, error) {
	return nil, errors.New("iofs driver does not support open by url")
}

// WithInstance wraps io/fs#FS as source.Driver.
func WithInstance(fsys fs.FS, path string) (source.Driver, error) {
	return New(fsys, path, &Config{})
}

// New returns a new IoFS reading migrations from path inside fsys.
// The directory is listed once so a malformed file name fails early.
func New(fsys fs.FS, path string, config *Config) (*IoFS, error) {
	if config == nil {
		config = &Config{}
	}
	if config.Extension == "" {
		config.Extension = source.DefaultExtension
	}
	i := &IoFS{
		fsys:   fsys,
		path:   path,
		config: config,
	}
	if _, err := i.List(); err != nil {
		return nil, fmt.Errorf("failed to init driver with path %s: %w", path, err)
	}
	return i, nil
}

// Close is part of source.Driver interface implementation. It is a no-op.
func (i *IoFS) Close() error {
	return nil
}

// List reads and parses every migration file in the directory. The files
// are read on each call so edits are always picked up.
func (i *IoFS) List() ([]*source.Migration, error) {
	entries, err := fs.ReadDir(i.fsys, i.path)
	if err != nil {
		return nil, err
	}

	migrations := make([]*source.Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !source.HasExtension(e.Name(), i.config.Extension) {
			continue
		}
		m, err := source.Parse(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(i.fsys, path.Join(i.path, e.Name()))
		if err != nil {
			return nil, err
		}
		m.Statements = source.SplitStatements(string(body))
		migrations = append(migrations, m)
	}

	if err := source.Sort(migrations); err != nil {
		return nil, err
	}
	return migrations, nil
}
