// Package file reads migrations from a local directory given as file://path.
package file

import (
	"fmt"
	nurl "net/url"
	"os"
	"path/filepath"

	"github.com/golang-migrate/graphmigrate/source"
	"github.com/golang-migrate/graphmigrate/source/iofs"
)

func init() {
	source.Register("file", &File{})
}

type File struct {
	*iofs.IoFS
	url  string
	path string
}

// Open opens file://path. The x-extension query parameter overrides the
// migration file extension.
func (f *File) Open(url string) (source.Driver, error) {
	p, ext, err := parseURL(url)
	if err != nil {
		return nil, err
	}
	i, err := iofs.New(os.DirFS(p), ".", &iofs.Config{Extension: ext})
	if err != nil {
		return nil, err
	}
	return &File{
		IoFS: i,
		url:  url,
		path: p,
	}, nil
}

func parseURL(url string) (string, string, error) {
	u, err := nurl.Parse(url)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "file" {
		return "", "", fmt.Errorf("file driver: unexpected scheme %q", u.Scheme)
	}

	// concat host and path to restore full path
	// host might be `.`
	p := u.Opaque
	if len(p) == 0 {
		p = u.Host + u.Path
	}

	if len(p) == 0 {
		// default to current directory if no path
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		p = wd
	} else if p[0:1] == "." || p[0:1] != "/" {
		// make path absolute if relative
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", "", err
		}
		p = abs
	}

	return p, u.Query().Get("x-extension"), nil
}
