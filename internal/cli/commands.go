package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/golang-migrate/graphmigrate"
	_ "github.com/golang-migrate/graphmigrate/database/neo4j"
	"github.com/golang-migrate/graphmigrate/source"
	_ "github.com/golang-migrate/graphmigrate/source/file"
	"github.com/golang-migrate/graphmigrate/version"
)

var (
	errInvalidVersion   = errors.New("version must be dot separated numbers, e.g. 1.2.0")
	errEmptyName        = errors.New("please specify name")
	errValidationFailed = errors.New("validation failed")
	errNotConfirmed     = errors.New("not confirmed")
)

// nextVersion increments the last segment of the highest version,
// keeping its width. Without versions it starts at 1.
func nextVersion(versions []string) (string, error) {
	if len(versions) == 0 {
		return "1", nil
	}
	sorted := append([]string(nil), versions...)
	version.Sort(sorted)
	last := sorted[len(sorted)-1]

	segments := strings.Split(last, ".")
	tail := segments[len(segments)-1]
	n, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed version %s: %w", last, err)
	}
	segments[len(segments)-1] = fmt.Sprintf("%0*d", len(tail), n+1)
	return strings.Join(segments, "."), nil
}

// localVersions parses every migration file with extension ext in dir.
func localVersions(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, e := range entries {
		if e.IsDir() || !source.HasExtension(e.Name(), ext) {
			continue
		}
		m, err := source.Parse(e.Name())
		if err != nil {
			return nil, err
		}
		versions = append(versions, m.Version)
	}
	return versions, nil
}

// migrationFilename is the inverse of source.Parse.
func migrationFilename(v, name, ext string) string {
	return fmt.Sprintf("V%s__%s.%s",
		strings.ReplaceAll(v, ".", "_"),
		strings.ReplaceAll(strings.TrimSpace(name), " ", "_"),
		ext)
}

// createCmd (meant to be called via a CLI command) creates a new, empty
// migration file and returns its path. An empty v picks the next version.
func createCmd(dir, ext, v, name string, print bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errEmptyName
	}
	dir = filepath.Clean(dir)
	ext = strings.TrimPrefix(ext, ".")

	existing, err := localVersions(dir, ext)
	if err != nil {
		return "", err
	}

	if v == "" {
		if v, err = nextVersion(existing); err != nil {
			return "", err
		}
	}
	if !version.Valid(v) {
		return "", errInvalidVersion
	}
	for _, e := range existing {
		if e == v {
			return "", fmt.Errorf("duplicate migration version: %s", v)
		}
	}

	filename := filepath.Join(dir, migrationFilename(v, name, ext))
	if _, err := source.Parse(filepath.Base(filename)); err != nil {
		return "", err
	}

	if err = os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	if err = createFile(filename); err != nil {
		return "", err
	}

	if print {
		absPath, _ := filepath.Abs(filename)
		log.Println(absPath)
	}
	return filename, nil
}

func createFile(filename string) error {
	// create exclusive (fails if file already exists)
	// os.Create() specifies 0666 as the FileMode, so we're doing the same
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)

	if err != nil {
		return err
	}

	return f.Close()
}

func upCmd(ctx context.Context, m *migrate.Migrate, out io.Writer) error {
	res, err := m.Up(ctx)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if res != nil && len(res.Applied) > 0 {
			renderUp(out, res)
		}
		return err
	}
	renderUp(out, res)
	return nil
}

func pendingCmd(ctx context.Context, m *migrate.Migrate, out io.Writer) error {
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	renderPending(out, pending)
	return nil
}

func statusCmd(ctx context.Context, m *migrate.Migrate, out io.Writer) error {
	rows, err := m.Status(ctx)
	if err != nil {
		return err
	}
	renderStatus(out, rows)
	return nil
}

// validateCmd renders every failure itself, the engine only logs its summary.
func validateCmd(ctx context.Context, m *migrate.Migrate, opts migrate.ValidateOptions, out io.Writer) error {
	res, err := m.Validate(ctx, migrate.ValidateOptions{FailFast: opts.FailFast, SummaryOnly: true})
	var verr *migrate.ValidationError
	if err != nil && !errors.As(err, &verr) {
		return err
	}
	renderValidation(out, res, opts.SummaryOnly)
	if !res.IsValid() {
		return errValidationFailed
	}
	return nil
}

func deleteCmd(ctx context.Context, m *migrate.Migrate, target string, opts migrate.DeleteOptions, out io.Writer) error {
	plan, err := m.Delete(ctx, target, opts)
	if err != nil {
		return err
	}
	renderDelete(out, plan)
	return nil
}

func versionCmd(ctx context.Context, m *migrate.Migrate, out io.Writer) error {
	v, err := m.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, v)
	return nil
}

func dropCmd(ctx context.Context, m *migrate.Migrate) error {
	return m.Drop(ctx)
}

// confirm asks question on stdin. Without a terminal there is nobody to
// ask, so it refuses.
func confirm(question string, in *os.File) error {
	if !term.IsTerminal(int(in.Fd())) {
		return fmt.Errorf("%w: stdin is not a terminal, use -f", errNotConfirmed)
	}
	log.Println(question + " [y/N]")
	var response string
	_, _ = fmt.Fscanln(in, &response)
	if strings.ToLower(strings.TrimSpace(response)) != "y" {
		return errNotConfirmed
	}
	return nil
}
