package file

import (
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheme = "file://"

func Test(t *testing.T) {
	tmpDir := t.TempDir()

	mustWriteFile(t, tmpDir, "V1_0_0__init.cypher", "CREATE (:A);\nCREATE (:B);\n")
	mustWriteFile(t, tmpDir, "V1_1_0__more.cypher", "CREATE (:C)")
	mustWriteFile(t, tmpDir, "notes.txt", "ignored")

	f := &File{}
	d, err := f.Open(scheme + tmpDir)
	require.NoError(t, err)

	ms, err := d.List()
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "1.0.0", ms[0].Version)
	assert.Equal(t, []string{"CREATE (:A)", "CREATE (:B)"}, ms[0].Statements)
	assert.Equal(t, "1.1.0", ms[1].Version)
}

func TestOpenWithRelativePath(t *testing.T) {
	tmpDir := t.TempDir()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		// rescue working dir after we are done
		if err := os.Chdir(wd); err != nil {
			t.Log(err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, "foo"), os.ModePerm); err != nil {
		t.Fatal(err)
	}

	mustWriteFile(t, filepath.Join(tmpDir, "foo"), "V1__foobar.cypher", "")

	f := &File{}
	for _, u := range []string{"file://foo", "file://./foo"} {
		d, err := f.Open(u)
		require.NoError(t, err, u)
		ms, err := d.List()
		require.NoError(t, err)
		assert.Len(t, ms, 1, "expected first file in working dir %v for %v", tmpDir, u)
	}
}

func TestOpenDefaultsToCurrentDirectory(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	f := &File{}
	d, err := f.Open(scheme)
	require.NoError(t, err)

	if d.(*File).path != wd {
		t.Fatal("expected driver to default to current directory")
	}
}

func TestOpenWithExtension(t *testing.T) {
	tmpDir := t.TempDir()
	mustWriteFile(t, tmpDir, "V1__a.cql", "CREATE (:A)")
	mustWriteFile(t, tmpDir, "V2__b.cypher", "CREATE (:B)")

	f := &File{}
	d, err := f.Open(scheme + tmpDir + "?x-extension=cql")
	require.NoError(t, err)

	ms, err := d.List()
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "V1__a.cql", ms[0].Identifier)
}

func TestOpenWithMalformedName(t *testing.T) {
	tmpDir := t.TempDir()
	mustWriteFile(t, tmpDir, "V1__ok.cypher", "")
	mustWriteFile(t, tmpDir, "add_people.cypher", "")

	f := &File{}
	_, err := f.Open(scheme + tmpDir)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	tmpDir := t.TempDir()

	f := &File{}
	d, err := f.Open(scheme + tmpDir)
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}

func mustWriteFile(t testing.TB, dir, file string, body string) {
	if err := os.WriteFile(path.Join(dir, file), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}
