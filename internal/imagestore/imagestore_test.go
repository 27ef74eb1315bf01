package imagestore

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(p, mtime, mtime))
	return p
}

func TestImportCopiesIntoManagedDir(t *testing.T) {
	data := t.TempDir()
	src := writeImage(t, t.TempDir(), "cat.png", "png-bytes")
	s := New(data)

	rel, err := s.Import(src)
	require.NoError(t, err)
	assert.Equal(t, "storage/images/1700000000_cat.png", rel)
	assert.True(t, s.Managed(rel))

	got, err := os.ReadFile(s.Resolve(rel))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
}

func TestImportReusesExistingFile(t *testing.T) {
	data := t.TempDir()
	src := writeImage(t, t.TempDir(), "cat.png", "first")
	s := New(data)

	rel1, err := s.Import(src)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("second"), 0o644))
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	rel2, err := s.Import(src)
	require.NoError(t, err)
	assert.Equal(t, rel1, rel2)

	got, err := os.ReadFile(s.Resolve(rel2))
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestImportMissingSource(t *testing.T) {
	_, err := New(t.TempDir()).Import(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestImportPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	data := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(data, "storage"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(data, "storage"), 0o500))
	t.Cleanup(func() { os.Chmod(filepath.Join(data, "storage"), 0o755) })

	src := writeImage(t, t.TempDir(), "cat.png", "x")
	_, err := New(data).Import(src)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestManaged(t *testing.T) {
	data := t.TempDir()
	s := New(data)

	assert.True(t, s.Managed("storage/images/1_a.png"))
	assert.True(t, s.Managed(filepath.Join(data, "storage", "images", "1_a.png")))
	assert.False(t, s.Managed("/tmp/a.png"))
	assert.False(t, s.Managed("storage/images/../../etc/passwd"))
	assert.False(t, s.Managed(""))
	assert.False(t, s.Managed(filepath.Join(data, "storage", "images")))
}

func TestResolve(t *testing.T) {
	s := New("/data")
	assert.True(t, strings.HasSuffix(s.Resolve("storage/images/a.png"), filepath.Join("storage", "images", "a.png")))
	assert.Equal(t, "/abs/a.png", s.Resolve("/abs/a.png"))
}
