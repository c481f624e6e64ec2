package candidate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	be.Err(t, os.MkdirAll(filepath.Dir(path), 0o755), nil)
	be.Err(t, os.WriteFile(path, []byte(content), 0o644), nil)
	return path
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "report.txt", "hello")

	f, err := Build(root, path)
	be.Err(t, err, nil)
	be.Equal(t, f.Name, "report.txt")
	be.Equal(t, f.RelDir, ".")
	be.Equal(t, f.Size, int64(5))
	be.Equal(t, f.MediaType, "text/plain")
	be.True(t, filepath.IsAbs(f.LocalPath))
}

func TestBuildNestedDir(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, filepath.Join("a", "b", "data.bin"), "xx")

	f, err := Build(root, path)
	be.Err(t, err, nil)
	be.Equal(t, f.RelDir, "a/b")
	be.Equal(t, f.MediaType, "application/octet-stream")
	be.Equal(t, f.RemoteKey(), "a/b/data.bin")
}

func TestBuildMissingFile(t *testing.T) {
	root := t.TempDir()
	_, err := Build(root, filepath.Join(root, "nope.txt"))
	be.Err(t, err)
}

func TestBuildDirectoryRejected(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	be.Err(t, os.Mkdir(sub, 0o755), nil)

	_, err := Build(root, sub)
	be.Err(t, err)
}

func TestRemoteKeyAtRoot(t *testing.T) {
	f := File{Name: "x.txt", RelDir: "."}
	be.Equal(t, f.RemoteKey(), "x.txt")
}
