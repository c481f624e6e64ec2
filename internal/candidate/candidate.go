package candidate

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// File describes one regular file discovered under a transfer root.
// Immutable once built.
type File struct {
	// LocalPath is the resolved absolute path of the file.
	LocalPath string
	// Name is the base name of the file.
	Name string
	// RelDir is the directory of the file relative to the transfer root,
	// slash-separated, "." for files directly under the root.
	RelDir string
	// Size is the file size in bytes at build time.
	Size int64
	// MediaType is the declared media type derived from the extension.
	MediaType string
}

// Build constructs a File for path, which must name a regular file under root.
func Build(root, path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("%s is not a regular file", abs)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return File{}, fmt.Errorf("resolve root %s: %w", root, err)
	}

	relDir, err := filepath.Rel(absRoot, filepath.Dir(abs))
	if err != nil {
		return File{}, fmt.Errorf("relativize %s against %s: %w", abs, absRoot, err)
	}

	return File{
		LocalPath: abs,
		Name:      info.Name(),
		RelDir:    filepath.ToSlash(relDir),
		Size:      info.Size(),
		MediaType: mediaType(info.Name()),
	}, nil
}

// RemoteKey joins the relative directory and name into a slash-separated key.
func (f File) RemoteKey() string {
	if f.RelDir == "." || f.RelDir == "" {
		return f.Name
	}
	return f.RelDir + "/" + f.Name
}

func mediaType(name string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if mt == "" {
		return "application/octet-stream"
	}
	// Strip parameters such as "; charset=utf-8" so policies can match on
	// the bare type.
	if base, _, found := strings.Cut(mt, ";"); found {
		return strings.TrimSpace(base)
	}
	return mt
}
