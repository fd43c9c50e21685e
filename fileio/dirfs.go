package fileio

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// dirFS is an operating system directory.
type dirFS struct {
	fs.FS
	dir string
}

var _ CreateFS = &dirFS{}

// DirFS returns a CreateFS for the files under a directory.
func DirFS(dir string) CreateFS {
	return &dirFS{FS: os.DirFS(dir), dir: dir}
}

func (dfs *dirFS) Create(name string, append bool) (file io.WriteCloser, err error) {
	if !fs.ValidPath(name) {
		err = &fs.PathError{Op: "create", Path: name, Err: fs.ErrInvalid}
		return
	}

	flags := os.O_WRONLY | os.O_CREATE
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	return os.OpenFile(filepath.Join(dfs.dir, filepath.FromSlash(name)), flags, 0644)
}
