package runtime

import (
	"os"
	"path/filepath"
)

// DefaultFileMode is the permission given to tapes and body files.
const DefaultFileMode os.FileMode = 0600

// WriteFile creates or replaces the file at path with data. The data is
// written to a temporary file in the same directory, flushed to stable
// storage and renamed into place, so path either holds all of data or is left
// as it was. Missing parent directories are created. Failures are reported as
// a *WriteError and are not retried.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := stageFile(path, data, perm)
	if err != nil {
		return err
	}
	return f.commit()
}

// stagedFile is data flushed to a temporary file next to path, not yet
// visible under path.
type stagedFile struct {
	path string
	tmp  string
}

func stageFile(path string, data []byte, perm os.FileMode) (*stagedFile, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if name == "" {
		return nil, &WriteError{Path: path, Err: os.ErrInvalid}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(f.Name(), perm)
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, &WriteError{Path: path, Err: err}
	}
	return &stagedFile{path: path, tmp: f.Name()}, nil
}

// commit renames the staged data into place.
func (f *stagedFile) commit() error {
	if err := os.Rename(f.tmp, f.path); err != nil {
		f.discard()
		return &WriteError{Path: f.path, Err: err}
	}
	return nil
}

// discard drops staged data that was never committed.
func (f *stagedFile) discard() {
	if f != nil {
		_ = os.Remove(f.tmp)
	}
}
