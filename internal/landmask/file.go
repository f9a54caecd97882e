package landmask

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// rowFile is the on-disk CBOR layout of one row. Step and Lat are repeated
// inside the file so a misplaced file is detected on load.
type rowFile struct {
	Cells map[int32]bool `cbor:"cells"`
	Step  float64        `cbor:"step"`
	Lat   int32          `cbor:"lat"`
}

// FileStore writes one CBOR file per row per step:
// <dir>/step-<S>/row_<lat>.cbor
type FileStore struct {
	enc cbor.EncMode
	dir string
}

// NewFileStore prepares a store rooted at dir. The directory is created lazily.
func NewFileStore(dir string) (*FileStore, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}

	return &FileStore{dir: dir, enc: enc}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// RowPath returns the file holding the given row.
func (s *FileStore) RowPath(step float64, lat int32) string {
	return filepath.Join(s.dir, "step-"+StepTag(step), fmt.Sprintf("row_%d.cbor", lat))
}

// LoadRow reads a row file. A missing file yields ErrRowNotFound.
func (s *FileStore) LoadRow(_ context.Context, step float64, lat int32) (map[int32]bool, error) {
	path := s.RowPath(step, lat)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRowNotFound
	}
	if err != nil {
		return nil, err
	}

	var rf rowFile
	if err := cbor.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if rf.Step != step || rf.Lat != lat {
		return nil, fmt.Errorf("row file %s holds step %v lat %d", path, rf.Step, rf.Lat)
	}

	if rf.Cells == nil {
		rf.Cells = make(map[int32]bool)
	}

	return rf.Cells, nil
}

// SaveRow writes the row to a temporary file and renames it into place.
func (s *FileStore) SaveRow(_ context.Context, step float64, lat int32, cells map[int32]bool) error {
	path := s.RowPath(step, lat)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := s.enc.Marshal(rowFile{Step: step, Lat: lat, Cells: cells})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".row-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}
