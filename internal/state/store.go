package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"keepwarm/internal/constants"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
	"keepwarm/internal/validation"
)

const recordExt = ".json"

// FileStore keeps each record in <dir>/<instanceName>.json.
// There is no locking; two processes writing the same name race and the last
// write wins.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, constants.SecureDirPermissions); err != nil {
		return nil, errors.StateIO("create directory for", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory records are stored in
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file a record for name is stored in.
// Callers outside the store must validate name first.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+recordExt)
}

// Get returns the record for name, or nil when none exists.
// An unparsable file yields a STATE_CORRUPT error and is left in place.
func (s *FileStore) Get(name string) (*Record, error) {
	if err := validation.InstanceName(name); err != nil {
		return nil, err
	}
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.StateIO("read", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.StateCorrupt(path, err)
	}
	if rec.InstanceName == "" || rec.ContainerHandle == "" {
		return nil, errors.StateCorrupt(path, fmt.Errorf("record is missing instanceName or containerHandle"))
	}
	return &rec, nil
}

// Put writes rec, replacing any previous record with the same name
func (s *FileStore) Put(rec *Record) error {
	if rec == nil || rec.InstanceName == "" {
		return errors.InvalidInput("record", "instance name is required")
	}
	if err := validation.InstanceName(rec.InstanceName); err != nil {
		return err
	}

	stored := *rec
	stored.StartedAt = stored.StartedAt.UTC()

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return errors.StateIO("encode", s.Path(rec.InstanceName), err)
	}

	path := s.Path(rec.InstanceName)
	if err := atomicWriteFile(path, data, constants.SecureFilePermissions); err != nil {
		return errors.StateIO("write", path, err)
	}
	return nil
}

// Delete removes the record for name. Deleting a missing record is not an error.
func (s *FileStore) Delete(name string) error {
	if err := validation.InstanceName(name); err != nil {
		return err
	}
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.StateIO("delete", path, err)
	}
	return nil
}

// List returns every readable record sorted by name.
// Corrupt files are skipped with a warning.
func (s *FileStore) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.StateIO("list", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), recordExt)
		if validation.InstanceName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			if errors.HasCode(err, errors.ErrStateCorrupt) {
				logger.WithError(err).WithField("path", s.Path(name)).Warn("Skipping unreadable instance record")
				continue
			}
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// atomicWriteFile writes to a temp file in the same directory and renames it
// over path so readers never observe a partial record.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
