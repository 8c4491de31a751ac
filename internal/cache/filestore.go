package cache

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"

	"todosync/internal/service"
)

// encMode encodes entries with Core Deterministic Encoding so the same
// task list always produces identical bytes on disk.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}
}

// entry is the on-disk representation of one cache slot.
type entry struct {
	Key     string         `cbor:"key"`
	SavedAt time.Time      `cbor:"saved_at"`
	Tasks   []service.Task `cbor:"tasks"`
}

// FileStore persists one CBOR file per key under dir. Writes are
// atomic (temp file + rename) so a crashed write never corrupts the
// previous entry.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir. The
// directory is created on first write, not here.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]service.Task, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, service.WrapErr(service.KindCache, err)
	}

	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, false, service.WrapErr(service.KindCache, fmt.Errorf("corrupt cache entry %s: %w", key, err))
	}
	if e.Key != key {
		return nil, false, service.Errf(service.KindCache, "cache entry key mismatch: got %s, want %s", e.Key, key)
	}
	return e.Tasks, true, nil
}

// Set implements Store.
func (s *FileStore) Set(key string, tasks []service.Task) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return service.WrapErr(service.KindCache, err)
	}

	data, err := encMode.Marshal(entry{Key: key, SavedAt: time.Now().UTC(), Tasks: tasks})
	if err != nil {
		return service.WrapErr(service.KindCache, err)
	}

	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return service.WrapErr(service.KindCache, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return service.WrapErr(service.KindCache, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return service.WrapErr(service.KindCache, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return service.WrapErr(service.KindCache, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return service.WrapErr(service.KindCache, err)
	}
	return nil
}

// path maps a key to its file. Keys are opaque owner-derived strings;
// percent-escaping keeps the mapping injective and filesystem-safe, so
// two distinct keys can never share a file.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".cache")
}
