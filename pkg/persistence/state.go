package persistence

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrVersion is returned when loading state of an unsupported version.
var ErrVersion = errors.New("unsupported state version")

// TreeState is the persisted configuration of a parameter tree.
type TreeState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Root is the name of the tree's root object, e.g. "Device".
	Root string `json:"root"`

	// Rows lists the path of every row, parents before children.
	Rows []string `json:"rows,omitempty"`

	// Tables holds the next instance number of each table, so numbers are
	// not reused after a restart.
	Tables []TableState `json:"tables,omitempty"`

	// Values holds the writable parameter values in their string form.
	Values []ValueState `json:"values,omitempty"`

	// Notifications holds non-default notification attributes.
	Notifications []NotificationState `json:"notifications,omitempty"`
}

// TableState is the instance counter of one table.
type TableState struct {
	Path         string `json:"path"`
	NextInstance uint32 `json:"next_instance"`
}

// ValueState is one saved parameter value.
type ValueState struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// NotificationState is one saved notification attribute.
type NotificationState struct {
	Path         string `json:"path"`
	Notification uint8  `json:"notification"`
}

// Store is implemented by the persistence backends.
type Store interface {
	// Save replaces the stored state.
	Save(state *TreeState) error

	// Load returns the stored state, or nil, nil if nothing was saved.
	Load() (*TreeState, error)

	// Clear removes the stored state.
	Clear() error
}

// FileStore persists tree state to a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a new file store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save persists the tree state to disk. The file is replaced atomically.
func (s *FileStore) Save(state *TreeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the tree state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *FileStore) Load() (*TreeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &TreeState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version != StateVersion {
		return nil, ErrVersion
	}

	return state, nil
}

// Clear removes the state file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
