package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// StateVersion is the current version of the state document.
const StateVersion = 1

var (
	bucketNode  = []byte("node")
	keyState    = []byte("state")
	openTimeout = 5 * time.Second
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("state store closed")

// DeviceState contains the runtime state of the node.
type DeviceState struct {
	// Version is the document format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// OnOff is the light state.
	OnOff bool `json:"on_off"`

	// SerialNumber is generated on first start when none is configured.
	SerialNumber string `json:"serial_number,omitempty"`

	// BootCount counts process starts.
	BootCount uint32 `json:"boot_count"`
}

// DeviceStateStore persists DeviceState in a bbolt database.
type DeviceStateStore struct {
	db *bolt.DB
}

// OpenDeviceStateStore opens or creates the database at path.
func OpenDeviceStateStore(path string) (*DeviceStateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNode)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &DeviceStateStore{db: db}, nil
}

// Path returns the database file path.
func (s *DeviceStateStore) Path() string {
	return s.db.Path()
}

// Save persists state. Version and SavedAt are filled in.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put(keyState, data)
	})
}

// Load reads the stored state.
// Returns nil, nil when nothing was saved yet.
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	var state *DeviceState
	err := s.view(func(b *bolt.Bucket) error {
		data := b.Get(keyState)
		if data == nil {
			return nil
		}
		state = &DeviceState{}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Modify loads the state (zero value when absent), applies fn and saves the
// result in one transaction.
func (s *DeviceStateStore) Modify(fn func(*DeviceState)) (*DeviceState, error) {
	state := &DeviceState{}
	err := s.update(func(b *bolt.Bucket) error {
		if data := b.Get(keyState); data != nil {
			if err := json.Unmarshal(data, state); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}
		}
		fn(state)
		state.Version = StateVersion
		state.SavedAt = time.Now()

		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return b.Put(keyState, data)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SaveOnOff records the light state.
func (s *DeviceStateStore) SaveOnOff(on bool) error {
	_, err := s.Modify(func(st *DeviceState) { st.OnOff = on })
	return err
}

// Clear removes the stored state.
func (s *DeviceStateStore) Clear() error {
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete(keyState)
	})
}

// Close closes the database.
func (s *DeviceStateStore) Close() error {
	return s.db.Close()
}

func (s *DeviceStateStore) view(fn func(*bolt.Bucket) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNode)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNode)
		}
		return fn(b)
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (s *DeviceStateStore) update(fn func(*bolt.Bucket) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNode)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNode)
		}
		return fn(b)
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
