// Package mirror keeps the last successfully fetched copy of each table on
// local disk so reads can degrade to cached data when the store is down.
//
// The mirror is a disposable cache: it is never merged with remote data and
// carries no compatibility guarantees.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fornitori/internal/core"
)

type Slot string

const (
	SlotSuppliers Slot = "suppliers"
	SlotEntries   Slot = "entries"
	SlotUsers     Slot = "users"
)

// ErrEmpty is returned when a slot has never been written.
var ErrEmpty = errors.New("mirror slot empty")

type SlotInfo struct {
	SavedAt time.Time `json:"savedAt"`
	Stale   bool      `json:"stale"`
}

type file[T any] struct {
	SlotInfo
	Items []T `json:"items"`
}

type Mirror struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New returns a mirror rooted at dir, creating it if needed.
func New(dir string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror dir: %w", err)
	}
	return &Mirror{dir: dir, now: time.Now}, nil
}

func (m *Mirror) path(s Slot) string {
	return filepath.Join(m.dir, string(s)+".json")
}

func (m *Mirror) SaveSuppliers(items []core.Supplier) error { return save(m, SlotSuppliers, items) }
func (m *Mirror) SaveEntries(items []core.Entry) error      { return save(m, SlotEntries, items) }
func (m *Mirror) SaveUsers(items []core.User) error         { return save(m, SlotUsers, items) }

func (m *Mirror) Suppliers() ([]core.Supplier, SlotInfo, error) {
	return load[core.Supplier](m, SlotSuppliers)
}

func (m *Mirror) Entries() ([]core.Entry, SlotInfo, error) {
	return load[core.Entry](m, SlotEntries)
}

// Users returns the mirrored users. Password hashes are never mirrored.
func (m *Mirror) Users() ([]core.User, SlotInfo, error) {
	return load[core.User](m, SlotUsers)
}

// MarkStale flags a slot after a failed write so readers know the cached copy
// may no longer match the store. Empty slots are left alone.
func (m *Mirror) MarkStale(s Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := os.ReadFile(m.path(s))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode %s mirror: %w", s, err)
	}
	raw["stale"] = json.RawMessage("true")
	out, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return m.writeAtomic(s, out)
}

// Info returns the metadata of a slot without decoding its items.
func (m *Mirror) Info(s Slot) (SlotInfo, error) {
	_, info, err := load[json.RawMessage](m, s)
	return info, err
}

func save[T any](m *Mirror, s Slot, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(file[T]{SlotInfo: SlotInfo{SavedAt: m.now().UTC()}, Items: items})
	if err != nil {
		return fmt.Errorf("encode %s mirror: %w", s, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeAtomic(s, b)
}

func load[T any](m *Mirror, s Slot) ([]T, SlotInfo, error) {
	m.mu.Lock()
	b, err := os.ReadFile(m.path(s))
	m.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, SlotInfo{}, ErrEmpty
	}
	if err != nil {
		return nil, SlotInfo{}, err
	}
	var f file[T]
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, SlotInfo{}, fmt.Errorf("decode %s mirror: %w", s, err)
	}
	return f.Items, f.SlotInfo, nil
}

// writeAtomic replaces the slot file via a temp file and rename. Callers hold m.mu.
func (m *Mirror) writeAtomic(s Slot, b []byte) error {
	tmp, err := os.CreateTemp(m.dir, string(s)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), m.path(s))
}
