// Package memory is an in-process store.Store used for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fornitori/internal/core"
	"fornitori/internal/store"
)

type Store struct {
	mu        sync.Mutex
	suppliers map[string]core.Supplier
	entries   []core.Entry
	users     []core.User
}

var _ store.Store = (*Store)(nil)

func New(suppliers []core.Supplier) *Store {
	s := &Store{suppliers: make(map[string]core.Supplier, len(suppliers))}
	for _, sup := range suppliers {
		if strings.TrimSpace(sup.Name) == "" {
			continue
		}
		if sup.ID == "" {
			sup.ID = uuid.NewString()
		}
		s.suppliers[sup.ID] = sup
	}
	return s
}

// NewFromFiles seeds the supplier table from base/seed_suppliers.json, a JSON
// array of suppliers. A missing or unreadable file yields an empty store.
func NewFromFiles(base string) *Store {
	return New(SeedSuppliers(base))
}

// SeedSuppliers reads base/seed_suppliers.json. Missing payment methods
// default to cash.
func SeedSuppliers(base string) []core.Supplier {
	b, err := os.ReadFile(filepath.Join(base, "seed_suppliers.json"))
	if err != nil {
		return nil
	}
	var out []core.Supplier
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	for i := range out {
		if out[i].DefaultPaymentMethod == "" {
			out[i].DefaultPaymentMethod = core.Cash
		}
	}
	return out
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) ListSuppliers(_ context.Context) ([]core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpsertSuppliers(_ context.Context, suppliers []core.Supplier) error {
	for _, sup := range suppliers {
		if sup.ID == "" {
			return fmt.Errorf("upsert supplier %q: missing id", sup.Name)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
	return nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.suppliers, id)
	return nil
}

// ListEntries returns entries newest first, matching the remote ordering.
func (s *Store) ListEntries(_ context.Context, f store.EntryFilter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := ""
	if f.Year != 0 {
		prefix = fmt.Sprintf("%04d-", f.Year)
	}
	out := make([]core.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if strings.HasPrefix(e.Date, prefix) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.entryIndex(id); i >= 0 {
		return s.entries[i], nil
	}
	return core.Entry{}, store.ErrNotFound
}

func (s *Store) InsertEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	} else if s.entryIndex(e.ID) >= 0 {
		return core.Entry{}, store.ErrDuplicate
	}
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, id string, u store.EntryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	updated := u.Apply(s.entries[i])
	if err := updated.Validate(); err != nil {
		return err
	}
	s.entries[i] = updated
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(id)
	if i < 0 {
		return store.ErrNotFound
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	return nil
}

func (s *Store) entryIndex(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) FindUser(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.userIndex(username); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.User(nil), s.users...)
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndex(username)
	if i < 0 {
		return store.ErrNotFound
	}
	s.users[i].PasswordHash = passwordHash
	return nil
}

func (s *Store) InsertUser(_ context.Context, u core.User) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userIndex(u.Username) >= 0 {
		return core.User{}, store.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i:i], s.users[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) userIndex(username string) int {
	for i, u := range s.users {
		if u.Username == username {
			return i
		}
	}
	return -1
}
