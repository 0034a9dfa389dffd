// Package memory is an in-process Replica used when no spreadsheet is
// configured, and by tests.
package memory

import (
	"context"
	"sync"

	"fornitori/internal/sheets"
)

type Replica struct {
	mu    sync.Mutex
	order []string
	rows  map[string]sheets.Row
}

var _ sheets.Replica = (*Replica)(nil)

func New() *Replica {
	return &Replica{rows: make(map[string]sheets.Row)}
}

func (r *Replica) Upsert(_ context.Context, row sheets.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.ID]; !ok {
		r.order = append(r.order, row.ID)
	}
	r.rows[row.ID] = row
	return nil
}

func (r *Replica) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return nil
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Row returns the stored row for id.
func (r *Replica) Row(id string) (sheets.Row, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	return row, ok
}

// Rows returns all rows in insertion order.
func (r *Replica) Rows(_ context.Context) ([]sheets.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sheets.Row, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rows[id])
	}
	return out, nil
}
