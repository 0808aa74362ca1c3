// internal/repository/memstore/table.go
package memstore

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/insurance-backend/internal/utils"
)

type entry[T any] struct {
	seq   int64
	value T
}

// table keeps rows in insertion order so equal timestamps still sort
// deterministically.
type table[T any] struct {
	rows map[uuid.UUID]entry[T]
	seq  int64
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]entry[T])}
}

func (t *table[T]) put(id uuid.UUID, value T) {
	e, ok := t.rows[id]
	if !ok {
		t.seq++
		e.seq = t.seq
	}
	e.value = value
	t.rows[id] = e
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	e, ok := t.rows[id]
	return e.value, ok
}

func (t *table[T]) remove(id uuid.UUID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// scan returns every row matching keep, oldest first.
func (t *table[T]) scan(keep func(T) bool) []T {
	entries := make([]entry[T], 0, len(t.rows))
	for _, e := range t.rows {
		if keep == nil || keep(e.value) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

// restorer returns a func that puts row id back into its current state.
func (t *table[T]) restorer(id uuid.UUID) func() {
	e, ok := t.rows[id]
	return func() {
		if ok {
			t.rows[id] = e
		} else {
			delete(t.rows, id)
		}
	}
}

// page orders rows by created time and slices out the requested page.
func page[T any](rows []T, createdAt func(T) time.Time, params utils.PaginationParams) []T {
	params = utils.NormalizePagination(params, 20)

	sort.SliceStable(rows, func(i, j int) bool {
		if params.Order == "asc" {
			return createdAt(rows[i]).Before(createdAt(rows[j]))
		}
		return createdAt(rows[i]).After(createdAt(rows[j]))
	})
	if params.Order != "asc" {
		// stable sort kept insertion order for ties; newest first wins
		reverseTies(rows, createdAt)
	}

	start := params.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + params.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func reverseTies[T any](rows []T, createdAt func(T) time.Time) {
	for i := 0; i < len(rows); {
		j := i + 1
		for j < len(rows) && createdAt(rows[j]).Equal(createdAt(rows[i])) {
			j++
		}
		for l, r := i, j-1; l < r; l, r = l+1, r-1 {
			rows[l], rows[r] = rows[r], rows[l]
		}
		i = j
	}
}
