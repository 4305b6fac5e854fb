package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errNoID = errors.New("docstore: document has no id")

// memoryDB holds every in-memory table of a Store.
type memoryDB struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

func newMemoryDB() *memoryDB {
	return &memoryDB{tables: make(map[string]*memTable)}
}

func (m *memoryDB) table(name string) *memTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{docs: make(map[string]map[string]any)}
		m.tables[name] = t
	}
	return t
}

// memTable stores documents in their JSON form, keeping insertion order.
type memTable struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]map[string]any
}

type memoryCollection[T Document] struct {
	t      *memTable
	unique []string
}

func newMemoryCollection[T Document](t *memTable, unique []string) *memoryCollection[T] {
	return &memoryCollection[T]{t: t, unique: unique}
}

func (c *memoryCollection[T]) Insert(_ context.Context, doc *T) error {
	id := (*doc).DocumentID()
	if id.IsZero() {
		return errNoID
	}
	m, err := toMap(doc)
	if err != nil {
		return err
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if _, exists := c.t.docs[id.Hex()]; exists {
		return fmt.Errorf("%w: _id %s", ErrDuplicate, id.Hex())
	}
	if err := c.checkUnique(id.Hex(), m); err != nil {
		return err
	}
	c.t.docs[id.Hex()] = m
	c.t.order = append(c.t.order, id.Hex())
	return nil
}

func (c *memoryCollection[T]) Get(_ context.Context, id primitive.ObjectID) (*T, error) {
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	m, ok := c.t.docs[id.Hex()]
	if !ok {
		return nil, ErrNotFound
	}
	return fromMap[T](m)
}

func (c *memoryCollection[T]) FindOne(ctx context.Context, f Filter) (*T, error) {
	items, err := c.Find(ctx, f, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

func (c *memoryCollection[T]) Find(_ context.Context, f Filter, opts FindOptions) ([]*T, error) {
	c.t.mu.RLock()
	matched := c.match(f)
	c.t.mu.RUnlock()

	if opts.SortField != "" {
		field, order := opts.SortField, opts.SortOrder
		sort.SliceStable(matched, func(i, j int) bool {
			cmp, _ := compare(matched[i][field], matched[j][field])
			if order == Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*T, 0, len(matched))
	for _, m := range matched {
		doc, err := fromMap[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *memoryCollection[T]) Count(_ context.Context, f Filter) (int, error) {
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	return len(c.match(f)), nil
}

func (c *memoryCollection[T]) Replace(_ context.Context, doc *T) error {
	id := (*doc).DocumentID()
	m, err := toMap(doc)
	if err != nil {
		return err
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if _, ok := c.t.docs[id.Hex()]; !ok {
		return ErrNotFound
	}
	if err := c.checkUnique(id.Hex(), m); err != nil {
		return err
	}
	c.t.docs[id.Hex()] = m
	return nil
}

func (c *memoryCollection[T]) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*T, error) {
	return c.UpdateWhere(ctx, id, nil, fields)
}

func (c *memoryCollection[T]) UpdateWhere(_ context.Context, id primitive.ObjectID, where Filter, fields map[string]any) (*T, error) {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	current, ok := c.t.docs[id.Hex()]
	if !ok || !matches(current, where) {
		return nil, ErrNotFound
	}

	merged := make(map[string]any, len(current)+len(fields))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		merged[k] = normalize(v)
	}
	if err := c.checkUnique(id.Hex(), merged); err != nil {
		return nil, err
	}

	doc, err := fromMap[T](merged)
	if err != nil {
		return nil, err
	}
	c.t.docs[id.Hex()] = merged
	return doc, nil
}

func (c *memoryCollection[T]) Delete(_ context.Context, id primitive.ObjectID) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if _, ok := c.t.docs[id.Hex()]; !ok {
		return ErrNotFound
	}
	delete(c.t.docs, id.Hex())
	for i, k := range c.t.order {
		if k == id.Hex() {
			c.t.order = append(c.t.order[:i], c.t.order[i+1:]...)
			break
		}
	}
	return nil
}

// match returns the documents satisfying f in insertion order. The caller
// holds the table lock.
func (c *memoryCollection[T]) match(f Filter) []map[string]any {
	var out []map[string]any
	for _, k := range c.t.order {
		if m := c.t.docs[k]; matches(m, f) {
			out = append(out, m)
		}
	}
	return out
}

func (c *memoryCollection[T]) checkUnique(selfID string, m map[string]any) error {
	for _, field := range c.unique {
		v, ok := m[field]
		if !ok || v == nil || v == "" {
			continue
		}
		for k, other := range c.t.docs {
			if k != selfID && equal(other[field], v) {
				return fmt.Errorf("%w: %s", ErrDuplicate, field)
			}
		}
	}
	return nil
}

func matches(doc map[string]any, f Filter) bool {
	for field, want := range f {
		got, present := doc[field]
		if cond, ok := want.(Cond); ok {
			v := normalize(cond.Value)
			switch cond.Op {
			case OpNe:
				if present && equal(got, v) {
					return false
				}
			case OpLt:
				cmp, ok := compare(got, v)
				if !present || !ok || cmp >= 0 {
					return false
				}
			case OpGt:
				cmp, ok := compare(got, v)
				if !present || !ok || cmp <= 0 {
					return false
				}
			}
			continue
		}
		if !present || !equal(got, normalize(want)) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two JSON values of the same kind. Strings that parse as
// RFC 3339 timestamps are compared as instants.
func compare(a, b any) (int, bool) {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		}
	case nil:
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || len(s) < len("2006-01-02T15:04:05Z") {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return m, nil
}

func fromMap[T any](m map[string]any) (*T, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	var doc T
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// normalize converts a Go value to the shape it has inside a stored
// document.
func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
