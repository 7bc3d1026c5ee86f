// Package index maintains in-memory secondary indexes over template header
// fields. Each index maps a field value to the offsets of the records that
// carry it.
package index

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ssargent/utgallery/pkg/bptree"
	"github.com/ssargent/utgallery/pkg/codec"
)

// Field names a header field that can be indexed.
type Field string

const (
	FieldLabel       Field = "label"
	FieldAlgorithmID Field = "algorithm_id"
)

// DefaultFields are the fields a gallery indexes when opened.
var DefaultFields = []Field{FieldLabel, FieldAlgorithmID}

// extract returns the indexed value of field for h.
func extract(field Field, h codec.Header) (int64, bool) {
	switch field {
	case FieldLabel:
		return int64(h.Label), true
	case FieldAlgorithmID:
		return int64(h.AlgorithmID), true
	default:
		return 0, false
	}
}

// SecondaryIndex manages a B+Tree-based index for a specific field
type SecondaryIndex struct {
	field Field
	tree  *bptree.BPlusTree[int64, []int64]
}

// NewSecondaryIndex creates a new secondary index for a field
func NewSecondaryIndex(field Field, order int) (*SecondaryIndex, error) {
	if _, ok := extract(field, codec.Header{}); !ok {
		return nil, fmt.Errorf("field %q cannot be indexed", field)
	}
	return &SecondaryIndex{
		field: field,
		tree:  bptree.NewBPlusTree[int64, []int64](order),
	}, nil
}

// Field returns the indexed field.
func (idx *SecondaryIndex) Field() Field {
	return idx.field
}

// Insert records that the record at offset carries h's value for the field.
// Offsets must be inserted in ascending order per value.
func (idx *SecondaryIndex) Insert(h codec.Header, offset int64) {
	v, _ := extract(idx.field, h)
	idx.tree.Update(v, func(old []int64, _ bool) []int64 {
		return append(old, offset)
	})
}

// Search returns the offsets of records whose field equals value.
func (idx *SecondaryIndex) Search(value int64) []int64 {
	offsets, ok := idx.tree.Search(value)
	if !ok {
		return nil
	}
	return slices.Clone(offsets)
}

// SearchRange returns the offsets of records whose field lies in [from, to],
// in file order.
func (idx *SecondaryIndex) SearchRange(from, to int64) []int64 {
	var out []int64
	idx.tree.Range(from, to, func(_ int64, offsets []int64) bool {
		out = append(out, offsets...)
		return true
	})
	slices.Sort(out)
	return out
}

// Distinct returns the number of distinct values seen.
func (idx *SecondaryIndex) Distinct() int {
	return idx.tree.Len()
}

// Manager owns the secondary indexes of one gallery.
type Manager struct {
	indexes map[Field]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewManager creates a manager indexing the given fields, or DefaultFields
// when none are named.
func NewManager(order int, fields ...Field) (*Manager, error) {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	m := &Manager{
		indexes: make(map[Field]*SecondaryIndex, len(fields)),
		order:   order,
	}
	for _, f := range fields {
		idx, err := NewSecondaryIndex(f, order)
		if err != nil {
			return nil, err
		}
		m.indexes[f] = idx
	}
	return m, nil
}

// Insert adds the record at offset to every index.
func (m *Manager) Insert(h codec.Header, offset int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, idx := range m.indexes {
		idx.Insert(h, offset)
	}
}

// Has reports whether field is indexed.
func (m *Manager) Has(field Field) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.indexes[field]
	return ok
}

// Lookup returns the offsets whose field equals value. ok is false when the
// field is not indexed.
func (m *Manager) Lookup(field Field, value int64) (offsets []int64, ok bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	idx, ok := m.indexes[field]
	if !ok {
		return nil, false
	}
	return idx.Search(value), true
}

// Range returns the offsets whose field lies in [from, to], in file order.
func (m *Manager) Range(field Field, from, to int64) (offsets []int64, ok bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	idx, ok := m.indexes[field]
	if !ok {
		return nil, false
	}
	return idx.SearchRange(from, to), true
}

// Distinct returns the number of distinct values per indexed field.
func (m *Manager) Distinct() map[Field]int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make(map[Field]int, len(m.indexes))
	for f, idx := range m.indexes {
		out[f] = idx.Distinct()
	}
	return out
}

// Reset drops every indexed entry, keeping the set of fields.
func (m *Manager) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for f := range m.indexes {
		m.indexes[f] = &SecondaryIndex{
			field: f,
			tree:  bptree.NewBPlusTree[int64, []int64](m.order),
		}
	}
}
