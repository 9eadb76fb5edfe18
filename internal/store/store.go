// Package store is the in-memory backing for every ordered structure of the
// index: ordered maps addressed by 64-bit handles and an append-only string
// heap.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
)

// Handle addresses a structure owned by a Store. The zero handle is never
// allocated.
type Handle uint64

// NilHandle is the handle of nothing.
const NilHandle Handle = 0

// Address locates a string inside a StringHeap. Address 0 is the empty string.
type Address uint64

// Store owns ordered maps and a string heap.
type Store struct {
	next    Handle
	objects map[Handle]any
	heap    *StringHeap
}

// New creates an empty store.
func New() *Store {
	return &Store{
		objects: make(map[Handle]any),
		heap:    NewStringHeap(),
	}
}

// Heap returns the store's string heap.
func (s *Store) Heap() *StringHeap {
	return s.heap
}

// Len returns the number of live ordered maps.
func (s *Store) Len() int {
	return len(s.objects)
}

// Free releases the structure behind h.
func (s *Store) Free(h Handle) {
	delete(s.objects, h)
}

// CreateMap allocates a new ordered map ordered by cmp.
func CreateMap[K any, V any](s *Store, cmp Compare[K]) *OrderedMap[K, V] {
	s.next++
	m := newOrderedMap[K, V](s.next, cmp)
	s.objects[s.next] = m
	return m
}

// OpenMap returns the ordered map registered under h.
func OpenMap[K any, V any](s *Store, h Handle) (*OrderedMap[K, V], error) {
	obj, ok := s.objects[h]
	if !ok {
		return nil, fmt.Errorf("ordered map %d: %w", h, errors.ErrNotFound)
	}
	m, ok := obj.(*OrderedMap[K, V])
	if !ok {
		return nil, fmt.Errorf("handle %d holds %T, not the requested map type", h, obj)
	}
	return m, nil
}

// StringHeap stores length-prefixed strings in one growing buffer.
type StringHeap struct {
	data []byte
}

// NewStringHeap creates a heap whose address 0 holds the empty string.
func NewStringHeap() *StringHeap {
	return &StringHeap{data: []byte{0}}
}

// Append stores s and returns its address.
func (h *StringHeap) Append(s string) Address {
	if s == "" {
		return 0
	}
	addr := Address(len(h.data))
	h.data = binary.AppendUvarint(h.data, uint64(len(s)))
	h.data = append(h.data, s...)
	return addr
}

// Load returns the string stored at addr.
func (h *StringHeap) Load(addr Address) (string, error) {
	if addr >= Address(len(h.data)) {
		return "", fmt.Errorf("string heap address %d out of range: %w", addr, errors.ErrNotFound)
	}
	n, w := binary.Uvarint(h.data[addr:])
	if w <= 0 {
		return "", fmt.Errorf("string heap address %d: corrupt length prefix", addr)
	}
	start := uint64(addr) + uint64(w)
	end := start + n
	if end > uint64(len(h.data)) {
		return "", fmt.Errorf("string heap address %d: length %d overruns heap", addr, n)
	}
	return string(h.data[start:end]), nil
}

// Size returns the number of bytes used by the heap.
func (h *StringHeap) Size() int {
	return len(h.data)
}
