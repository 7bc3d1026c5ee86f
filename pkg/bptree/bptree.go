// Package bptree implements an in-memory B+tree with ordered keys and
// linked leaves for range scans.
package bptree

import (
	"cmp"
	"sort"
	"sync"
)

// DefaultOrder is the fallback branching factor if a user-supplied order is too small.
const DefaultOrder = 4

// BPlusTree maps ordered keys to values. It is safe for concurrent use:
// writers take the tree lock exclusively, readers share it.
type BPlusTree[K cmp.Ordered, V any] struct {
	root   *node[K, V]
	order  int
	height int
	size   int
	m      sync.RWMutex
}

// node represents both internal and leaf nodes in the B+Tree.
type node[K cmp.Ordered, V any] struct {
	isLeaf   bool
	keys     []K
	children []*node[K, V] // used if !isLeaf
	values   []V           // used if isLeaf
	parent   *node[K, V]
	next     *node[K, V] // leaf-link pointer, for range scans
}

// NewBPlusTree creates and returns a B+Tree with the given order.
// If the specified order < 3, we fall back to DefaultOrder.
func NewBPlusTree[K cmp.Ordered, V any](order int) *BPlusTree[K, V] {
	if order < 3 {
		order = DefaultOrder
	}
	return &BPlusTree[K, V]{
		root: &node[K, V]{
			isLeaf: true,
			keys:   make([]K, 0, order+1),
			values: make([]V, 0, order+1),
		},
		order:  order,
		height: 1,
	}
}

// Height returns the number of levels in the tree.
func (tree *BPlusTree[K, V]) Height() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.height
}

// Len returns the number of distinct keys.
func (tree *BPlusTree[K, V]) Len() int {
	tree.m.RLock()
	defer tree.m.RUnlock()
	return tree.size
}

// findChildIndex determines which child pointer to follow in an internal node.
func findChildIndex[K cmp.Ordered](keys []K, searchKey K) int {
	return sort.Search(len(keys), func(i int) bool {
		return cmp.Less(searchKey, keys[i])
	})
}

// findLeaf descends to the leaf that would hold key.
func (tree *BPlusTree[K, V]) findLeaf(key K) *node[K, V] {
	current := tree.root
	for !current.isLeaf {
		current = current.children[findChildIndex(current.keys, key)]
	}
	return current
}

// leftmostLeaf returns the first leaf in key order.
func (tree *BPlusTree[K, V]) leftmostLeaf() *node[K, V] {
	current := tree.root
	for !current.isLeaf {
		current = current.children[0]
	}
	return current
}

// Search locates the value associated with key.
func (tree *BPlusTree[K, V]) Search(key K) (V, bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	leaf := tree.findLeaf(key)
	i, found := leafIndex(leaf.keys, key)
	if !found {
		var zero V
		return zero, false
	}
	return leaf.values[i], true
}

// Insert adds or replaces the value stored under key.
func (tree *BPlusTree[K, V]) Insert(key K, value V) {
	tree.m.Lock()
	defer tree.m.Unlock()
	tree.insert(key, value)
}

// Update replaces the value under key with fn(old, found) atomically.
func (tree *BPlusTree[K, V]) Update(key K, fn func(old V, found bool) V) {
	tree.m.Lock()
	defer tree.m.Unlock()

	leaf := tree.findLeaf(key)
	if i, found := leafIndex(leaf.keys, key); found {
		leaf.values[i] = fn(leaf.values[i], true)
		return
	}
	var zero V
	tree.insert(key, fn(zero, false))
}

func (tree *BPlusTree[K, V]) insert(key K, value V) {
	leaf := tree.findLeaf(key)
	if insertKeyValueInLeaf(leaf, key, value) {
		tree.size++
	}
	if len(leaf.keys) > tree.order {
		tree.splitLeaf(leaf)
	}
}

// Range calls fn for every key in [from, to] in ascending order until fn
// returns false.
func (tree *BPlusTree[K, V]) Range(from, to K, fn func(key K, value V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()

	if cmp.Less(to, from) {
		return
	}
	leaf := tree.findLeaf(from)
	i, _ := leafIndex(leaf.keys, from)
	tree.walk(leaf, i, func(k K, v V) bool {
		if cmp.Less(to, k) {
			return false
		}
		return fn(k, v)
	})
}

// Ascend calls fn for every key in ascending order until fn returns false.
func (tree *BPlusTree[K, V]) Ascend(fn func(key K, value V) bool) {
	tree.m.RLock()
	defer tree.m.RUnlock()
	tree.walk(tree.leftmostLeaf(), 0, fn)
}

func (tree *BPlusTree[K, V]) walk(leaf *node[K, V], start int, fn func(K, V) bool) {
	for ; leaf != nil; leaf = leaf.next {
		for i := start; i < len(leaf.keys); i++ {
			if !fn(leaf.keys[i], leaf.values[i]) {
				return
			}
		}
		start = 0
	}
}

// leafIndex returns the position of key in keys, or where it would be inserted.
func leafIndex[K cmp.Ordered](keys []K, key K) (int, bool) {
	i := sort.Search(len(keys), func(i int) bool {
		return !cmp.Less(keys[i], key)
	})
	return i, i < len(keys) && keys[i] == key
}

// insertKeyValueInLeaf reports whether key was new.
func insertKeyValueInLeaf[K cmp.Ordered, V any](leaf *node[K, V], key K, value V) bool {
	idx, found := leafIndex(leaf.keys, key)
	if found {
		leaf.values[idx] = value
		return false
	}
	leaf.keys = append(leaf.keys, key)
	leaf.values = append(leaf.values, value)

	copy(leaf.keys[idx+1:], leaf.keys[idx:])
	leaf.keys[idx] = key

	copy(leaf.values[idx+1:], leaf.values[idx:])
	leaf.values[idx] = value
	return true
}

// splitLeaf handles splitting a leaf node that has overflowed.
func (tree *BPlusTree[K, V]) splitLeaf(leaf *node[K, V]) {
	mid := len(leaf.keys) / 2

	newLeaf := &node[K, V]{
		isLeaf: true,
		keys:   append([]K{}, leaf.keys[mid:]...),
		values: append([]V{}, leaf.values[mid:]...),
		next:   leaf.next,
		parent: leaf.parent,
	}

	leaf.keys = leaf.keys[:mid]
	leaf.values = leaf.values[:mid]
	leaf.next = newLeaf

	if leaf.parent == nil {
		tree.newRoot(newLeaf.keys[0], leaf, newLeaf)
		return
	}
	tree.insertKeyInParent(leaf.parent, newLeaf.keys[0], newLeaf)
}

func (tree *BPlusTree[K, V]) newRoot(key K, left, right *node[K, V]) {
	root := &node[K, V]{
		keys:     []K{key},
		children: []*node[K, V]{left, right},
	}
	left.parent = root
	right.parent = root
	tree.root = root
	tree.height++
}

// insertKeyInParent inserts key and links rightChild after the child it was split from.
func (tree *BPlusTree[K, V]) insertKeyInParent(parent *node[K, V], key K, rightChild *node[K, V]) {
	idx := findChildIndex(parent.keys, key)

	parent.keys = append(parent.keys, key)
	copy(parent.keys[idx+1:], parent.keys[idx:])
	parent.keys[idx] = key

	parent.children = append(parent.children, rightChild)
	copy(parent.children[idx+2:], parent.children[idx+1:])
	parent.children[idx+1] = rightChild

	rightChild.parent = parent

	if len(parent.keys) > tree.order {
		tree.splitInternalNode(parent)
	}
}

// splitInternalNode handles splitting an internal node that has overflowed.
func (tree *BPlusTree[K, V]) splitInternalNode(internal *node[K, V]) {
	mid := len(internal.keys) / 2
	splitKey := internal.keys[mid]

	newInternal := &node[K, V]{
		keys:     append([]K{}, internal.keys[mid+1:]...),
		children: append([]*node[K, V]{}, internal.children[mid+1:]...),
		parent:   internal.parent,
	}
	for _, child := range newInternal.children {
		child.parent = newInternal
	}

	internal.keys = internal.keys[:mid]
	internal.children = internal.children[:mid+1]

	if internal.parent == nil {
		tree.newRoot(splitKey, internal, newInternal)
		return
	}
	tree.insertKeyInParent(internal.parent, splitKey, newInternal)
}
