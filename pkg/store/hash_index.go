package store

import (
	"encoding/hex"
	"slices"
	"strings"
	"sync"
)

// HashIndex maps image IDs to the templates extracted from that image. One
// image usually yields several templates (one per algorithm or region).
type HashIndex struct {
	entries map[[16]byte][]IndexEntry
	total   int
	mutex   sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[[16]byte][]IndexEntry),
	}
}

// Add records the location of a template for imageID. Entries for one image
// are kept in insertion order, which is file order during a build.
func (idx *HashIndex) Add(imageID [16]byte, entry IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries[imageID] = append(idx.entries[imageID], entry)
	idx.total++
}

// Get returns the entries recorded for imageID
func (idx *HashIndex) Get(imageID [16]byte) ([]IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entries, exists := idx.entries[imageID]
	if !exists {
		return nil, false
	}
	return slices.Clone(entries), true
}

// Size returns the number of distinct images in the index
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.entries)
}

// Templates returns the number of indexed templates
func (idx *HashIndex) Templates() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return idx.total
}

// Clear removes all entries from the index
func (idx *HashIndex) Clear() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[[16]byte][]IndexEntry)
	idx.total = 0
}

// Keys returns every image ID as lowercase hex, sorted
func (idx *HashIndex) Keys() []string {
	return idx.KeysWithPrefix("")
}

// KeysWithPrefix returns the sorted hex image IDs that start with prefix
func (idx *HashIndex) KeysWithPrefix(prefix string) []string {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	prefix = strings.ToLower(prefix)
	var keys []string
	for id := range idx.entries {
		key := hex.EncodeToString(id[:])
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Stats returns index statistics
func (idx *HashIndex) Stats() *IndexStats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return &IndexStats{
		Images:    len(idx.entries),
		Templates: idx.total,
	}
}

// IndexStats holds statistics about the index
type IndexStats struct {
	Images    int
	Templates int
}
