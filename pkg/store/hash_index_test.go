package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/codec"
)

func TestNewHashIndex(t *testing.T) {
	idx := NewHashIndex()
	assert.NotNil(t, idx)
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idx.Templates())
}

func TestHashIndex_AddAndGet(t *testing.T) {
	idx := NewHashIndex()
	a := codec.ImageIDFromContent([]byte("a"))
	b := codec.ImageIDFromContent([]byte("b"))

	idx.Add(a, IndexEntry{Offset: 0, Size: 60, Label: 1})
	idx.Add(b, IndexEntry{Offset: 60, Size: 70, Label: 2})
	idx.Add(a, IndexEntry{Offset: 130, Size: 80, Label: 1, AlgorithmID: 2})

	entries, ok := idx.Get(a)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(0), entries[0].Offset)
	assert.Equal(t, int64(130), entries[1].Offset)
	assert.Equal(t, int64(210), entries[1].Span().End())

	_, ok = idx.Get(codec.ImageIDFromContent([]byte("c")))
	assert.False(t, ok)

	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, 3, idx.Templates())
	assert.Equal(t, &IndexStats{Images: 2, Templates: 3}, idx.Stats())
}

func TestHashIndex_GetReturnsCopy(t *testing.T) {
	idx := NewHashIndex()
	id := codec.ImageIDFromContent([]byte("a"))
	idx.Add(id, IndexEntry{Offset: 5})

	entries, _ := idx.Get(id)
	entries[0].Offset = 99

	entries, _ = idx.Get(id)
	assert.Equal(t, int64(5), entries[0].Offset)
}

func TestHashIndex_Keys(t *testing.T) {
	idx := NewHashIndex()
	var ids [][16]byte
	for i := 0; i < 20; i++ {
		id := codec.ImageIDFromContent([]byte(fmt.Sprint(i)))
		ids = append(ids, id)
		idx.Add(id, IndexEntry{Offset: int64(i)})
	}

	keys := idx.Keys()
	assert.Len(t, keys, 20)
	assert.IsIncreasing(t, keys)

	want := codec.Header{ImageID: ids[3]}.ImageIDHex()
	matches := idx.KeysWithPrefix(want[:6])
	assert.Contains(t, matches, want)
	for _, k := range matches {
		assert.Equal(t, want[:6], k[:6])
	}

	assert.Equal(t, []string{want}, idx.KeysWithPrefix(want))
	assert.Empty(t, idx.KeysWithPrefix("not-hex"))
}

func TestHashIndex_Clear(t *testing.T) {
	idx := NewHashIndex()
	idx.Add(codec.ImageIDFromContent([]byte("a")), IndexEntry{})
	idx.Clear()

	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idx.Templates())
	assert.Empty(t, idx.Keys())
}

func TestHashIndex_ConcurrentAccess(t *testing.T) {
	idx := NewHashIndex()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := codec.ImageIDFromContent([]byte(fmt.Sprint(i)))
				idx.Add(id, IndexEntry{Offset: int64(g*1000 + i)})
				_, _ = idx.Get(id)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 100, idx.Size())
	assert.Equal(t, 1000, idx.Templates())
}

func BenchmarkHashIndex_Add(b *testing.B) {
	idx := NewHashIndex()
	ids := make([][16]byte, 1024)
	for i := range ids {
		ids[i] = codec.ImageIDFromContent([]byte(fmt.Sprint(i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Add(ids[i%len(ids)], IndexEntry{Offset: int64(i)})
	}
}

func BenchmarkHashIndex_Get(b *testing.B) {
	idx := NewHashIndex()
	ids := make([][16]byte, 1024)
	for i := range ids {
		ids[i] = codec.ImageIDFromContent([]byte(fmt.Sprint(i)))
		idx.Add(ids[i], IndexEntry{Offset: int64(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Get(ids[i%len(ids)])
	}
}
