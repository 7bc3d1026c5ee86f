package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/codec"
)

func header(label uint32, algorithm int32) codec.Header {
	return codec.Header{Label: label, AlgorithmID: algorithm}
}

func TestNewSecondaryIndex(t *testing.T) {
	idx, err := NewSecondaryIndex(FieldLabel, 3)
	require.NoError(t, err)

	assert.Equal(t, FieldLabel, idx.Field())
	assert.NotNil(t, idx.tree)
	assert.Equal(t, 0, idx.Distinct())
}

func TestNewSecondaryIndex_UnknownField(t *testing.T) {
	_, err := NewSecondaryIndex("url", 3)
	assert.Error(t, err)

	_, err = NewManager(3, FieldLabel, "width")
	assert.Error(t, err)
}

func TestSecondaryIndex_InsertDuplicateFieldValue(t *testing.T) {
	idx, err := NewSecondaryIndex(FieldLabel, 3)
	require.NoError(t, err)

	idx.Insert(header(7, 1), 0)
	idx.Insert(header(7, 1), 75)
	idx.Insert(header(8, 1), 150)

	assert.Equal(t, []int64{0, 75}, idx.Search(7))
	assert.Equal(t, []int64{150}, idx.Search(8))
	assert.Nil(t, idx.Search(9))
	assert.Equal(t, 2, idx.Distinct())
}

func TestSecondaryIndex_SearchReturnsCopy(t *testing.T) {
	idx, err := NewSecondaryIndex(FieldLabel, 3)
	require.NoError(t, err)
	idx.Insert(header(1, 0), 10)

	got := idx.Search(1)
	got[0] = 999
	assert.Equal(t, []int64{10}, idx.Search(1))
}

func TestSecondaryIndex_SearchRange(t *testing.T) {
	idx, err := NewSecondaryIndex(FieldAlgorithmID, 4)
	require.NoError(t, err)

	// Algorithm IDs are signed.
	var off int64
	for _, alg := range []int32{-2, 5, -1, 3, 0, 5, 9} {
		idx.Insert(header(0, alg), off)
		off += 100
	}

	assert.Equal(t, []int64{0, 200, 400}, idx.SearchRange(-5, 0))
	assert.Equal(t, []int64{100, 300, 500}, idx.SearchRange(1, 5))
	assert.Equal(t, []int64{0, 100, 200, 300, 400, 500, 600}, idx.SearchRange(-100, 100))
	assert.Empty(t, idx.SearchRange(6, 8))
}

func TestManager_DefaultFields(t *testing.T) {
	m, err := NewManager(4)
	require.NoError(t, err)

	assert.True(t, m.Has(FieldLabel))
	assert.True(t, m.Has(FieldAlgorithmID))
	assert.False(t, m.Has("x"))
}

func TestManager_LookupAndRange(t *testing.T) {
	m, err := NewManager(4)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		m.Insert(header(uint32(i%5), int32(i%2)), int64(i)*60)
	}

	offsets, ok := m.Lookup(FieldLabel, 3)
	require.True(t, ok)
	assert.Len(t, offsets, 10)
	assert.Equal(t, int64(180), offsets[0])

	offsets, ok = m.Lookup(FieldAlgorithmID, 1)
	require.True(t, ok)
	assert.Len(t, offsets, 25)

	offsets, ok = m.Range(FieldLabel, 3, 4)
	require.True(t, ok)
	assert.Len(t, offsets, 20)
	assert.IsIncreasing(t, offsets)

	_, ok = m.Lookup("height", 1)
	assert.False(t, ok)
	_, ok = m.Range("height", 0, 1)
	assert.False(t, ok)

	assert.Equal(t, map[Field]int{FieldLabel: 5, FieldAlgorithmID: 2}, m.Distinct())
}

func TestManager_Reset(t *testing.T) {
	m, err := NewManager(4, FieldLabel)
	require.NoError(t, err)

	m.Insert(header(1, 0), 0)
	m.Reset()

	offsets, ok := m.Lookup(FieldLabel, 1)
	assert.True(t, ok)
	assert.Empty(t, offsets)
	assert.False(t, m.Has(FieldAlgorithmID))
}
