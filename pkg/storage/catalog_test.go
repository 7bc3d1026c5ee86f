package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/codec"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func template(t *testing.T, label uint32) *codec.Record {
	t.Helper()
	r, err := codec.New(codec.ImageIDFromContent([]byte(fmt.Sprint(label))), 2, 0, 0, 32, 32, label,
		fmt.Sprintf("file:///img/%d.png", label), codec.Float32Bytes([]float32{float32(label)}))
	require.NoError(t, err)
	return r
}

func TestCatalog_CRUD(t *testing.T) {
	c := openCatalog(t)

	id, err := c.Create(template(t, 1))
	require.NoError(t, err)
	assert.NotEqual(t, ksuid.Nil, id)

	got, err := c.Read(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Header().Label)
	assert.Equal(t, "file:///img/1.png", got.URL())

	require.NoError(t, c.Update(id, template(t, 9)))
	got, err = c.Read(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.Header().Label)

	require.NoError(t, c.Delete(id))
	_, err = c.Read(id)
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.Update(id, template(t, 2))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ReadOwnsPayload(t *testing.T) {
	c := openCatalog(t)

	id, err := c.Create(template(t, 3))
	require.NoError(t, err)
	first, err := c.Read(id)
	require.NoError(t, err)

	// Later reads must not disturb an earlier result.
	for i := 0; i < 10; i++ {
		_, err := c.Create(template(t, uint32(100+i)))
		require.NoError(t, err)
		_, err = c.Read(id)
		require.NoError(t, err)
	}
	assert.Equal(t, "file:///img/3.png", first.URL())
}

func TestCatalog_ListAndCount(t *testing.T) {
	c := openCatalog(t)

	var ids []ksuid.KSUID
	for i := 0; i < 5; i++ {
		id, err := c.Create(template(t, uint32(i)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	all, err := c.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Equal(t, -1, ksuid.Compare(all[i-1].ID, all[i].ID), "entries come back in key order")
	}
	assert.ElementsMatch(t, ids, []ksuid.KSUID{all[0].ID, all[1].ID, all[2].ID, all[3].ID, all[4].ID})
	assert.False(t, all[0].CreatedAt().IsZero())

	some, err := c.List(2)
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func TestCatalog_Export(t *testing.T) {
	c := openCatalog(t)
	for i := 0; i < 4; i++ {
		_, err := c.Create(template(t, uint32(i)))
		require.NoError(t, err)
	}

	var exported []*codec.Record
	result, err := c.Export(context.Background(), func(r *codec.Record) error {
		exported = append(exported, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Exported)

	var bytes int64
	for _, r := range exported {
		bytes += r.Size()
	}
	assert.Equal(t, bytes, result.Bytes)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "exported entries are removed")
}

func TestCatalog_ExportPartialFailure(t *testing.T) {
	c := openCatalog(t)
	for i := 0; i < 4; i++ {
		_, err := c.Create(template(t, uint32(i)))
		require.NoError(t, err)
	}

	boom := errors.New("disk full")
	var calls int
	result, err := c.Export(context.Background(), func(*codec.Record) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, result.Exported)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "only the entries handed over are removed")
}

func TestCatalog_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog")

	c, err := OpenCatalog(path)
	require.NoError(t, err)
	id, err := c.Create(template(t, 5))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenCatalog(path)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Read(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.Header().Label)
}
