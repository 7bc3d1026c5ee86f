// Package storage keeps a durable catalog of templates that have been
// submitted but not yet exported to a gallery file. Entries are keyed by
// KSUID, so iteration follows submission time at one-second resolution.
package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/utgallery/pkg/codec"
)

var keyPrefix = []byte("t/")

// ErrNotFound is returned when no template is stored under an ID
var ErrNotFound = errors.New("catalog entry not found")

// Entry is a catalogued template
type Entry struct {
	ID     ksuid.KSUID
	Record *codec.Record
}

// CreatedAt returns the submission time encoded in the ID
func (e Entry) CreatedAt() time.Time {
	return e.ID.Time()
}

// ExportResult describes a catalog export
type ExportResult struct {
	Exported int   `json:"exported"`
	Bytes    int64 `json:"bytes"`
}

// Catalog stores encoded templates in a pebble database
type Catalog struct {
	db    *pebble.DB
	codec *codec.RecordCodec
}

// OpenCatalog opens or creates the catalog at path
func OpenCatalog(path string) (*Catalog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog %s", path)
	}
	return &Catalog{db: db, codec: codec.NewRecordCodec()}, nil
}

func entryKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, keyPrefix...), id.Bytes()...)
}

func entryID(key []byte) (ksuid.KSUID, error) {
	return ksuid.FromBytes(key[len(keyPrefix):])
}

// Create stores r under a new ID
func (c *Catalog) Create(r *codec.Record) (ksuid.KSUID, error) {
	id := ksuid.New()
	if err := c.db.Set(entryKey(id), c.codec.Encode(r), pebble.Sync); err != nil {
		return ksuid.Nil, errors.Wrap(err, "catalog create")
	}
	return id, nil
}

// Read returns the template stored under id. The record owns its payload.
func (c *Catalog) Read(id ksuid.KSUID) (*codec.Record, error) {
	data, closer, err := c.db.Get(entryKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "catalog read")
	}
	defer closer.Close()

	return c.decode(data)
}

// decode copies value out of pebble's buffer and decodes it.
func (c *Catalog) decode(value []byte) (*codec.Record, error) {
	record, n, err := c.codec.Decode(value, 0)
	if err != nil {
		return nil, err
	}
	if n != int64(len(value)) {
		return nil, errors.Newf("catalog value holds %d trailing bytes", int64(len(value))-n)
	}
	return record.Clone(), nil
}

// Update replaces the template stored under id
func (c *Catalog) Update(id ksuid.KSUID, r *codec.Record) error {
	if _, err := c.Read(id); err != nil {
		return err
	}
	return c.db.Set(entryKey(id), c.codec.Encode(r), pebble.Sync)
}

// Delete removes the template stored under id
func (c *Catalog) Delete(id ksuid.KSUID) error {
	return c.db.Delete(entryKey(id), pebble.Sync)
}

// List returns up to limit entries in key order. limit <= 0 means all.
func (c *Catalog) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := c.each(context.Background(), func(e Entry) error {
		entries = append(entries, e)
		if limit > 0 && len(entries) >= limit {
			return codec.ErrStop
		}
		return nil
	})
	return entries, err
}

// Count returns the number of catalogued templates
func (c *Catalog) Count() (int, error) {
	var n int
	err := c.each(context.Background(), func(Entry) error {
		n++
		return nil
	})
	return n, err
}

// Export hands every entry to appendFn in key order and deletes the
// exported entries in one batch. Entries handed over before a failure are
// still deleted, so a retry never exports a template twice.
func (c *Catalog) Export(ctx context.Context, appendFn func(*codec.Record) error) (*ExportResult, error) {
	batch := c.db.NewBatch()
	defer batch.Close()

	result := &ExportResult{}
	err := c.each(ctx, func(e Entry) error {
		if err := appendFn(e.Record); err != nil {
			return errors.Wrapf(err, "export %s", e.ID)
		}
		if err := batch.Delete(entryKey(e.ID), nil); err != nil {
			return err
		}
		result.Exported++
		result.Bytes += e.Record.Size()
		return nil
	})

	if result.Exported > 0 {
		if commitErr := batch.Commit(pebble.Sync); commitErr != nil && err == nil {
			err = errors.Wrap(commitErr, "commit export")
		}
	}
	return result, err
}

// each visits every entry in key order. codec.ErrStop ends the walk early.
func (c *Catalog) each(ctx context.Context, visit func(Entry) error) error {
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: []byte("t0"), // '0' sorts right after '/'
	})
	if err != nil {
		return errors.Wrap(err, "catalog iterator")
	}

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			_ = iter.Close()
			return err
		}
		id, err := entryID(iter.Key())
		if err != nil {
			_ = iter.Close()
			return errors.Wrapf(err, "catalog key %x", iter.Key())
		}
		record, err := c.decode(iter.Value())
		if err != nil {
			_ = iter.Close()
			return errors.Wrapf(err, "catalog entry %s", id)
		}
		if err := visit(Entry{ID: id, Record: record}); err != nil {
			_ = iter.Close()
			if errors.Is(err, codec.ErrStop) {
				return nil
			}
			return err
		}
	}
	return iter.Close()
}

// Close closes the catalog
func (c *Catalog) Close() error {
	return c.db.Close()
}
