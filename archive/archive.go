// Package archive persists records in a bbolt file. Each schema full name
// gets a bucket; records are keyed by a per-bucket sequence and stored as
// tagged JSON.
package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/reoring/recskema"
	"github.com/reoring/recskema/internal/wirejson"
)

// ErrNotFound is returned by Get for a missing sequence number.
var ErrNotFound = errors.New("archive: record not found")

// Options configures Open.
type Options struct {
	Timeout  time.Duration // lock wait; zero means one second
	ReadOnly bool
	Logger   *zerolog.Logger
}

// Archive is a record file. It is safe for concurrent use.
type Archive struct {
	db    *bolt.DB
	store *recskema.Store
	log   zerolog.Logger
}

// Open opens or creates the archive at path. Stored tags are resolved
// through st; nil means recskema.DefaultStore().
func Open(path string, st *recskema.Store, opts ...Options) (*Archive, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if opt.Timeout == 0 {
		opt.Timeout = time.Second
	}
	if st == nil {
		st = recskema.DefaultStore()
	}
	mode := os.FileMode(0o644)
	db, err := bolt.Open(path, mode, &bolt.Options{Timeout: opt.Timeout, ReadOnly: opt.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	l := recskema.Logger()
	if opt.Logger != nil {
		l = *opt.Logger
	}
	return &Archive{db: db, store: st, log: l.With().Str("archive", path).Logger()}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// Store returns the store used to resolve stored tags.
func (a *Archive) Store() *recskema.Store { return a.store }

// Put appends r to its schema's bucket and returns the assigned sequence.
func (a *Archive) Put(ctx context.Context, r *recskema.Record) (uint64, error) {
	seqs, err := a.PutAll(ctx, []*recskema.Record{r})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// PutAll appends records in one transaction. Either all are stored or none.
func (a *Archive) PutAll(ctx context.Context, recs []*recskema.Record) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payloads := make([][]byte, len(recs))
	for i, r := range recs {
		if r == nil {
			return nil, fmt.Errorf("archive: record %d is nil", i)
		}
		js, err := wirejson.Marshal(r)
		if err != nil {
			return nil, err
		}
		payloads[i] = js
	}
	seqs := make([]uint64, len(recs))
	err := a.db.Update(func(tx *bolt.Tx) error {
		for i, r := range recs {
			b, err := tx.CreateBucketIfNotExists([]byte(r.Schema().FullName()))
			if err != nil {
				return err
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := b.Put(key(seq), payloads[i]); err != nil {
				return err
			}
			seqs[i] = seq
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("records", len(recs)).Msg("stored")
	return seqs, nil
}

// Get loads one record. name is resolved through the store, so a bare name
// finds a namespaced bucket.
func (a *Archive) Get(ctx context.Context, name string, seq uint64) (*recskema.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucket, err := a.bucketName(name)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(key(seq))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a.decode(data)
}

// ForEach calls fn for every record of a schema in sequence order. It stops at
// the first error from fn or from decoding, and when ctx is done.
func (a *Archive) ForEach(ctx context.Context, name string, fn func(seq uint64, r *recskema.Record) error) error {
	bucket, err := a.bucketName(name)
	if err != nil {
		return err
	}
	return a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.decode(v)
			if err != nil {
				return fmt.Errorf("archive: %s/%d: %w", bucket, binary.BigEndian.Uint64(k), err)
			}
			if err := fn(binary.BigEndian.Uint64(k), r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of records stored for a schema.
func (a *Archive) Count(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	bucket, err := a.bucketName(name)
	if err != nil {
		return 0, err
	}
	n := 0
	err = a.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(bucket)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Delete removes one record. Deleting a missing record is not an error.
func (a *Archive) Delete(ctx context.Context, name string, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucket, err := a.bucketName(name)
	if err != nil {
		return err
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete(key(seq))
	})
}

// Schemas lists the full names that have a bucket, sorted.
func (a *Archive) Schemas(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			out = append(out, string(name))
			return nil
		})
	})
	return out, err
}

func (a *Archive) bucketName(name string) (string, error) {
	s, err := a.store.Get(name)
	if err != nil {
		return "", err
	}
	return s.FullName(), nil
}

func (a *Archive) decode(data []byte) (*recskema.Record, error) {
	return wirejson.Unmarshal(data, recskema.LoadOpt{Store: a.store})
}

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
