// Package store persists authored pipelines, source declarations and
// table snapshots in a single bolt file.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openkvlab/boltdb"
	boltdb_errors "github.com/openkvlab/boltdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	"rsc.io/ordered"

	"github.com/spektr-org/tabula/catalog"
	"github.com/spektr-org/tabula/steps"
)

// ============================================================================
// PROJECT STORE
// ============================================================================
// Buckets:
//   pipelines     name → msgpack(steps.Pipeline)
//   declarations  name → msgpack(catalog.Declaration)
//   snapshots     ordered(table, seq) → msgpack(Snapshot)
//
// Snapshot keys sort by table name and then by sequence, so the history
// of one table is a contiguous, ordered key range.
// ============================================================================

var (
	bucketPipelines    = []byte("pipelines")
	bucketDeclarations = []byte("declarations")
	bucketSnapshots    = []byte("snapshots")
)

var ErrNotFound = errors.New("not found")

// Snapshot is one stored export of a table.
type Snapshot struct {
	Table     string    `msgpack:"table"`
	Seq       uint64    `msgpack:"seq"`
	Taken     time.Time `msgpack:"taken"`
	Delimited string    `msgpack:"delimited"`
}

// Options configures Open.
type Options = boltdb.Options

// Store is a project file. Safe for concurrent use; bolt serializes
// writers.
type Store struct {
	db  *boltdb.DB
	now func() time.Time
}

// Open opens or creates the store at path.
func Open(path string, mode os.FileMode, options *Options) (*Store, error) {
	if options == nil {
		options = &Options{Timeout: time.Second}
	}
	db, err := boltdb.Open(path, mode, options)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *boltdb.Tx) error {
		for _, name := range [][]byte{bucketPipelines, bucketDeclarations, bucketSnapshots} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func bucket(tx *boltdb.Tx, name []byte) (*boltdb.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("bucket %s: %w", name, boltdb_errors.ErrBucketNotFound)
	}
	return b, nil
}

func (s *Store) put(bucketName []byte, key string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *Store) get(bucketName []byte, key string, v any) error {
	return s.db.View(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %q: %w", bucketName, key, ErrNotFound)
		}
		return msgpack.Unmarshal(data, v)
	})
}

func (s *Store) keys(bucketName []byte) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketName)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// ----------------------------------------------------------------------------
// pipelines
// ----------------------------------------------------------------------------

// SavePipeline stores p under p.Name, replacing any previous version.
func (s *Store) SavePipeline(p steps.Pipeline) error {
	if p.Name == "" {
		return errors.New("save pipeline: empty name")
	}
	return s.put(bucketPipelines, p.Name, p)
}

func (s *Store) LoadPipeline(name string) (steps.Pipeline, error) {
	var p steps.Pipeline
	err := s.get(bucketPipelines, name, &p)
	return p, err
}

func (s *Store) DeletePipeline(name string) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketPipelines)
		if err != nil {
			return err
		}
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("pipeline %q: %w", name, ErrNotFound)
		}
		return b.Delete([]byte(name))
	})
}

// Pipelines lists stored pipeline names in key order.
func (s *Store) Pipelines() ([]string, error) {
	return s.keys(bucketPipelines)
}

// ----------------------------------------------------------------------------
// declarations
// ----------------------------------------------------------------------------

func (s *Store) SaveDeclaration(name string, d catalog.Declaration) error {
	return s.put(bucketDeclarations, name, d)
}

// Declarations returns every stored declaration by name.
func (s *Store) Declarations() (map[string]catalog.Declaration, error) {
	out := make(map[string]catalog.Declaration)
	err := s.db.View(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketDeclarations)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var d catalog.Declaration
			if err := msgpack.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("declaration %q: %w", k, err)
			}
			out[string(k)] = d
			return nil
		})
	})
	return out, err
}

// ----------------------------------------------------------------------------
// snapshots
// ----------------------------------------------------------------------------

// Snapshot appends a delimited export of a table to its history.
func (s *Store) Snapshot(name, delimited string) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketSnapshots)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := msgpack.Marshal(Snapshot{Table: name, Seq: seq, Taken: s.now().UTC(), Delimited: delimited})
		if err != nil {
			return err
		}
		return b.Put(ordered.Encode(name, seq), data)
	})
}

// Snapshots returns the history of one table, oldest first.
func (s *Store) Snapshots(name string) ([]Snapshot, error) {
	prefix := ordered.Encode(name)
	var out []Snapshot
	err := s.db.View(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketSnapshots)
		if err != nil {
			return err
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var snap Snapshot
			if err := msgpack.Unmarshal(v, &snap); err != nil {
				return fmt.Errorf("snapshot %x: %w", k, err)
			}
			out = append(out, snap)
		}
		return nil
	})
	return out, err
}

// SnapshotTables lists every table with at least one snapshot, in key
// order.
func (s *Store) SnapshotTables() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *boltdb.Tx) error {
		b, err := bucket(tx, bucketSnapshots)
		if err != nil {
			return err
		}
		last := ""
		return b.ForEach(func(k, _ []byte) error {
			parts, err := ordered.DecodeAny(k)
			if err != nil {
				return err
			}
			name, ok := parts[0].(string)
			if !ok {
				return fmt.Errorf("snapshot key %x: unexpected layout", k)
			}
			if len(out) == 0 || name != last {
				out = append(out, name)
				last = name
			}
			return nil
		})
	})
	return out, err
}

var _ catalog.SnapshotSink = (*Store)(nil)
