package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"
	"time"

	"github.com/goodtune/streak/internal/storage"
	"go.etcd.io/bbolt"
)

const (
	bucketMeta  = "meta"
	bucketTimer = "timer"

	keySchemaVersion = "schema_version"
)

// lockTimeout bounds how long an operation waits for another process to
// release the file.
const lockTimeout = 2 * time.Second

// ErrReadOnly is returned by Save on a store opened with OpenReadOnly.
var ErrReadOnly = errors.New("bolt store is read-only")

// Store implements the storage.Store interface using bbolt. The file is only
// opened for the length of each operation, so the lock bbolt takes is held
// briefly and another process can read the counter between writes.
type Store struct {
	path     string
	readOnly bool

	mu     sync.Mutex
	closed bool
}

// Open opens a BoltDB-backed store and upgrades its schema when needed.
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}

	store := &Store{path: path}
	if err := store.update(context.Background(), store.upgrade); err != nil {
		return nil, err
	}
	return store, nil
}

// OpenReadOnly returns a store that takes a shared lock and never writes. A
// missing file loads as storage.ErrNotFound.
func OpenReadOnly(path string) (*Store, error) {
	return &Store{path: path, readOnly: true}, nil
}

func (s *Store) withDB(ctx context.Context, fn func(db *bbolt.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return bbolt.ErrDatabaseNotOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: lockTimeout, ReadOnly: s.readOnly})
	if s.readOnly && errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("open bolt db: %w", err)
	}
	defer db.Close()

	return fn(db)
}

func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	return s.withDB(ctx, func(db *bbolt.DB) error { return db.View(fn) })
}

func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if s.readOnly {
		return ErrReadOnly
	}
	return s.withDB(ctx, func(db *bbolt.DB) error { return db.Update(fn) })
}

// upgrade creates the record bucket when the stored schema version is older
// than storage.SchemaVersion. Running it on an up-to-date file is a no-op.
func (s *Store) upgrade(tx *bbolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketMeta, err)
	}

	current := schemaVersion(meta)
	if current >= storage.SchemaVersion {
		return nil
	}

	if _, err := tx.CreateBucketIfNotExists([]byte(bucketTimer)); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucketTimer, err)
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(storage.SchemaVersion))
	return meta.Put([]byte(keySchemaVersion), buf)
}

func schemaVersion(meta *bbolt.Bucket) int {
	raw := meta.Get([]byte(keySchemaVersion))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

// SchemaVersion reports the schema version recorded in the file.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.view(context.Background(), func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		if meta == nil {
			return nil
		}
		version = schemaVersion(meta)
		return nil
	})
	return version, err
}

// Close marks the store closed. The file is already released.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Load reads the timer record in a read-only transaction.
func (s *Store) Load(ctx context.Context) (int64, error) {
	record, err := getBucketValue[storage.Record](ctx, s, bucketTimer, recordKey())
	if err != nil {
		return 0, err
	}
	if record.Time < 0 {
		return 0, fmt.Errorf("%w: negative value %d", storage.ErrCorrupt, record.Time)
	}
	return record.Time, nil
}

// Save upserts the timer record in a read-write transaction.
func (s *Store) Save(ctx context.Context, seconds int64) error {
	return putBucketValue(ctx, s, bucketTimer, recordKey(), storage.Record{
		ID:   storage.RecordID,
		Time: seconds,
	})
}

func recordKey() string {
	return strconv.Itoa(storage.RecordID)
}

func marshal(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: unmarshal value: %v", storage.ErrCorrupt, err)
	}
	return nil
}

func getBucketValue[T any](ctx context.Context, s *Store, bucket string, key string) (*T, error) {
	var item *T
	err := s.view(ctx, func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return storage.ErrNotFound
		}
		value := b.Get([]byte(key))
		if value == nil {
			return storage.ErrNotFound
		}
		var result T
		if err := unmarshal(value, &result); err != nil {
			return err
		}
		item = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func putBucketValue(ctx context.Context, s *Store, bucket string, key string, value any) error {
	data, err := marshal(value)
	if err != nil {
		return err
	}
	return s.update(ctx, func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucket)
		}
		return b.Put([]byte(key), data)
	})
}
