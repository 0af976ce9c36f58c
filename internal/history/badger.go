package history

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/dgraph-io/badger/v4"
)

var badgerKeyPrefix = []byte("sent/")

// BadgerStore keeps one key per delivered identifier. The value is the time
// the identifier was recorded, which is informational only.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's default logger is very chatty
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load(ctx context.Context) (Set, error) {
	set := Set{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = badgerKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			set.Add(string(key[len(badgerKeyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read badger history: %w", core.ErrPersistence, err)
	}
	return set, nil
}

func (s *BadgerStore) Append(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			key := append(append([]byte{}, badgerKeyPrefix...), id...)
			if err := txn.Set(key, stamp); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: append badger history: %w", core.ErrPersistence, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
