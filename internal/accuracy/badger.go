package accuracy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const entryPrefix = "accuracy/entry/"

// BadgerJournal stores entries in an embedded badger database under
// sequence-ordered keys. It backs the offline CLI.
type BadgerJournal struct {
	db  *badger.DB
	mu  sync.Mutex
	seq uint64
}

// OpenBadgerJournal opens (or creates) a journal at path. An empty path
// opens an in-memory database.
func OpenBadgerJournal(path string) (*BadgerJournal, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger journal: %w", err)
	}

	j := &BadgerJournal{db: db}
	if err := j.loadSequence(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close releases the underlying database.
func (j *BadgerJournal) Close() error {
	return j.db.Close()
}

func (j *BadgerJournal) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	next := j.seq + 1
	if err := j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(next), data)
	}); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	j.seq = next
	return nil
}

func (j *BadgerJournal) Replay(ctx context.Context, fn func(Entry) error) error {
	prefix := []byte(entryPrefix)

	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}

			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *BadgerJournal) loadSequence() error {
	prefix := []byte(entryPrefix)

	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var seq uint64
			key := it.Item().Key()
			if _, err := fmt.Sscanf(string(key[len(prefix):]), "%016d", &seq); err != nil {
				continue
			}
			j.seq = max(j.seq, seq)
		}
		return nil
	})
}

func entryKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%016d", entryPrefix, seq)
}
