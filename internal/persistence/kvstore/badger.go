// Package kvstore keeps ownership records in BadgerDB, one key per chunk
// ("chunk:x:y:z") holding the encoded record.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"voxelclaim.ai/internal/sim/world/io/recordcodec"
	"voxelclaim.ai/internal/sim/world/terrain/coord"
)

var ErrClosed = errors.New("kvstore: closed")

var chunkPrefix = []byte("chunk:")

type BadgerStore struct {
	db    *badger.DB
	mu    sync.RWMutex
	ready bool
}

// OpenBadger opens (or creates) a store in dir. An empty dir opens an
// in-memory store.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, ready: true}, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.db.Close()
}

// PutRecords replaces every given record in one transaction.
func (s *BadgerStore) PutRecords(_ context.Context, rows []recordcodec.Row) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for i := range rows {
			r := &rows[i]
			if err := txn.Set(recordcodec.Key(r.Key), recordcodec.Encode(r.Owner, &r.Blocks)); err != nil {
				return fmt.Errorf("put record %v: %w", r.Key.ToArray(), err)
			}
		}
		return nil
	})
}

// GetRecord reads one record; ok is false when the chunk was never stored.
func (s *BadgerStore) GetRecord(_ context.Context, k coord.ChunkKey) (recordcodec.Row, bool, error) {
	row := recordcodec.Row{Key: k}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return row, false, ErrClosed
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordcodec.Key(k))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return row, false, nil
	}
	if err != nil {
		return row, false, err
	}
	owner, blocks, err := recordcodec.Decode(data)
	if err != nil {
		return row, false, fmt.Errorf("record %v: %w", k.ToArray(), err)
	}
	row.Owner = owner
	row.Blocks = blocks
	return row, true, nil
}

// LoadRecords streams every record ordered by (x, y, z). Badger orders keys
// as bytes, so rows are collected and sorted first.
func (s *BadgerStore) LoadRecords(_ context.Context, fn func(recordcodec.Row) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return ErrClosed
	}
	var rows []recordcodec.Row
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(chunkPrefix); it.ValidForPrefix(chunkPrefix); it.Next() {
			item := it.Item()
			k, err := recordcodec.ParseKey(item.Key())
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			owner, blocks, err := recordcodec.Decode(data)
			if err != nil {
				return fmt.Errorf("record %v: %w", k.ToArray(), err)
			}
			rows = append(rows, recordcodec.Row{Key: k, Owner: owner, Blocks: blocks})
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key.Less(rows[j].Key) })
	for _, r := range rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
