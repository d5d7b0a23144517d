package main

import (
	"fmt"
	"path/filepath"

	"voxelclaim.ai/internal/persistence/indexdb"
	"voxelclaim.ai/internal/persistence/kvstore"
	"voxelclaim.ai/internal/sim/runtime"
	"voxelclaim.ai/internal/sim/tuning"
)

type recordStores struct {
	records runtime.RecordStore
	// Set only for the sqlite backend, which also indexes calls.
	index *indexdb.SQLiteStore
}

func openRecordStore(backend, worldDir string) (recordStores, error) {
	switch backend {
	case tuning.BackendMemory:
		return recordStores{}, nil
	case tuning.BackendSQLite:
		s, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return recordStores{}, err
		}
		return recordStores{records: s, index: s}, nil
	case tuning.BackendBadger:
		s, err := kvstore.OpenBadger(filepath.Join(worldDir, "kv"))
		if err != nil {
			return recordStores{}, err
		}
		return recordStores{records: s}, nil
	default:
		return recordStores{}, fmt.Errorf("unknown backend %q", backend)
	}
}
