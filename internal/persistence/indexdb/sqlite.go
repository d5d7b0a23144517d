package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelclaim.ai/internal/protocol"
	"voxelclaim.ai/internal/sim/world/io/recordcodec"
)

// SQLiteStore keeps ownership records durably (synchronous, transactional)
// and a call index (asynchronous, best effort).
type SQLiteStore struct {
	db *sql.DB

	ch   chan protocol.Entry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db: db,
		ch: make(chan protocol.Entry, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			owner TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy, cz)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner);`,
		`CREATE TABLE IF NOT EXISTS calls (
			seq INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			origin TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			weight INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_calls_origin_seq ON calls(origin, seq);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// PutRecords replaces every given record in one transaction.
func (s *SQLiteStore) PutRecords(ctx context.Context, rows []recordcodec.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO records(cx,cy,cz,owner,data,updated_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := range rows {
		r := &rows[i]
		data := recordcodec.Encode(r.Owner, &r.Blocks)
		if _, err := stmt.ExecContext(ctx, r.Key.CX, r.Key.CY, r.Key.CZ, r.Owner, data, now); err != nil {
			return fmt.Errorf("put record %v: %w", r.Key.ToArray(), err)
		}
	}
	return tx.Commit()
}

// LoadRecords streams every record ordered by (x, y, z).
func (s *SQLiteStore) LoadRecords(ctx context.Context, fn func(recordcodec.Row) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT cx,cy,cz,data FROM records ORDER BY cx,cy,cz`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r    recordcodec.Row
			data []byte
		)
		if err := rows.Scan(&r.Key.CX, &r.Key.CY, &r.Key.CZ, &data); err != nil {
			return err
		}
		owner, blocks, err := recordcodec.Decode(data)
		if err != nil {
			return fmt.Errorf("record %v: %w", r.Key.ToArray(), err)
		}
		r.Owner = owner
		r.Blocks = blocks
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountByOwner returns how many chunks each owner holds.
func (s *SQLiteStore) CountByOwner(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, COUNT(*) FROM records GROUP BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			owner string
			n     int
		)
		if err := rows.Scan(&owner, &n); err != nil {
			return nil, err
		}
		out[owner] = n
	}
	return out, rows.Err()
}

// IndexCall queues a call row; it is dropped if the indexer falls behind.
// The JSONL journal remains the source of truth.
func (s *SQLiteStore) IndexCall(e protocol.Entry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteStore) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteStore) loop() {
	ctx := context.Background()

	insertCall, _ := s.db.Prepare(`INSERT OR REPLACE INTO calls(seq,type,origin,x,y,z,ok,code,weight,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertCall != nil {
			_ = insertCall.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for e := range s.ch {
		begin()
		if tx == nil || insertCall == nil {
			continue
		}
		raw, _ := json.Marshal(e)
		ok := 0
		if e.Result.OK {
			ok = 1
		}
		if _, err := tx.Stmt(insertCall).Exec(
			int64(e.Seq),
			e.Call.Type,
			e.Call.Origin,
			e.Call.Location[0], e.Call.Location[1], e.Call.Location[2],
			ok,
			e.Result.Code,
			int64(e.Result.Weight),
			string(raw),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// CallCount reports indexed calls. Rows queued by IndexCall show up once the
// indexer commits them.
func (s *SQLiteStore) CallCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n)
	return n, err
}
