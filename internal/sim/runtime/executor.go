// Package runtime is the execution environment around the ownership registry:
// it serializes calls, stages each call's effects, persists the rewritten
// records and only then publishes them, so a call commits fully or not at all.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/protocol"
	"voxelclaim.ai/internal/sim/tuning"
	"voxelclaim.ai/internal/sim/world/feature/governance/claims"
	"voxelclaim.ai/internal/sim/world/io/recordcodec"
	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

// RecordStore is a durable home for ownership records.
type RecordStore interface {
	PutRecords(ctx context.Context, rows []recordcodec.Row) error
	LoadRecords(ctx context.Context, fn func(recordcodec.Row) error) error
	Close() error
}

type Journal interface {
	WriteEntry(e protocol.Entry) error
}

type CallIndex interface {
	IndexCall(e protocol.Entry)
}

type Config struct {
	WorldID string
	RunID   string
	Weights tuning.Weights

	// All optional.
	Store   RecordStore
	Journal Journal
	Index   CallIndex
	Metrics *Metrics
	Logger  *log.Logger
}

type Executor struct {
	cfg Config

	mu      sync.Mutex
	base    *claims.MemMap[string]
	overlay *claims.Overlay[string]
	staged  *claims.Registry[string]
	seq     uint64
}

func New(cfg Config) *Executor {
	base := claims.NewMemMap[string]()
	ov := claims.NewOverlay[string](base)
	return &Executor{
		cfg:     cfg,
		base:    base,
		overlay: ov,
		staged:  claims.NewRegistryOn[string](ov),
	}
}

// Load replaces in-memory records with everything in the durable store.
func (e *Executor) Load(ctx context.Context) (int, error) {
	if e.cfg.Store == nil {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	base := claims.NewMemMap[string]()
	err := e.cfg.Store.LoadRecords(ctx, func(r recordcodec.Row) error {
		base.Insert(r.Key, claims.Record[string]{Owner: r.Owner, Chunk: store.Chunk{Blocks: r.Blocks}})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	e.resetLocked(base)
	return base.Len(), nil
}

// Restore replaces in-memory records and the call sequence with a snapshot.
func (e *Executor) Restore(snap snapshot.SnapshotV1) error {
	base := claims.NewMemMap[string]()
	for _, r := range snap.Records {
		if len(r.Blocks) != coord.ChunkVolume {
			return fmt.Errorf("snapshot record %v: blocks length %d want %d", r.Pos, len(r.Blocks), coord.ChunkVolume)
		}
		k := coord.KeyFromArray(r.Pos)
		if base.Contains(k) {
			return fmt.Errorf("snapshot record %v appears twice", r.Pos)
		}
		rec := claims.Record[string]{Owner: r.Owner}
		copy(rec.Chunk.Blocks[:], r.Blocks)
		base.Insert(k, rec)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(base)
	e.seq = snap.Header.Seq
	return nil
}

func (e *Executor) resetLocked(base *claims.MemMap[string]) {
	e.base = base
	e.overlay = claims.NewOverlay[string](base)
	e.staged = claims.NewRegistryOn[string](e.overlay)
	e.cfg.Metrics.setRecords(base.Len())
}

func (e *Executor) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Record returns a copy of a committed record.
func (e *Executor) Record(k coord.ChunkKey) (claims.Record[string], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.base.Get(k)
}

func (e *Executor) Keys() []coord.ChunkKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.base.Keys()
}

// Weight prices a call before it runs; failed calls are charged the same.
func Weight(w tuning.Weights, callType string) uint64 {
	// Each call reads and writes one record.
	weight := w.Base + w.DBRead + w.DBWrite
	if callType == protocol.TypeClaimChunk {
		weight += w.ChunkStorage
	}
	return weight
}

// CodeOf maps registry errors onto protocol codes.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, claims.ErrChunkDoesNotExist):
		return protocol.ErrChunkDoesNotExist
	case errors.Is(err, claims.ErrNotYours):
		return protocol.ErrNotYours
	case errors.Is(err, claims.ErrAlreadyOwned):
		return protocol.ErrAlreadyOwned
	default:
		return protocol.ErrInternal
	}
}

// ApplyJSON decodes and validates one raw call before applying it. Malformed
// calls are answered with E_PROTO_BAD_REQUEST and never reach the registry.
func (e *Executor) ApplyJSON(ctx context.Context, raw []byte) (protocol.Result, error) {
	call, err := protocol.DecodeCall(raw)
	if err != nil {
		return protocol.Result{Code: protocol.ErrProtoBadRequest, Message: err.Error()}, nil
	}
	return e.Apply(ctx, call)
}

// Apply runs one call. A non-nil error means the call could not be persisted;
// nothing was committed and the sequence did not advance.
func (e *Executor) Apply(ctx context.Context, call protocol.Call) (protocol.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := coord.PosFromArray(call.Location)
	k := coord.KeyOf(pos)

	var err error
	switch call.Type {
	case protocol.TypeClaimChunk:
		err = e.staged.ClaimAt(pos, call.Origin)
	case protocol.TypeWriteBlock:
		err = e.staged.WriteBlock(pos, call.Block, call.Origin)
	case protocol.TypeGiveChunk:
		err = e.staged.GiveAt(pos, call.Origin, call.Recipient)
	default:
		return protocol.Result{Code: protocol.ErrProtoBadRequest, Message: fmt.Sprintf("unknown call type %q", call.Type)}, nil
	}

	res := protocol.Result{OK: err == nil, Weight: Weight(e.cfg.Weights, call.Type)}
	if err != nil {
		e.overlay.Discard()
		res.Code = CodeOf(err)
		res.Message = err.Error()
	} else if perr := e.commitLocked(ctx); perr != nil {
		e.overlay.Discard()
		if e.cfg.Logger != nil {
			e.cfg.Logger.Printf("commit %s at %v: %v", call.Type, k.ToArray(), perr)
		}
		return protocol.Result{Code: protocol.ErrInternal, Message: perr.Error()}, perr
	}
	if rec, ok := e.base.Get(k); ok {
		res.Digest = recordcodec.Digest(rec.Owner, &rec.Chunk.Blocks)
	}

	e.seq++
	entry := protocol.Entry{Seq: e.seq, RunID: e.cfg.RunID, Call: call, Result: res}
	if e.cfg.Journal != nil {
		if jerr := e.cfg.Journal.WriteEntry(entry); jerr != nil && e.cfg.Logger != nil {
			e.cfg.Logger.Printf("journal seq=%d: %v", e.seq, jerr)
		}
	}
	if e.cfg.Index != nil {
		e.cfg.Index.IndexCall(entry)
	}
	e.cfg.Metrics.observeCall(call.Type, res.Code, res.Weight)
	return res, nil
}

func (e *Executor) commitLocked(ctx context.Context) error {
	pending := e.overlay.Pending()
	if e.cfg.Store != nil && len(pending) > 0 {
		rows := make([]recordcodec.Row, 0, len(pending))
		for _, p := range pending {
			rows = append(rows, recordcodec.Row{Key: p.Key, Owner: p.Record.Owner, Blocks: p.Record.Chunk.Blocks})
		}
		start := time.Now()
		if err := e.cfg.Store.PutRecords(ctx, rows); err != nil {
			return fmt.Errorf("persist records: %w", err)
		}
		e.cfg.Metrics.observeCommit(time.Since(start).Seconds())
	}
	e.overlay.Commit()
	e.cfg.Metrics.setRecords(e.base.Len())
	return nil
}

// Snapshot captures committed records and, when sparse is non-nil, the
// sparse chunk store.
func (e *Executor) Snapshot(sparse *store.ChunkStore) snapshot.SnapshotV1 {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: e.cfg.WorldID,
			RunID:   e.cfg.RunID,
			Seq:     e.seq,
		},
	}
	keys := e.base.Keys()
	snap.Records = make([]snapshot.RecordV1, 0, len(keys))
	for _, k := range keys {
		rec, _ := e.base.Get(k)
		blocks := make([]uint16, coord.ChunkVolume)
		copy(blocks, rec.Chunk.Blocks[:])
		snap.Records = append(snap.Records, snapshot.RecordV1{Pos: k.ToArray(), Owner: rec.Owner, Blocks: blocks})
	}
	if sparse != nil {
		snap.Chunks = store.ExportChunks(sparse)
	}
	return snap
}
