package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxelclaim.ai/internal/persistence/indexdb"
	persistlog "voxelclaim.ai/internal/persistence/log"
	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/protocol"
	"voxelclaim.ai/internal/sim/runtime"
	"voxelclaim.ai/internal/sim/tuning"
)

func TestRunCallsWritesOneResultPerCall(t *testing.T) {
	in := strings.NewReader(`# setup
{"type":"CLAIM_CHUNK","origin":"alice","location":[0,0,0]}

{"type":"WRITE_BLOCK","origin":"bob","location":[1,2,3],"block":4}
{"type":"NOPE"}
{"type":"WRITE_BLOCK","origin":"alice","location":[1,2,3],"block":4}
`)
	var out bytes.Buffer
	exec := runtime.New(runtime.Config{Weights: tuning.Defaults().Weights})
	calls := 0
	n, err := runCalls(context.Background(), exec, in, &out, func(*runtime.Executor) { calls++ })
	if err != nil {
		t.Fatalf("runCalls: %v", err)
	}
	// The bad request is answered but does not advance the sequence.
	if n != 4 || calls != 3 {
		t.Fatalf("n=%d after=%d", n, calls)
	}

	var codes []string
	dec := json.NewDecoder(&out)
	for dec.More() {
		var res protocol.Result
		if err := dec.Decode(&res); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		codes = append(codes, res.Code)
	}
	want := []string{"", protocol.ErrNotYours, protocol.ErrProtoBadRequest, ""}
	if strings.Join(codes, ",") != strings.Join(want, ",") {
		t.Fatalf("codes=%v want %v", codes, want)
	}
	if exec.Seq() != 3 {
		t.Fatalf("seq=%d want 3", exec.Seq())
	}
}

func TestSnapshotWriterEveryAndLatest(t *testing.T) {
	dir := t.TempDir()
	w := snapshotWriter{worldDir: dir, every: 2}
	exec := runtime.New(runtime.Config{WorldID: "w"})

	for _, loc := range [][3]int32{{0, 0, 0}, {16, 0, 0}, {32, 0, 0}, {48, 0, 0}} {
		if _, err := exec.Apply(context.Background(), protocol.Call{Type: protocol.TypeClaimChunk, Origin: "a", Location: loc}); err != nil {
			t.Fatalf("apply: %v", err)
		}
		w.maybe(exec)
	}
	ents, err := os.ReadDir(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("snapshots=%d want 2", len(ents))
	}

	latest := latestSnapshot(dir)
	if filepath.Base(latest) != "4.snap.zst" {
		t.Fatalf("latest=%q", latest)
	}
	h, err := snapshot.ReadHeader(latest)
	if err != nil || h.Seq != 4 || h.WorldID != "w" {
		t.Fatalf("header=%+v err=%v", h, err)
	}
}

func TestOpenRecordStoreBackends(t *testing.T) {
	dir := t.TempDir()
	st, err := openRecordStore(tuning.BackendMemory, dir)
	if err != nil || st.records != nil {
		t.Fatalf("memory: %+v %v", st, err)
	}
	for _, b := range []string{tuning.BackendSQLite, tuning.BackendBadger} {
		st, err := openRecordStore(b, dir)
		if err != nil {
			t.Fatalf("%s: %v", b, err)
		}
		if (b == tuning.BackendSQLite) != (st.index != nil) {
			t.Fatalf("%s: index=%v", b, st.index != nil)
		}
		_ = st.records.Close()
	}
	if _, err := openRecordStore("etcd", dir); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestFinalSnapshotIsArchivedPerRun(t *testing.T) {
	dir := t.TempDir()
	exec := runtime.New(runtime.Config{WorldID: "w", RunID: "run-9"})
	if _, err := exec.Apply(context.Background(), protocol.Call{Type: protocol.TypeClaimChunk, Origin: "a"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	path, err := snapshotWriter{worldDir: dir}.final(exec)
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if filepath.Base(path) != "1.snap.zst" {
		t.Fatalf("path=%s", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "archives", "run_run-9", "1.snap.zst")); err != nil {
		t.Fatalf("archived copy: %v", err)
	}
}

func TestRunCallsStopsWhileInputBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := runCalls(ctx, runtime.New(runtime.Config{}), pr, io.Discard, nil)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runCalls still blocked on input after cancel")
	}
}

func TestSnapshotHookSkipsBadRequests(t *testing.T) {
	dir := t.TempDir()
	w := snapshotWriter{worldDir: dir, every: 1}
	in := strings.NewReader(`{"type":"CLAIM_CHUNK","origin":"a","location":[0,0,0]}
{"type":"NOPE"}
`)
	exec := runtime.New(runtime.Config{})
	writes := 0
	if _, err := runCalls(context.Background(), exec, in, io.Discard, func(e *runtime.Executor) {
		writes++
		w.maybe(e)
	}); err != nil {
		t.Fatalf("runCalls: %v", err)
	}
	if writes != 1 {
		t.Fatalf("snapshot hook ran %d times, want 1", writes)
	}
}

func TestRunFlushesJournalAndIndexOnCancel(t *testing.T) {
	tune := tuning.Defaults()
	tune.DataDir = t.TempDir()
	tune.Backend = tuning.BackendSQLite
	tune.Journal = true

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, nodeOptions{Tune: tune}, inR, outW, log.New(io.Discard, "", 0))
	}()

	go func() {
		_, _ = io.WriteString(inW, `{"type":"CLAIM_CHUNK","origin":"a","location":[0,0,0]}
{"type":"WRITE_BLOCK","origin":"a","location":[1,1,1],"block":2}
`)
	}()
	dec := json.NewDecoder(outR)
	for i := 0; i < 2; i++ {
		var res protocol.Result
		if err := dec.Decode(&res); err != nil {
			t.Fatalf("result %d: %v", i, err)
		}
		if !res.OK {
			t.Fatalf("result %d: %+v", i, res)
		}
	}

	// Input stays open: only the cancel can end the run.
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err=%v want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	worldDir := filepath.Join(tune.DataDir, "worlds", tune.WorldID)
	files, err := persistlog.ListJournalFiles(persistlog.JournalDir(worldDir))
	if err != nil || len(files) == 0 {
		t.Fatalf("journal files=%v err=%v", files, err)
	}
	var seqs []uint64
	for _, f := range files {
		if err := persistlog.ReadEntries(f, func(e protocol.Entry) error {
			seqs = append(seqs, e.Seq)
			return nil
		}); err != nil {
			t.Fatalf("read journal: %v", err)
		}
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("journaled seqs=%v want [1 2]", seqs)
	}

	db, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer db.Close()
	if n, err := db.CallCount(context.Background()); err != nil || n != 2 {
		t.Fatalf("indexed calls=%d err=%v", n, err)
	}

	if latest := latestSnapshot(worldDir); filepath.Base(latest) != "2.snap.zst" {
		t.Fatalf("final snapshot=%q", latest)
	}
}
