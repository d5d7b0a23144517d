package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxelclaim.ai/internal/persistence/archive"
	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/sim/runtime"
)

type snapshotWriter struct {
	worldDir string
	every    int
	logger   *log.Logger
}

// maybe writes a snapshot when the call sequence reaches a multiple of every.
func (w snapshotWriter) maybe(exec *runtime.Executor) {
	if w.every <= 0 {
		return
	}
	seq := exec.Seq()
	if seq == 0 || seq%uint64(w.every) != 0 {
		return
	}
	if _, err := w.write(exec); err != nil && w.logger != nil {
		w.logger.Printf("snapshot seq=%d: %v", seq, err)
	}
}

func (w snapshotWriter) write(exec *runtime.Executor) (string, error) {
	_, path, err := w.writeSnap(exec)
	return path, err
}

func (w snapshotWriter) writeSnap(exec *runtime.Executor) (snapshot.SnapshotV1, string, error) {
	snap := exec.Snapshot(nil)
	path := filepath.Join(w.worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Seq))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return snap, "", err
	}
	return snap, path, nil
}

// final writes the closing snapshot of a run and archives it under the run id.
func (w snapshotWriter) final(exec *runtime.Executor) (string, error) {
	snap, path, err := w.writeSnap(exec)
	if err != nil {
		return "", err
	}
	if _, err := archive.ArchiveRunSnapshot(w.worldDir, path, snap); err != nil {
		return path, fmt.Errorf("archive: %w", err)
	}
	return path, nil
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestSeq uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || seq > bestSeq {
			bestSeq = seq
			best = filepath.Join(dir, name)
		}
	}
	return best
}
