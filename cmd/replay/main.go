package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	persistlog "voxelclaim.ai/internal/persistence/log"
	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/protocol"
	"voxelclaim.ai/internal/sim/runtime"
	"voxelclaim.ai/internal/sim/tuning"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst (optional; empty starts from an empty world)")
		callsDir   = flag.String("calls", "", "journal dir containing calls-*.jsonl.zst")
		toSeq      = flag.Uint64("to_seq", 0, "stop after seq (inclusive, optional)")
		tuningPath = flag.String("tuning", "", "tuning.yaml to also verify weights (optional)")
	)
	flag.Parse()

	if *callsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -calls")
		os.Exit(2)
	}

	cfg := runtime.Config{}
	checkWeights := false
	if *tuningPath != "" {
		tune, err := tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		cfg.Weights = tune.Weights
		checkWeights = true
	}
	exec := runtime.New(cfg)

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		if err := exec.Restore(snap); err != nil {
			fmt.Fprintln(os.Stderr, "restore snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d world=%s run=%s seq=%d records=%d chunks=%d\n",
			snap.Header.Version, snap.Header.WorldID, snap.Header.RunID, snap.Header.Seq, len(snap.Records), len(snap.Chunks))
	}

	files, err := persistlog.ListJournalFiles(*callsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *callsDir)
		os.Exit(1)
	}

	r := replayer{exec: exec, toSeq: *toSeq, checkWeights: checkWeights}
	var total uint64
	for _, path := range files {
		if fi, err := os.Stat(path); err == nil {
			total += uint64(fi.Size())
		}
		if err := persistlog.ReadEntries(path, r.entry); err != nil {
			if errors.Is(err, errStop) {
				break
			}
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	if err := r.verdict(); err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v (files=%d journal=%s)\n", err, len(files), humanize.Bytes(total))
		os.Exit(1)
	}
	if r.checked == 0 {
		fmt.Fprintf(os.Stderr, "warning: journal ends at or before seq %d; nothing new to verify\n", exec.Seq())
	}
	fmt.Printf("replay ok: checked=%s calls skipped=%s files=%d journal=%s final seq=%d\n",
		humanize.Comma(int64(r.checked)), humanize.Comma(int64(r.skipped)), len(files), humanize.Bytes(total), exec.Seq())
}

var errStop = errors.New("stop")

type replayer struct {
	exec         *runtime.Executor
	toSeq        uint64
	checkWeights bool

	checked uint64
	skipped uint64
}

// verdict fails a replay that read no entries at all: an empty or truncated
// journal proves nothing.
func (r *replayer) verdict() error {
	if r.checked == 0 && r.skipped == 0 {
		return errors.New("journal holds no entries")
	}
	return nil
}

// entry re-applies one journaled call and compares outcomes. Entries at or
// below the current sequence are already reflected in the restored state.
func (r *replayer) entry(e protocol.Entry) error {
	if r.toSeq != 0 && e.Seq > r.toSeq {
		return errStop
	}
	if !protocol.IsKnownCode(e.Result.Code) {
		return fmt.Errorf("seq %d: unknown result code %q", e.Seq, e.Result.Code)
	}
	cur := r.exec.Seq()
	if e.Seq <= cur {
		r.skipped++
		return nil
	}
	if e.Seq != cur+1 {
		return fmt.Errorf("seq gap: have %d, next entry %d", cur, e.Seq)
	}
	got, err := r.exec.Apply(context.Background(), e.Call)
	if err != nil {
		return fmt.Errorf("seq %d: %w", e.Seq, err)
	}
	if got.OK != e.Result.OK || got.Code != e.Result.Code {
		return fmt.Errorf("seq %d %s: result %q want %q", e.Seq, e.Call.Type, got.Code, e.Result.Code)
	}
	if got.Digest != e.Result.Digest {
		return fmt.Errorf("seq %d %s: digest mismatch", e.Seq, e.Call.Type)
	}
	if r.checkWeights && got.Weight != e.Result.Weight {
		return fmt.Errorf("seq %d %s: weight %d want %d", e.Seq, e.Call.Type, got.Weight, e.Result.Weight)
	}
	r.checked++
	return nil
}
