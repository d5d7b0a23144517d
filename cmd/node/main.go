package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	persistlog "voxelclaim.ai/internal/persistence/log"
	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/sim/runtime"
	"voxelclaim.ai/internal/sim/tuning"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file: defaults)")
		worldID    = flag.String("world", "", "world id (overrides tuning)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides tuning)")
		backend    = flag.String("backend", "", "record store: memory|sqlite|badger (overrides tuning)")
		callsPath  = flag.String("calls", "", "JSONL file of calls (default: stdin)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[node] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	if s := strings.TrimSpace(*worldID); s != "" {
		tune.WorldID = s
	}
	if s := strings.TrimSpace(*dataDir); s != "" {
		tune.DataDir = s
	}
	if s := strings.TrimSpace(*backend); s != "" {
		tune.Backend = s
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, nodeOptions{
		Tune:         tune,
		CallsPath:    strings.TrimSpace(*callsPath),
		SnapshotPath: strings.TrimSpace(*snapPath),
		LoadLatest:   *loadLatest,
	}, os.Stdin, os.Stdout, logger)
	stop()
	if err != nil {
		logger.Printf("run: %v", err)
		os.Exit(1)
	}
}

type nodeOptions struct {
	Tune         tuning.Tuning
	CallsPath    string
	SnapshotPath string
	LoadLatest   bool
}

// run owns every resource it opens and closes them before returning, so the
// journal and the record store are flushed however the run ends.
func run(ctx context.Context, opts nodeOptions, stdin io.Reader, stdout io.Writer, logger *log.Logger) (err error) {
	tune := opts.Tune
	worldDir := filepath.Join(tune.DataDir, "worlds", tune.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	st, err := openRecordStore(tune.Backend, worldDir)
	if err != nil {
		return fmt.Errorf("open %s store: %w", tune.Backend, err)
	}
	if st.records != nil {
		defer func() {
			if cerr := st.records.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s store: %w", tune.Backend, cerr)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	runID := uuid.NewString()
	cfg := runtime.Config{
		WorldID: tune.WorldID,
		RunID:   runID,
		Weights: tune.Weights,
		Metrics: runtime.NewMetrics(reg),
		Logger:  logger,
	}
	if st.records != nil {
		cfg.Store = st.records
	}
	if st.index != nil {
		cfg.Index = st.index
	}
	if tune.Journal {
		journal := persistlog.NewCallLogger(worldDir)
		defer func() {
			if cerr := journal.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close journal: %w", cerr)
			}
		}()
		cfg.Journal = journal
	}
	exec := runtime.New(cfg)

	snapshotToLoad := opts.SnapshotPath
	if snapshotToLoad == "" && opts.LoadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}
	if err := resume(ctx, exec, st.records != nil, snapshotToLoad, logger); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	logger.Printf("world=%s run=%s backend=%s seq=%d", tune.WorldID, runID, tune.Backend, exec.Seq())

	in := stdin
	if opts.CallsPath != "" {
		f, err := os.Open(opts.CallsPath)
		if err != nil {
			return fmt.Errorf("open calls: %w", err)
		}
		defer f.Close()
		in = f
	}

	snaps := snapshotWriter{worldDir: worldDir, every: tune.SnapshotEveryCalls, logger: logger}
	n, runErr := runCalls(ctx, exec, in, stdout, snaps.maybe)

	path, err := snaps.final(exec)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	logger.Printf("applied=%d seq=%d snapshot=%s", n, exec.Seq(), path)
	logMetrics(reg, logger)
	return runErr
}

// resume restores state: durable stores are authoritative for records, the
// snapshot header still supplies the call sequence.
func resume(ctx context.Context, exec *runtime.Executor, durable bool, snapPath string, logger *log.Logger) error {
	var snap snapshot.SnapshotV1
	if snapPath != "" {
		s, err := snapshot.ReadSnapshot(snapPath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		snap = s
		if err := exec.Restore(snap); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		logger.Printf("loaded snapshot %s seq=%d records=%d", snapPath, snap.Header.Seq, len(snap.Records))
	}
	if !durable {
		return nil
	}
	n, err := exec.Load(ctx)
	if err != nil {
		return err
	}
	logger.Printf("loaded %d records from store", n)
	return nil
}

func logMetrics(g prometheus.Gatherer, logger *log.Logger) {
	mfs, err := g.Gather()
	if err != nil {
		logger.Printf("metrics: %v", err)
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				logger.Printf("%s{%s} %.0f", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				logger.Printf("%s %.0f", mf.GetName(), m.GetGauge().GetValue())
			}
		}
	}
}
