package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"voxelclaim.ai/internal/persistence/snapshot"
	"voxelclaim.ai/internal/sim/tuning"
	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/gen"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "populate":
			populateCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "kv":
			kvCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID, "snapshots")
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

type summary struct {
	Owners     map[string]int
	Cells      int
	ChunkCells int
}

func summarize(snap snapshot.SnapshotV1) (summary, error) {
	s := summary{Owners: map[string]int{}}
	for _, r := range snap.Records {
		s.Owners[r.Owner]++
		for _, b := range r.Blocks {
			if b != store.Air {
				s.Cells++
			}
		}
	}
	chunks, err := store.ImportChunks(snap.Chunks)
	if err != nil {
		return s, err
	}
	chunks.Each(func(_ coord.ChunkKey, ch *store.Chunk) {
		s.ChunkCells += ch.NonEmpty()
	})
	return s, nil
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "snapshot path")
	_ = fs.Parse(args)

	if strings.TrimSpace(*snapPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}
	fi, err := os.Stat(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "stat:", err)
		os.Exit(1)
	}
	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	s, err := summarize(snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d world=%s run=%s seq=%d size=%s\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.RunID, snap.Header.Seq, humanize.Bytes(uint64(fi.Size())))
	fmt.Printf("records=%s filled=%s chunks=%s filled=%s\n",
		humanize.Comma(int64(len(snap.Records))), humanize.Comma(int64(s.Cells)),
		humanize.Comma(int64(len(snap.Chunks))), humanize.Comma(int64(s.ChunkCells)))

	owners := make([]string, 0, len(s.Owners))
	for o := range s.Owners {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	for _, o := range owners {
		fmt.Printf("  %s\t%d\n", o, s.Owners[o])
	}
}

func populateCmd(args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	tuningPath := fs.String("tuning", "", "tuning.yaml supplying populate.count/radius (optional)")
	count := fs.Int("count", -1, "voxels to write (overrides tuning)")
	radius := fs.Float64("radius", -1, "spiral radius (overrides tuning)")
	outPath := fs.String("out", "", "output snapshot path")
	dump := fs.Bool("dump", false, "print every non-empty voxel as 'x y z code'")
	_ = fs.Parse(args)

	if strings.TrimSpace(*outPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -out")
		os.Exit(2)
	}
	tune := tuning.Defaults()
	if *tuningPath != "" {
		t, err := tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = t
	}
	if *count >= 0 {
		tune.Populate.Count = *count
	}
	if *radius >= 0 {
		tune.Populate.Radius = *radius
	}

	s := store.NewChunkStore()
	n := gen.Spiral(s, tune.Populate.Count, tune.Populate.Radius)

	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, WorldID: tune.WorldID},
		Chunks: store.ExportChunks(s),
	}
	if err := snapshot.WriteSnapshot(*outPath, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("populated count=%d radius=%g chunks=%d -> %s\n", tune.Populate.Count, tune.Populate.Radius, n, *outPath)

	if *dump {
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		s.Voxels(func(p coord.Pos, b uint16) {
			if b != store.Air {
				fmt.Fprintf(w, "%d %d %d %d\n", p.X, p.Y, p.Z, b)
			}
		})
	}
}
