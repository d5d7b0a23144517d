package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voxelclaim.ai/internal/persistence/kvstore"
	"voxelclaim.ai/internal/sim/world/io/recordcodec"
	"voxelclaim.ai/internal/sim/world/terrain/coord"
	"voxelclaim.ai/internal/sim/world/terrain/store"
)

// kvCmd prints the badger-stored record of the chunk holding -at.
func kvCmd(args []string) {
	fs := flag.NewFlagSet("kv", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	at := fs.String("at", "", "world location x,y,z")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	pos, err := parsePos(*at)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -at:", err)
		os.Exit(2)
	}
	dir := filepath.Join(*dataDir, "worlds", *worldID, "kv")
	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := kvstore.OpenBadger(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	k := coord.KeyOf(pos)
	row, ok, err := db.GetRecord(context.Background(), k)
	if err != nil {
		fmt.Fprintln(os.Stderr, "get:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Printf("chunk %v unclaimed\n", k.ToArray())
		return
	}
	ch := store.Chunk{Blocks: row.Blocks}
	_, local := coord.ToChunkLocal(pos)
	printJSON(map[string]any{
		"chunk":  k.ToArray(),
		"owner":  row.Owner,
		"filled": ch.NonEmpty(),
		"block":  ch.Get(local),
		"digest": recordcodec.Digest(row.Owner, &row.Blocks),
	})
}

func parsePos(s string) (coord.Pos, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return coord.Pos{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]int32
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return coord.Pos{}, err
		}
		v[i] = int32(n)
	}
	return coord.PosFromArray(v), nil
}
