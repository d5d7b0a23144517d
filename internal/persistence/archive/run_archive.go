package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voxelclaim.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID     string `json:"run_id"`
	WorldID   string `json:"world_id"`
	Seq       uint64 `json:"seq"`
	Records   int    `json:"records"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveRunSnapshot copies a run's final snapshot into
// `worldDir/archives/run_<run id>/` next to a meta.json.
func ArchiveRunSnapshot(worldDir, snapshotPath string, snap snapshot.SnapshotV1) (string, error) {
	if snap.Header.RunID == "" {
		return "", fmt.Errorf("snapshot has no run id")
	}
	archiveDir := filepath.Join(worldDir, "archives", "run_"+snap.Header.RunID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := RunArchiveMeta{
		RunID:     snap.Header.RunID,
		WorldID:   snap.Header.WorldID,
		Seq:       snap.Header.Seq,
		Records:   len(snap.Records),
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
