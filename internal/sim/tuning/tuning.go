package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	WorldID string `yaml:"world_id"`
	DataDir string `yaml:"data_dir"`
	Backend string `yaml:"backend"`
	Journal bool   `yaml:"journal"`
	// Write a snapshot every N applied calls (0 disables periodic snapshots).
	SnapshotEveryCalls int `yaml:"snapshot_every_calls"`

	Weights  Weights  `yaml:"weights"`
	Populate Populate `yaml:"populate"`
}

// Weights price a call: Base + reads*DBRead + writes*DBWrite, plus
// ChunkStorage for calls that create a record.
type Weights struct {
	Base         uint64 `yaml:"base"`
	DBRead       uint64 `yaml:"db_read"`
	DBWrite      uint64 `yaml:"db_write"`
	ChunkStorage uint64 `yaml:"chunk_storage"`
}

type Populate struct {
	Count  int     `yaml:"count"`
	Radius float64 `yaml:"radius"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		WorldID:            "world_1",
		DataDir:            "./data",
		Backend:            BackendMemory,
		Journal:            true,
		SnapshotEveryCalls: 0,
		Weights: Weights{
			Base:         10_000,
			DBRead:       25_000_000,
			DBWrite:      100_000_000,
			ChunkStorage: 1_000_000,
		},
		Populate: Populate{
			Count:  1000,
			Radius: 10,
		},
	}
}

// Load reads a YAML file on top of Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Validate() error {
	t.Backend = strings.ToLower(strings.TrimSpace(t.Backend))
	switch t.Backend {
	case "":
		t.Backend = BackendMemory
	case BackendMemory, BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown backend %q", t.Backend)
	}
	if strings.TrimSpace(t.WorldID) == "" {
		return fmt.Errorf("world_id must not be empty")
	}
	if t.SnapshotEveryCalls < 0 {
		return fmt.Errorf("snapshot_every_calls must be >= 0")
	}
	if t.Populate.Count < 0 || t.Populate.Radius < 0 {
		return fmt.Errorf("populate count/radius must be >= 0")
	}
	return nil
}
