package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobsift/jobsift/internal/model"
)

// Checkpoint is the serialized output of one completed stage. Saved as
// <stage>_<timestamp>.json so a run can be resumed from its last good
// stage after a crash.
type Checkpoint struct {
	Stage     model.Stage        `json:"stage"`
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Records   []model.JobRecord  `json:"records"`
	Failed    []model.FailedJob  `json:"failed,omitempty"`
	Summary   *model.RunSummary  `json:"summary,omitempty"`
}

// SaveCheckpoint writes a checkpoint file into dir.
func SaveCheckpoint(dir string, cp *Checkpoint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "checkpoint: create dir %s", dir)
	}

	cp.CreatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", cp.Stage, cp.CreatedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "checkpoint: write %s", path)
	}
	return nil
}

// LoadCheckpoint reads one checkpoint file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read %s", path)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: decode %s", path)
	}
	if cp.Stage == "" {
		return nil, eris.Errorf("checkpoint: %s has no stage", path)
	}
	return &cp, nil
}

// LatestCheckpoint finds the newest checkpoint in dir for the given
// stage, or for any stage when stage is empty.
func LatestCheckpoint(dir string, stage model.Stage) (*Checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if stage != "" && !strings.HasPrefix(e.Name(), string(stage)+"_") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, eris.Errorf("checkpoint: none found in %s", dir)
	}

	// Order by the trailing timestamp so mixed-stage listings still
	// yield the newest file.
	sort.Slice(names, func(i, j int) bool {
		return checkpointStamp(names[i]) < checkpointStamp(names[j])
	})
	return LoadCheckpoint(filepath.Join(dir, names[len(names)-1]))
}

func checkpointStamp(name string) string {
	name = strings.TrimSuffix(name, ".json")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}
