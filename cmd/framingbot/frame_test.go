package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/framingbot/pkg/types"
)

func TestLoadObservationsFileDefaultsWeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "observations.yaml")
	content := `- term: latency
  orientation: problem_solving
- term: meaning
  orientation: exploratory
  weight: 0.4
- term: noise
  orientation: critical
  weight: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	observations, err := loadObservationsFile(path)
	if err != nil {
		t.Fatalf("loadObservationsFile: %v", err)
	}
	if len(observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(observations))
	}
	if observations[0].Weight != types.DefaultWeight {
		t.Errorf("missing weight not defaulted: %+v", observations[0])
	}
	if observations[0].Orientation != types.OrientationProblemSolving {
		t.Errorf("orientation = %q", observations[0].Orientation)
	}
	if observations[1].Weight != 0.4 {
		t.Errorf("explicit weight overridden: %+v", observations[1])
	}
	if observations[2].Weight != 0 {
		t.Errorf("explicit zero weight not preserved: %+v", observations[2])
	}
}

func TestLoadObservationsFileMissing(t *testing.T) {
	_, err := loadObservationsFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
