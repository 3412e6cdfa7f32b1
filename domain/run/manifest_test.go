package run

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestFingerprint_Deterministic(t *testing.T) {
	config := []byte(`name = "interaction"`)
	data := []byte(`{"name":"interaction"}`)

	fp1 := NewFingerprint(config, data, 1234, "0.2.0")
	fp2 := NewFingerprint(config, data, 1234, "0.2.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.Seed != 1234 {
		t.Errorf("Seed mismatch: %d", fp1.Seed)
	}
	if err := fp1.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestFingerprint_Unique(t *testing.T) {
	base := NewFingerprint([]byte("config"), []byte("data"), 1, "v1")

	testCases := []struct {
		name string
		fp   Fingerprint
	}{
		{"different config", NewFingerprint([]byte("config2"), []byte("data"), 1, "v1")},
		{"different data", NewFingerprint([]byte("config"), []byte("data2"), 1, "v1")},
		{"different seed", NewFingerprint([]byte("config"), []byte("data"), 2, "v1")},
		{"different version", NewFingerprint([]byte("config"), []byte("data"), 1, "v2")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}

	tampered := base
	tampered.Seed = 99
	if tampered.Verify() == nil {
		t.Error("Verify should fail after changing an input")
	}
}

func TestManifest_Lifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManifest("interaction", start)
	if err := m.Validate(); err != nil {
		t.Fatalf("running manifest should be valid: %v", err)
	}
	if m.Duration() != 0 {
		t.Errorf("running manifest should have zero duration")
	}

	m.Succeed("", start.Add(time.Minute))
	if m.Validate() == nil {
		t.Error("succeeded manifest without result path should be invalid")
	}

	m.Succeed("inferences/interaction/idata.json", start.Add(time.Minute))
	if err := m.Validate(); err != nil {
		t.Errorf("succeeded manifest should be valid: %v", err)
	}
	if m.Duration() != time.Minute {
		t.Errorf("Duration = %s, want 1m", m.Duration())
	}

	failed := NewManifest("broken", start)
	failed.Fail(fmt.Errorf("sampler exploded"), start.Add(time.Second))
	if err := failed.Validate(); err != nil {
		t.Errorf("failed manifest should be valid: %v", err)
	}
	if failed.Error != "sampler exploded" {
		t.Errorf("Error = %q", failed.Error)
	}
}

func TestManifest_WriteRead(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManifest("interaction", start)
	m.Modes = []string{"prior", "posterior", "kfold"}
	m.Fingerprint = NewFingerprint([]byte("c"), []byte("d"), 0, "dev")
	m.Succeed(filepath.Join(dir, "idata.json"), start.Add(2*time.Second))

	path, err := m.Write(dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != filepath.Join(dir, ManifestFile) {
		t.Errorf("path = %s", path)
	}

	loaded, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if loaded.RunID != m.RunID || loaded.Status != StatusSucceeded || len(loaded.Modes) != 3 {
		t.Errorf("loaded manifest differs: %+v", loaded)
	}
	if loaded.Fingerprint.Fingerprint != m.Fingerprint.Fingerprint {
		t.Errorf("fingerprint lost in round trip")
	}
	if !loaded.FinishedAt.Equal(*m.FinishedAt) {
		t.Errorf("finished_at lost in round trip")
	}

	if _, err := ReadManifest(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for a missing manifest")
	}
}
