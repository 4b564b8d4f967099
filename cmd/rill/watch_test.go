package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/recera/rill/cmd/rill/internal/build"
	"github.com/recera/rill/internal/config"
)

type recordingReporter struct {
	started  [][]string
	finished [][]build.Result
	removed  [][]string
}

func (r *recordingReporter) Started(paths []string)          { r.started = append(r.started, paths) }
func (r *recordingReporter) Finished(results []build.Result) { r.finished = append(r.finished, results) }
func (r *recordingReporter) Removed(paths []string)          { r.removed = append(r.removed, paths) }

func TestRebuild(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.rill")
	gone := filepath.Join(dir, "gone.rill")
	if err := os.WriteFile(kept, []byte("<p>kept</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "gone.rill.js"), []byte("// stale"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.SourceDir = dir
	r := &recordingReporter{}

	results, removed := rebuild(build.New(cfg), r, []string{gone, kept})

	if diff := cmp.Diff([]string{gone}, removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{kept}}, r.started); diff != "" {
		t.Errorf("started mismatch (-want +got):\n%s", diff)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("Expected one successful result, got %+v", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "kept.rill.js")); err != nil {
		t.Errorf("Expected module for kept.rill: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gone.rill.js")); !os.IsNotExist(err) {
		t.Error("Expected the stale module to be removed")
	}
}

func TestRebuild_OnlyRemovals(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.SourceDir = dir
	r := &recordingReporter{}

	results, removed := rebuild(build.New(cfg), r, []string{filepath.Join(dir, "x.rill")})
	if results != nil {
		t.Errorf("Expected no results, got %+v", results)
	}
	if len(removed) != 1 || len(r.removed) != 1 {
		t.Errorf("Expected one removal, got %v", removed)
	}
	if len(r.started) != 0 {
		t.Errorf("Expected no build to start, got %v", r.started)
	}
}

func TestProjectFlags_Overrides(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	flags := projectFlags{format: "cjs", outDir: "dist", srcDir: "views"}
	cfg, err := flags.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if cfg.Format != "cjs" || cfg.OutDir != "dist" || cfg.SourceDir != "views" {
		t.Errorf("Expected overrides to apply, got %+v", cfg)
	}

	flags = projectFlags{format: "amd"}
	if _, err := flags.loadConfig(); err == nil {
		t.Error("Expected an invalid format to fail")
	}
}
