package server

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeECGFixture(t *testing.T, dir string, person int, rows int) {
	t.Helper()
	var body []byte
	for i := 0; i < rows; i++ {
		seconds := float64(i) * 0.004
		body = append(body, []byte(fmt.Sprintf("%.3f,%g,%g\n", seconds, float64(i)+0.25, -float64(i)-0.5))...)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.csv", person))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestCSVStoreSampleLookup(t *testing.T) {
	dir := t.TempDir()
	writeECGFixture(t, dir, 3, 10)
	store := NewCSVStore(dir)

	v, err := store.Sample(3, 0.004, 1)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if v != 1.25 {
		t.Fatalf("lead 1 at 0.004: want 1.25 got %g", v)
	}
	v, err = store.Sample(3, 0.004, 2)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if v != -1.5 {
		t.Fatalf("lead 2 at 0.004: want -1.5 got %g", v)
	}

	// Second hit comes from the cache.
	if _, err := store.Sample(3, 0.036, 1); err != nil {
		t.Fatalf("cached sample: %v", err)
	}
}

func TestCSVStoreUnknownLookups(t *testing.T) {
	dir := t.TempDir()
	writeECGFixture(t, dir, 1, 4)
	store := NewCSVStore(dir)

	if _, err := store.Sample(1, 0.002, 1); !errors.Is(err, ErrNoSample) {
		t.Fatalf("off-grid time: expected ErrNoSample, got %v", err)
	}
	if _, err := store.Sample(1, 99.0, 1); !errors.Is(err, ErrNoSample) {
		t.Fatalf("past end: expected ErrNoSample, got %v", err)
	}
	if _, err := store.Sample(1, 0.004, 3); !errors.Is(err, ErrNoSample) {
		t.Fatalf("bad lead: expected ErrNoSample, got %v", err)
	}
	if _, err := store.Sample(42, 0, 1); !errors.Is(err, ErrNoSample) {
		t.Fatalf("unknown person: expected ErrNoSample, got %v", err)
	}
}

func TestCSVStoreMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "7.csv"), []byte("not,a,number\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	store := NewCSVStore(dir)
	if _, err := store.Sample(7, 0, 1); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSampleToleranceAbsorbsFloatDrift(t *testing.T) {
	dir := t.TempDir()
	writeECGFixture(t, dir, 2, 1000)
	store := NewCSVStore(dir)

	// 249*0.004 accumulates binary float error against the parsed "0.996".
	seconds := float64(249) * 0.004
	v, err := store.Sample(2, seconds, 1)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if math.Abs(v-249.25) > 1e-9 {
		t.Fatalf("want 249.25 got %g", v)
	}
}
