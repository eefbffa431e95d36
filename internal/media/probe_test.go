package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    float64
		wantErr bool
	}{
		{name: "plain", out: "12.480000\n", want: 12.48},
		{name: "integer", out: "90", want: 90},
		{name: "garbage", out: "N/A\n", wantErr: true},
		{name: "empty", out: "", wantErr: true},
		{name: "zero", out: "0.0", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDuration(tc.out)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseDuration(%q) error = nil, want error", tc.out)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDuration(%q) error = %v", tc.out, err)
			}
			if got != tc.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tc.out, got, tc.want)
			}
		})
	}
}

func TestSizeEstimateProber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, make([]byte, 3<<20), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := SizeEstimateProber{}.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.DurationSec != 3 {
		t.Errorf("estimated duration = %v, want 3", info.DurationSec)
	}
	if info.SizeBytes != 3<<20 {
		t.Errorf("size = %d, want %d", info.SizeBytes, int64(3<<20))
	}
}

func TestSizeEstimateProber_TinyFileFloor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := SizeEstimateProber{}.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.DurationSec != 1 {
		t.Errorf("estimated duration = %v, want 1s floor", info.DurationSec)
	}
}

func TestSizeEstimateProber_MissingFile(t *testing.T) {
	_, err := SizeEstimateProber{}.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil {
		t.Fatal("Probe() error = nil for missing file")
	}
}
