package gpio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetector(t *testing.T) {
	dir := t.TempDir()
	piModel := filepath.Join(dir, "pi-model")
	otherModel := filepath.Join(dir, "other-model")
	marker := filepath.Join(dir, "raspi-config")
	if err := os.WriteFile(piModel, []byte("Raspberry Pi 4 Model B Rev 1.5\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(otherModel, []byte("Pine64 RockPro64"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(marker, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")

	tests := []struct {
		name string
		d    Detector
		want bool
	}{
		{
			name: "pi model on arm64",
			d:    Detector{GOOS: "linux", GOARCH: "arm64", ModelPaths: []string{missing, piModel}},
			want: true,
		},
		{
			name: "pi model on 32-bit arm",
			d:    Detector{GOOS: "linux", GOARCH: "arm", ModelPaths: []string{piModel}},
			want: true,
		},
		{
			name: "other board",
			d:    Detector{GOOS: "linux", GOARCH: "arm64", ModelPaths: []string{otherModel}, MarkerPath: missing},
			want: false,
		},
		{
			name: "raspi-config marker",
			d:    Detector{GOOS: "linux", GOARCH: "arm64", ModelPaths: []string{missing}, MarkerPath: marker},
			want: true,
		},
		{
			name: "x86",
			d:    Detector{GOOS: "linux", GOARCH: "amd64", ModelPaths: []string{piModel}, MarkerPath: marker},
			want: false,
		},
		{
			name: "darwin",
			d:    Detector{GOOS: "darwin", GOARCH: "arm64", ModelPaths: []string{piModel}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Detect(); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}
