package gpio

import (
	"os"
	"runtime"
	"strings"
)

// Detector decides whether the host is a Raspberry Pi. The zero value is
// not useful; use DefaultDetector.
type Detector struct {
	GOOS       string
	GOARCH     string
	ModelPaths []string

	// MarkerPath exists only on Raspberry Pi OS images.
	MarkerPath string
}

// DefaultDetector inspects the running host.
func DefaultDetector() Detector {
	return Detector{
		GOOS:   runtime.GOOS,
		GOARCH: runtime.GOARCH,
		ModelPaths: []string{
			"/proc/device-tree/model",
			"/sys/firmware/devicetree/base/model",
		},
		MarkerPath: "/usr/bin/raspi-config",
	}
}

// IsRaspberryPi reports whether the running host is a Raspberry Pi.
func IsRaspberryPi() bool {
	return DefaultDetector().Detect()
}

// Detect requires Linux on ARM, then a device-tree model naming a
// Raspberry Pi or the raspi-config marker.
func (d Detector) Detect() bool {
	if strings.ToLower(d.GOOS) != "linux" {
		return false
	}
	arch := strings.ToLower(d.GOARCH)
	if !strings.HasPrefix(arch, "arm") && arch != "aarch64" {
		return false
	}

	for _, path := range d.ModelPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), "raspberry pi") {
			return true
		}
	}

	if d.MarkerPath != "" {
		if _, err := os.Stat(d.MarkerPath); err == nil {
			return true
		}
	}
	return false
}
