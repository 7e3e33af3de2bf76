package system

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStats reads host figures. Tests substitute a fake.
type HostStats interface {
	MemoryTotal(ctx context.Context) (uint64, error)
	MemoryUsed(ctx context.Context) (uint64, error)
	CPUModel(ctx context.Context) (string, error)
	CPUCores(ctx context.Context) (int, error)
	CPUFrequency(ctx context.Context) (float64, error)
	OSVersion(ctx context.Context) (string, error)
}

// gopsutilStats is the production HostStats.
type gopsutilStats struct {
	cpuinfoPath string
}

func (gopsutilStats) MemoryTotal(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading memory: %w", err)
	}
	return vm.Total, nil
}

func (gopsutilStats) MemoryUsed(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading memory: %w", err)
	}
	return vm.Used, nil
}

// CPUModel prefers the "model name" line of /proc/cpuinfo, then gopsutil,
// then the kernel architecture.
func (s gopsutilStats) CPUModel(ctx context.Context) (string, error) {
	if model := modelFromCPUInfo(s.cpuinfoPath); model != "" {
		return model, nil
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil {
		for _, info := range infos {
			if info.ModelName != "" {
				return info.ModelName, nil
			}
		}
	}
	if hi, err := host.InfoWithContext(ctx); err == nil && hi.KernelArch != "" {
		return hi.KernelArch, nil
	}
	return runtime.GOARCH, nil
}

func (gopsutilStats) CPUCores(ctx context.Context) (int, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("counting cpus: %w", err)
	}
	return n, nil
}

// CPUFrequency returns MHz of the first CPU, or 0 when unknown.
func (gopsutilStats) CPUFrequency(ctx context.Context) (float64, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return 0, nil //nolint:nilerr // frequency is unavailable on many ARM boards
	}
	return infos[0].Mhz, nil
}

// OSVersion returns "<System> <kernel release>", e.g. "Linux 6.1.0-rpi7".
func (gopsutilStats) OSVersion(ctx context.Context) (string, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("reading host info: %w", err)
	}
	return strings.TrimSpace(systemName(hi.OS) + " " + hi.KernelVersion), nil
}

func systemName(goos string) string {
	if goos == "" {
		goos = runtime.GOOS
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}

func modelFromCPUInfo(path string) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.ToLower(line), "model name") {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
