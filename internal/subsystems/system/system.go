package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nerrad567/ventoagent/internal/process"
	"github.com/nerrad567/ventoagent/internal/registry"
)

const (
	// Name is the subsystem name used in topics.
	Name = "system"

	// DefaultExecTimeout bounds the execute action.
	DefaultExecTimeout = 120 * time.Second

	memoryUsedInterval = 5 * time.Second
	cpuinfoPath        = "/proc/cpuinfo"
)

// Logger is the logging surface used by the subsystem.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Provider. Zero values pick the defaults.
type Options struct {
	// BaseDir anchors relative file paths and is the working directory of
	// executed commands. Defaults to the process working directory.
	BaseDir string

	ExecTimeout time.Duration

	// Out receives print action output. Defaults to os.Stdout.
	Out io.Writer

	Logger Logger

	// Host overrides the gopsutil-backed host readings.
	Host HostStats
}

// Provider builds the system subsystem.
type Provider struct {
	baseDir     string
	execTimeout time.Duration
	out         io.Writer
	logger      Logger
	host        HostStats
	run         func(ctx context.Context, cfg process.Config, logger process.Logger) (process.Result, error)
}

// New returns a Provider. It fails only when the base directory cannot be
// resolved.
func New(opts Options) (*Provider, error) {
	base := opts.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory %q: %w", opts.BaseDir, err)
	}

	p := &Provider{
		baseDir:     base,
		execTimeout: opts.ExecTimeout,
		out:         opts.Out,
		logger:      opts.Logger,
		host:        opts.Host,
		run:         process.RunWithLogger,
	}
	if p.execTimeout <= 0 {
		p.execTimeout = DefaultExecTimeout
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if p.host == nil {
		p.host = gopsutilStats{cpuinfoPath: cpuinfoPath}
	}
	return p, nil
}

// BaseDir returns the absolute directory file actions resolve against.
func (p *Provider) BaseDir() string {
	return p.baseDir
}

// Build implements registry.Provider.
func (p *Provider) Build(_ string) (registry.Definition, error) {
	return registry.Definition{
		Name:     Name,
		Kind:     registry.KindVirtual,
		Monitors: p.monitors(),
		Actions:  p.actions(),
	}, nil
}

func (p *Provider) monitors() []registry.Monitor {
	return []registry.Monitor{
		{
			Name:        "memory_total",
			Label:       "Total memory",
			Description: "Total physical memory detected when the agent booted",
			Units:       "bytes",
			CardProps:   registry.CardProps{"icon": "database", "color": "$green10"},
			Boot: func(ctx context.Context) (any, error) {
				n, err := p.host.MemoryTotal(ctx)
				return strconv.FormatUint(n, 10), err
			},
		},
		{
			Name:        "memory_used",
			Label:       "Used memory",
			Description: "Periodically reported RAM usage",
			Units:       "bytes",
			Ephemeral:   true,
			CardProps:   registry.CardProps{"icon": "activity", "color": "$blue10"},
			Tick: func(ctx context.Context) (any, error) {
				n, err := p.host.MemoryUsed(ctx)
				return strconv.FormatUint(n, 10), err
			},
			Interval: memoryUsedInterval,
		},
		{
			Name:        "cpu_model",
			Label:       "CPU model",
			Description: "CPU name/model",
			CardProps:   registry.CardProps{"icon": "cpu", "color": "$orange10"},
			Boot: func(ctx context.Context) (any, error) {
				return p.host.CPUModel(ctx)
			},
		},
		{
			Name:        "cpu_cores",
			Label:       "CPU cores",
			Description: "Number of logical CPU cores",
			CardProps:   registry.CardProps{"icon": "grid", "color": "$purple10"},
			Boot: func(ctx context.Context) (any, error) {
				n, err := p.host.CPUCores(ctx)
				return strconv.Itoa(n), err
			},
		},
		{
			Name:        "cpu_frequency",
			Label:       "CPU frequency",
			Description: "Current CPU frequency (MHz)",
			CardProps:   registry.CardProps{"icon": "activity", "color": "$pink10"},
			Boot: func(ctx context.Context) (any, error) {
				mhz, err := p.host.CPUFrequency(ctx)
				return strconv.FormatFloat(mhz, 'f', 2, 64), err
			},
		},
		{
			Name:        "os_version",
			Label:       "Operating system",
			Description: "Host OS and version",
			CardProps:   registry.CardProps{"icon": "monitor", "color": "$cyan10"},
			Boot: func(ctx context.Context) (any, error) {
				return p.host.OSVersion(ctx)
			},
		},
	}
}

func pathSchema(title, description, def string) map[string]any {
	field := map[string]any{
		"type":        "string",
		"title":       title,
		"description": description,
	}
	if def != "" {
		field["default"] = def
	}
	return map[string]any{"path": field}
}

func (p *Provider) actions() []registry.Action {
	writeSchema := pathSchema("Path", "Relative file path", "")
	writeSchema["content"] = map[string]any{
		"type":        "string",
		"title":       "Content",
		"description": "Text to write",
	}

	return []registry.Action{
		{
			Name:        "print",
			Label:       "Print to stdout",
			Description: "Send a message that the local agent prints to stdout",
			Payload:     registry.PayloadSpec{Type: "string"},
			CardProps:   registry.CardProps{"icon": "terminal"},
			Handler:     p.handlePrint,
		},
		{
			Name:        "execute",
			Label:       "Execute command",
			Description: "Run a shell command on the host and return its output",
			Payload:     registry.PayloadSpec{Type: "string"},
			CardProps:   registry.CardProps{"icon": "code", "color": "$red10"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleExecute,
		},
		{
			Name:        "list_dir",
			Label:       "List directory",
			Description: "List files in a directory relative to the agent",
			Payload:     registry.PayloadSpec{Type: "json-schema", Schema: pathSchema("Directory", "Relative path to list", ".")},
			CardProps:   registry.CardProps{"icon": "folder", "color": "$blue9"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleListDir,
		},
		{
			Name:        "read_file",
			Label:       "Read file",
			Description: "Read a file relative to the agent",
			Payload:     registry.PayloadSpec{Type: "json-schema", Schema: pathSchema("Path", "Relative file path", "")},
			CardProps:   registry.CardProps{"icon": "file-text", "color": "$green9"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleReadFile,
		},
		{
			Name:        "write_file",
			Label:       "Write file",
			Description: "Write contents to a file relative to the agent",
			Payload:     registry.PayloadSpec{Type: "json-schema", Schema: writeSchema},
			CardProps:   registry.CardProps{"icon": "edit", "color": "$yellow9"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleWriteFile,
		},
		{
			Name:        "delete_file",
			Label:       "Delete file",
			Description: "Delete a file relative to the agent",
			Payload:     registry.PayloadSpec{Type: "json-schema", Schema: pathSchema("Path", "Relative file path", "")},
			CardProps:   registry.CardProps{"icon": "trash", "color": "$red9"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleDeleteFile,
		},
		{
			Name:        "mkdir",
			Label:       "Create directory",
			Description: "Create a directory relative to the agent",
			Payload:     registry.PayloadSpec{Type: "json-schema", Schema: pathSchema("Directory", "Relative directory path", "")},
			CardProps:   registry.CardProps{"icon": "folder-plus", "color": "$purple9"},
			Mode:        registry.ModeRequestReply,
			Handler:     p.handleMkdir,
		},
	}
}
