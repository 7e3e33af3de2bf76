package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/ventoagent/internal/envelope"
)

const (
	entryDirectory = "directory"
	entryFile      = "file"

	filePerm = 0o644
	dirPerm  = 0o755
)

type dirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (p *Provider) handleListDir(_ context.Context, req *envelope.Request) error {
	rel, err := extractPath(req.Text(), "path", "directory")
	if err != nil {
		return err
	}

	dir := resolvePath(p.baseDir, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	items := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, dirEntry{Name: e.Name(), Type: entryType(dir, e)})
	}
	return respond(req, map[string]any{"path": rel, "items": items})
}

func (p *Provider) handleReadFile(_ context.Context, req *envelope.Request) error {
	rel, err := extractPath(req.Text(), "path")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resolvePath(p.baseDir, rel))
	if err != nil {
		return err
	}
	return respond(req, map[string]any{"path": rel, "content": string(data)})
}

type writeRequest struct {
	Path    *string `json:"path"`
	Content string  `json:"content"`
}

func (p *Provider) handleWriteFile(_ context.Context, req *envelope.Request) error {
	errPayload := errors.New("payload must be a JSON object with path and content")

	var body writeRequest
	if err := json.Unmarshal(req.Payload(), &body); err != nil {
		return errPayload
	}
	if body.Path == nil || *body.Path == "" {
		return errPayload
	}

	target := resolvePath(p.baseDir, *body.Path)
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}
	if err := os.WriteFile(target, []byte(body.Content), filePerm); err != nil {
		return err
	}

	p.logger.Info("file written", "path", target, "size", len(body.Content))
	return respond(req, map[string]any{
		"path": relativeTo(p.baseDir, target),
		"size": len(body.Content),
	})
}

func (p *Provider) handleDeleteFile(_ context.Context, req *envelope.Request) error {
	rel, err := extractPath(req.Text(), "path")
	if err != nil {
		return err
	}

	target := resolvePath(p.baseDir, rel)
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", rel)
	}
	if err := os.Remove(target); err != nil {
		return err
	}

	p.logger.Info("file deleted", "path", target)
	return respond(req, map[string]any{"path": rel, "deleted": true})
}

func (p *Provider) handleMkdir(_ context.Context, req *envelope.Request) error {
	rel, err := extractPath(req.Text(), "path", "directory")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(resolvePath(p.baseDir, rel), dirPerm); err != nil {
		return err
	}
	return respond(req, map[string]any{"path": rel, "created": true})
}

// extractPath reads a path from a bare string or from the first string
// field among keys of a JSON object. An empty payload means ".".
func extractPath(payload string, keys ...string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ".", nil
	}
	if !strings.HasPrefix(payload, "{") {
		return payload, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return "", fmt.Errorf("invalid JSON payload: %w", err)
	}
	for _, key := range keys {
		if v, ok := data[key].(string); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("payload missing required path field (%s)", strings.Join(keys, ", "))
}

// resolvePath joins rel onto base. Absolute paths are used as given.
func resolvePath(base, rel string) string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		rel = "."
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}

// relativeTo returns full relative to base, or full when it lies outside.
func relativeTo(base, full string) string {
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return full
	}
	return rel
}

// entryType follows symlinks, so a link to a directory is a directory.
func entryType(dir string, e os.DirEntry) string {
	if e.IsDir() {
		return entryDirectory
	}
	if e.Type()&os.ModeSymlink != 0 {
		if info, err := os.Stat(filepath.Join(dir, e.Name())); err == nil && info.IsDir() {
			return entryDirectory
		}
	}
	return entryFile
}
