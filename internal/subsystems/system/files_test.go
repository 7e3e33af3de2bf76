package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestListDir(t *testing.T) {
	p, _ := newTestProvider(t)
	base := p.BaseDir()
	if err := os.Mkdir(filepath.Join(base, "logs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(base, "logs"), filepath.Join(base, "link")); err != nil {
		t.Fatal(err)
	}

	req, pub := request(t, "list_dir", "r1", "")
	if err := p.handleListDir(context.Background(), req); err != nil {
		t.Fatalf("handleListDir() error = %v", err)
	}

	reply := pub.decode(t)
	if reply["path"] != "." {
		t.Errorf("path = %v, want .", reply["path"])
	}
	got := map[string]string{}
	for _, item := range reply["items"].([]any) {
		m := item.(map[string]any)
		got[m["name"].(string)] = m["type"].(string)
	}
	want := map[string]string{"logs": "directory", "notes.txt": "file", "link": "directory"}
	for name, typ := range want {
		if got[name] != typ {
			t.Errorf("entry %s = %q, want %q", name, got[name], typ)
		}
	}
}

func TestListDir_Missing(t *testing.T) {
	p, _ := newTestProvider(t)
	req, pub := request(t, "list_dir", "r1", `{"directory":"nope"}`)

	if err := p.handleListDir(context.Background(), req); err == nil {
		t.Fatal("handleListDir() error = nil, want error")
	}
	if pub.count() != 0 {
		t.Error("failed list must not reply from the handler")
	}
}

func TestFileRoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()

	req, pub := request(t, "write_file", "w1", `{"path":"conf/app.txt","content":"hello"}`)
	if err := p.handleWriteFile(ctx, req); err != nil {
		t.Fatalf("handleWriteFile() error = %v", err)
	}
	reply := pub.decode(t)
	if reply["path"] != filepath.Join("conf", "app.txt") || reply["size"] != float64(5) {
		t.Errorf("write reply = %v", reply)
	}

	req, pub = request(t, "read_file", "r1", "conf/app.txt")
	if err := p.handleReadFile(ctx, req); err != nil {
		t.Fatalf("handleReadFile() error = %v", err)
	}
	if reply := pub.decode(t); reply["content"] != "hello" || reply["path"] != "conf/app.txt" {
		t.Errorf("read reply = %v", reply)
	}

	req, pub = request(t, "delete_file", "d1", `{"path":"conf/app.txt"}`)
	if err := p.handleDeleteFile(ctx, req); err != nil {
		t.Fatalf("handleDeleteFile() error = %v", err)
	}
	if reply := pub.decode(t); reply["deleted"] != true {
		t.Errorf("delete reply = %v", reply)
	}
	if _, err := os.Stat(filepath.Join(p.BaseDir(), "conf", "app.txt")); !os.IsNotExist(err) {
		t.Errorf("file still exists: %v", err)
	}
}

func TestWriteFile_InvalidPayload(t *testing.T) {
	p, _ := newTestProvider(t)

	for _, payload := range []string{"", "plain text", `{"content":"x"}`, `{"path":""}`, `{"path":5}`} {
		req, _ := request(t, "write_file", "w1", payload)
		err := p.handleWriteFile(context.Background(), req)
		if err == nil || err.Error() != "payload must be a JSON object with path and content" {
			t.Errorf("payload %q: error = %v", payload, err)
		}
	}
}

func TestDeleteFile_RefusesDirectory(t *testing.T) {
	p, _ := newTestProvider(t)
	if err := os.Mkdir(filepath.Join(p.BaseDir(), "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	req, _ := request(t, "delete_file", "d1", "keep")
	if err := p.handleDeleteFile(context.Background(), req); err == nil {
		t.Fatal("handleDeleteFile() error = nil, want error")
	}
	if _, err := os.Stat(filepath.Join(p.BaseDir(), "keep")); err != nil {
		t.Errorf("directory removed: %v", err)
	}
}

func TestMkdir(t *testing.T) {
	p, _ := newTestProvider(t)
	req, pub := request(t, "mkdir", "m1", `{"directory":"a/b/c"}`)

	if err := p.handleMkdir(context.Background(), req); err != nil {
		t.Fatalf("handleMkdir() error = %v", err)
	}
	if reply := pub.decode(t); reply["created"] != true || reply["path"] != "a/b/c" {
		t.Errorf("reply = %v", reply)
	}
	info, err := os.Stat(filepath.Join(p.BaseDir(), "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

func TestFileActions_NoReplyChannel(t *testing.T) {
	p, _ := newTestProvider(t)
	req, pub := request(t, "mkdir", "", "quiet")

	if err := p.handleMkdir(context.Background(), req); err != nil {
		t.Fatalf("handleMkdir() error = %v", err)
	}
	if pub.count() != 0 {
		t.Error("replied without a request id")
	}
}

func TestExtractPath(t *testing.T) {
	tests := []struct {
		payload string
		keys    []string
		want    string
		wantErr bool
	}{
		{payload: "", keys: []string{"path"}, want: "."},
		{payload: "  logs  ", keys: []string{"path"}, want: "logs"},
		{payload: `{"path":"a"}`, keys: []string{"path", "directory"}, want: "a"},
		{payload: `{"directory":"b"}`, keys: []string{"path", "directory"}, want: "b"},
		{payload: `{"path":1,"directory":"c"}`, keys: []string{"path", "directory"}, want: "c"},
		{payload: `{"other":"x"}`, keys: []string{"path", "directory"}, wantErr: true},
		{payload: `{broken`, keys: []string{"path"}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := extractPath(tt.payload, tt.keys...)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractPath(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("extractPath(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}

	_, err := extractPath(`{}`, "path", "directory")
	if err == nil || err.Error() != "payload missing required path field (path, directory)" {
		t.Errorf("missing field error = %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{rel: "", want: "/srv/agent"},
		{rel: "logs/a.txt", want: "/srv/agent/logs/a.txt"},
		{rel: "../etc", want: "/srv/etc"},
		{rel: "/var/log/../tmp", want: "/var/tmp"},
	}
	for _, tt := range tests {
		if got := resolvePath("/srv/agent", tt.rel); got != tt.want {
			t.Errorf("resolvePath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}

	if got := relativeTo("/srv/agent", "/srv/agent/x/y"); got != "x/y" {
		t.Errorf("relativeTo inside = %q", got)
	}
	if got := relativeTo("/srv/agent", "/etc/passwd"); got != "/etc/passwd" {
		t.Errorf("relativeTo outside = %q", got)
	}
}
