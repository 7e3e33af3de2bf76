package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/ventoagent/internal/controlplane"
	"github.com/nerrad567/ventoagent/internal/infrastructure/config"
)

func scriptedPrompter(input string) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &prompter{in: bufio.NewReader(strings.NewReader(input)), out: out}, out
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"--host", "vento.local:8000", "-u", "ops", "--device", "pi_kitchen",
		"--interval", "15", "--once", "--skip-register-actions",
	})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.host != "vento.local:8000" || opts.username != "ops" || opts.deviceName != "pi_kitchen" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.interval != 15 || !opts.once || !opts.skipRegisterActions {
		t.Errorf("opts = %+v", opts)
	}

	if _, err := parseFlags([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help error = %v, want pflag.ErrHelp", err)
	}
	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Error("unknown flag accepted")
	}
	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Error("positional argument accepted")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(configPathEnv, "")
	if got := resolveConfigPath(""); got != defaultConfigPath {
		t.Errorf("default = %q", got)
	}

	t.Setenv(configPathEnv, "/etc/ventoagent.yaml")
	if got := resolveConfigPath(""); got != "/etc/ventoagent.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := resolveConfigPath("local.yaml"); got != "local.yaml" {
		t.Errorf("flag = %q", got)
	}
}

func TestCompleteIdentity_PromptsWithDefaults(t *testing.T) {
	prompt, out := scriptedPrompter("\nops\n")
	cfg := &config.Config{}

	if err := completeIdentity(cfg, prompt); err != nil {
		t.Fatalf("completeIdentity() error = %v", err)
	}
	if cfg.Agent.Host != defaultHost || cfg.Agent.Username != "ops" {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if !regexp.MustCompile(`^[a-z0-9_]+_[0-9a-f]{4}$`).MatchString(cfg.Agent.DeviceName) {
		t.Errorf("generated device name = %q", cfg.Agent.DeviceName)
	}
	if !strings.Contains(out.String(), "Vento host [http://localhost:8000]: ") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestCompleteIdentity_NoPromptWhenSet(t *testing.T) {
	prompt, out := scriptedPrompter("")
	cfg := &config.Config{Agent: config.AgentConfig{Host: "http://h", Username: "u", DeviceName: "d"}}

	if err := completeIdentity(cfg, prompt); err != nil {
		t.Fatalf("completeIdentity() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected prompt %q", out.String())
	}
	if cfg.Agent.DeviceName != "d" {
		t.Errorf("device name changed to %q", cfg.Agent.DeviceName)
	}
}

func TestPrompter_EOF(t *testing.T) {
	prompt, _ := scriptedPrompter("")
	if _, err := prompt.ask("Host", "x"); err == nil {
		t.Error("ask() on closed input should fail")
	}

	prompt, _ = scriptedPrompter("s3cret")
	if got, err := prompt.secret("Password"); err != nil || got != "s3cret" {
		t.Errorf("secret() = %q, %v", got, err)
	}
}

func TestClientID(t *testing.T) {
	re := regexp.MustCompile(`^pi1-[0-9a-f]{8}$`)
	a, b := clientID("", "pi1"), clientID("", "pi1")
	if !re.MatchString(a) || a == b {
		t.Errorf("clientID() = %q, %q", a, b)
	}
	if got := clientID("lab", "pi1"); !strings.HasPrefix(got, "lab-") {
		t.Errorf("clientID(prefix) = %q", got)
	}
}

func TestRun_LoginFailureSavesIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/core/v1/auth/login" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	configPath := filepath.Join(t.TempDir(), "agent.yaml")
	prompt, _ := scriptedPrompter("\nwrong\n")
	opts := cliOptions{configPath: configPath, host: srv.URL}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, opts, prompt)
	var apiErr *controlplane.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("run() error = %v, want 401 APIError", err)
	}

	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.Agent.Host != srv.URL || saved.Agent.Username != defaultUsername || saved.Agent.DeviceName == "" {
		t.Errorf("saved agent = %+v", saved.Agent)
	}
	if saved.Agent.Token != "" {
		t.Error("token saved after failed login")
	}
}
