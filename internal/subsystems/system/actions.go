package system

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/nerrad567/ventoagent/internal/envelope"
	"github.com/nerrad567/ventoagent/internal/process"
)

const printPrefix = "[action:print] "

var printLabel = color.New(color.FgCyan, color.Bold)

// respond replies only when the request carries a reply channel.
func respond(req *envelope.Request, v any) error {
	if !req.CanReply() {
		return nil
	}
	return req.Respond(v)
}

// handlePrint writes the payload to the agent's stdout. JSON payloads are
// pretty-printed.
func (p *Provider) handlePrint(_ context.Context, req *envelope.Request) error {
	text := req.Text()

	var body string
	switch {
	case text == "":
		body = "<empty>"
	case json.Valid([]byte(text)):
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
			body = text
		} else {
			body = buf.String()
		}
	default:
		body = text
	}

	printLabel.Fprint(p.out, printPrefix)
	fmt.Fprintln(p.out, body)
	return nil
}

type executeResponse struct {
	Command  string `json:"command"`
	Output   string `json:"output"`
	ExitCode int    `json:"exitCode"`
	Error    string `json:"error,omitempty"`
}

func (p *Provider) handleExecute(ctx context.Context, req *envelope.Request) error {
	command := extractCommand(req.Text())
	if command == "" {
		return errors.New("empty command")
	}

	cfg := process.ShellCommand(command, p.execTimeout)
	cfg.WorkDir = p.baseDir

	res, err := p.run(ctx, cfg, p.logger)
	if errors.Is(err, process.ErrTimeout) {
		return errors.New("command timed out")
	}
	if err != nil {
		return err
	}

	resp := executeResponse{
		Command:  command,
		Output:   res.Output,
		ExitCode: res.ExitCode,
	}
	if res.ExitCode != 0 {
		resp.Error = fmt.Sprintf("process exited with code %d", res.ExitCode)
	}
	p.logger.Info("command executed", "command", command, "exit_code", res.ExitCode, "duration", res.Duration)
	return respond(req, resp)
}

// extractCommand accepts either a bare command or {"command": "..."}. A JSON
// object without a string command is run verbatim.
func extractCommand(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "{") {
		return payload
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return payload
	}
	if cmd, ok := data["command"].(string); ok {
		return strings.TrimSpace(cmd)
	}
	return payload
}
