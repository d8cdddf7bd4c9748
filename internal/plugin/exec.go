package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"powermodes/internal/diag"
	"powermodes/internal/modes"
)

// Verbs of the external plugin protocol. The plugin executable gets one of them as its only
// argument, reads its input as JSON on stdin and prints its reply as JSON on stdout.
const (
	verbInfo  = "info"
	verbJudge = "judge"
	verbApply = "apply"
)

// DefaultTimeout bounds each call into an external plugin
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long a killed plugin's leftover processes may hold its output open
const waitDelay = time.Second

// info is the reply to the info verb
type info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

func (i info) has(capability string) bool {
	return slices.Contains(i.Capabilities, capability)
}

// judgeReply and applyReply are the wire forms of Judgement and Outcome. The pointer fields are
// required.
type judgeReply struct {
	Accepted    *[]string         `json:"accepted"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

type applyReply struct {
	Success     *bool             `json:"success"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// execPlugin runs a plugin executable for every call
type execPlugin struct {
	path    string
	name    string
	version string
	timeout time.Duration
}

func (p *execPlugin) Name() string    { return p.name }
func (p *execPlugin) Version() string { return p.version }

func (p *execPlugin) Judge(cfg modes.Config) (Judgement, error) {
	var reply judgeReply
	if err := call(p.path, verbJudge, cfg, &reply, p.timeout); err != nil {
		return Judgement{}, err
	}
	if reply.Accepted == nil {
		return Judgement{}, fmt.Errorf("%w: judge reply has no \"accepted\" list", ErrMalformed)
	}
	return Judgement{Accepted: *reply.Accepted, Diagnostics: reply.Diagnostics}, nil
}

func (p *execPlugin) Apply(value any) (Outcome, error) {
	var reply applyReply
	if err := call(p.path, verbApply, value, &reply, p.timeout); err != nil {
		return Outcome{}, err
	}
	if reply.Success == nil {
		return Outcome{}, fmt.Errorf("%w: apply reply has no \"success\" value", ErrMalformed)
	}
	return Outcome{Success: *reply.Success, Diagnostics: reply.Diagnostics}, nil
}

// probe asks an executable who it is
func probe(path string, timeout time.Duration) (info, error) {
	var reply info
	if err := call(path, verbInfo, nil, &reply, timeout); err != nil {
		return info{}, err
	}
	return reply, nil
}

// call runs path with verb, feeding input as JSON and strictly decoding stdout into out
func call(path, verb string, input any, out any, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var stdin []byte
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("failed to encode %s input: %w", verb, err)
		}
		stdin = data
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// #nosec G204 -- plugin executables come from the operator's plugin directory
	cmd := exec.CommandContext(ctx, path, verb)
	// The plugin leads its own process group so a timeout also kills whatever it started
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", verb, timeout)
		}
		return fmt.Errorf("%s failed: %w, stderr: %s", verb, err, strings.TrimSpace(stderr.String()))
	}

	if err := strictDecode(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("%s printed an invalid reply: %w", verb, err)
	}
	return nil
}

// strictDecode rejects unknown fields and anything after the first JSON value
func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after reply")
	}
	return nil
}
