package plugin

import (
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"powermodes/internal/diag"
	"powermodes/internal/modes"
)

// CallStatus tells how a wrapped plugin call ended
type CallStatus int

const (
	// CallOK means the plugin returned a well-formed result
	CallOK CallStatus = iota
	// CallMalformed means the result was discarded because its shape was wrong
	CallMalformed
	// CallFailed means the plugin returned an error
	CallFailed
	// CallPanicked means the plugin panicked and the panic was recovered
	CallPanicked
)

func (s CallStatus) String() string {
	switch s {
	case CallOK:
		return "ok"
	case CallMalformed:
		return "malformed"
	case CallFailed:
		return "failed"
	case CallPanicked:
		return "panicked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// JudgeResult is the outcome of a wrapped Judge call. Accepted is empty unless Status is CallOK.
type JudgeResult struct {
	Status      CallStatus
	Accepted    []string
	Diagnostics diag.List
}

// Accepts reports whether mode was accepted
func (r JudgeResult) Accepts(mode string) bool {
	return slices.Contains(r.Accepted, mode)
}

// ApplyResult is the outcome of a wrapped Apply call. Success is false unless Status is CallOK.
type ApplyResult struct {
	Status      CallStatus
	Success     bool
	Diagnostics diag.List
}

var errNoImplementation = errors.New("plugin has no implementation")

// Judge calls the plugin's Judge with a copy of cfg that only holds the plugin's own entries.
// It never panics: malformed results, errors and panics all become a single warning attributed
// to the plugin, and no mode is accepted. Diagnostics without origin are attributed to the plugin.
func (d *Descriptor) Judge(cfg modes.Config) (res JudgeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = JudgeResult{
				Status: CallPanicked,
				Diagnostics: diag.List{diag.Warningf("Calling judge resulted in a panic. Ignoring "+
					"that plugin. Unable to report any other error / warning from this plugin. "+
					"Here's the trace:\n%v\n%s", r, debug.Stack()).From(d.Name)},
			}
		}
	}()

	if d.impl == nil {
		return d.judgeFailed(errNoImplementation)
	}

	judgement, err := d.impl.Judge(modes.Filter(cfg, d.Name))
	if errors.Is(err, ErrMalformed) {
		return d.judgeMalformed(err)
	}
	if err != nil {
		return d.judgeFailed(err)
	}

	if err := checkJudgement(judgement); err != nil {
		return d.judgeMalformed(err)
	}

	diags := diag.List(slices.Clone(judgement.Diagnostics))
	diags.StampOrigin(d.Name)
	return JudgeResult{
		Status:      CallOK,
		Accepted:    slices.Clone(judgement.Accepted),
		Diagnostics: diags,
	}
}

func (d *Descriptor) judgeMalformed(err error) JudgeResult {
	return JudgeResult{
		Status: CallMalformed,
		Diagnostics: diag.List{diag.Warningf("judge returned an invalid value: %v. Unable to "+
			"report any error / warning from this plugin. Ignoring it.", err).From(d.Name)},
	}
}

func (d *Descriptor) judgeFailed(err error) JudgeResult {
	return JudgeResult{
		Status: CallFailed,
		Diagnostics: diag.List{diag.Warningf("Calling judge failed: %v. Ignoring that plugin. "+
			"Unable to report any other error / warning from this plugin.", err).From(d.Name)},
	}
}

// Apply calls the plugin's Apply with a deep copy of value, under the same guarantees as Judge.
// Any status other than CallOK counts as failure.
func (d *Descriptor) Apply(value any) (res ApplyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ApplyResult{
				Status: CallPanicked,
				Diagnostics: diag.List{diag.Warningf("Calling apply resulted in a panic. You may "+
					"have ended up with a partially configured system. Unable to report any other "+
					"error / warning from this plugin. Here's the trace:\n%v\n%s",
					r, debug.Stack()).From(d.Name)},
			}
		}
	}()

	if d.impl == nil {
		return d.applyFailed(errNoImplementation)
	}

	outcome, err := d.impl.Apply(modes.DeepCopy(value))
	if errors.Is(err, ErrMalformed) {
		return d.applyMalformed(err)
	}
	if err != nil {
		return d.applyFailed(err)
	}

	if err := checkDiagnostics(outcome.Diagnostics); err != nil {
		return d.applyMalformed(err)
	}

	diags := diag.List(slices.Clone(outcome.Diagnostics))
	diags.StampOrigin(d.Name)
	return ApplyResult{
		Status:      CallOK,
		Success:     outcome.Success,
		Diagnostics: diags,
	}
}

func (d *Descriptor) applyMalformed(err error) ApplyResult {
	return ApplyResult{
		Status: CallMalformed,
		Diagnostics: diag.List{diag.Warningf("apply returned an invalid value: %v. Unable to "+
			"report any error / warning from this plugin. You may have ended up with a "+
			"partially configured system.", err).From(d.Name)},
	}
}

func (d *Descriptor) applyFailed(err error) ApplyResult {
	return ApplyResult{
		Status: CallFailed,
		Diagnostics: diag.List{diag.Warningf("Calling apply failed: %v. You may have ended up "+
			"with a partially configured system. Unable to report any other error / warning "+
			"from this plugin.", err).From(d.Name)},
	}
}

// checkJudgement rejects judgements powermodes cannot act on: broken diagnostics and empty or
// repeated mode names.
func checkJudgement(j Judgement) error {
	seen := make(map[string]struct{}, len(j.Accepted))
	for i, mode := range j.Accepted {
		if mode == "" {
			return fmt.Errorf("accepted mode %d has an empty name", i+1)
		}
		if _, dup := seen[mode]; dup {
			return fmt.Errorf("mode %q accepted more than once", mode)
		}
		seen[mode] = struct{}{}
	}
	return checkDiagnostics(j.Diagnostics)
}

func checkDiagnostics(diags []diag.Diagnostic) error {
	for i, d := range diags {
		if !d.Severity.Valid() {
			return fmt.Errorf("diagnostic %d has unknown severity %d", i+1, int(d.Severity))
		}
		if d.Message == "" {
			return fmt.Errorf("diagnostic %d has an empty message", i+1)
		}
	}
	return nil
}
