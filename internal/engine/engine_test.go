package engine

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"powermodes/internal/diag"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

// stubPlugin accepts the modes whose value satisfies valid and applies according to applyOK
type stubPlugin struct {
	name     string
	valid    func(any) bool
	applyOK  bool
	judgeErr error
	panics   bool
	warnings []diag.Diagnostic
	applied  []any
}

func (s *stubPlugin) Name() string    { return s.name }
func (s *stubPlugin) Version() string { return "1.0" }

func (s *stubPlugin) Judge(cfg modes.Config) (plugin.Judgement, error) {
	if s.panics {
		zero := len(s.applied)
		s.applied = append(s.applied, 1/zero)
	}
	if s.judgeErr != nil {
		return plugin.Judgement{}, s.judgeErr
	}
	var accepted []string
	for mode, value := range modes.Iterate(cfg, s.name) {
		if s.valid == nil || s.valid(value) {
			accepted = append(accepted, mode)
		}
	}
	return plugin.Judgement{Accepted: accepted, Diagnostics: s.warnings}, nil
}

func (s *stubPlugin) Apply(value any) (plugin.Outcome, error) {
	if s.panics {
		panic("hardware on fire")
	}
	s.applied = append(s.applied, value)
	return plugin.Outcome{Success: s.applyOK}, nil
}

func loadedOf(plugins ...*stubPlugin) plugin.Loaded {
	loaded := plugin.Loaded{}
	for _, p := range plugins {
		loaded.Add(plugin.NewDescriptor(p.name, p.name, p.Version(), p))
	}
	return loaded
}

func isInt(v any) bool {
	_, ok := v.(int64)
	return ok
}

func messages(diags diag.List) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func TestValidateUnknownPluginStripping(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "real"}), nil)

	cfg, diags := e.Validate(modes.Document{"perf": map[string]any{"ghost": int64(1), "real": int64(2)}})

	want := modes.Config{"perf": {"real": int64(2)}}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Validate() = %#v, want %#v", cfg, want)
	}
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got:\n%s", messages(diags))
	}
	if got := diags[0].Message; got != "Unknown plugin ghost will be ignored in the following powermodes: perf" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestValidateUnknownPluginListsEveryMode(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "real"}), nil)

	_, diags := e.Validate(modes.Document{
		"b": map[string]any{"ghost": true, "real": int64(1)},
		"a": map[string]any{"ghost": true, "real": int64(1)},
	})

	if len(diags) != 1 || !strings.HasSuffix(diags[0].Message, "powermodes: a, b") {
		t.Errorf("unexpected diagnostics:\n%s", messages(diags))
	}
}

func TestValidateShapeAndEmptiness(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "real", valid: isInt}), nil)

	cfg, diags := e.Validate(modes.Document{
		"scalar":  "not a table",
		"list":    []any{int64(1)},
		"empty":   map[string]any{},
		"invalid": map[string]any{"real": "string"},
		"good":    map[string]any{"real": int64(3)},
	})

	if want := (modes.Config{"good": {"real": int64(3)}}); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Validate() = %#v, want %#v", cfg, want)
	}

	want := []string{
		`warning: Config specified invalid powermode "list". Must be a table. Ignoring it.`,
		`warning: Config specified invalid powermode "scalar". Must be a table. Ignoring it.`,
		`warning: Config specified empty powermode "empty". Ignoring it.`,
		`real warning: Removing plugin real from the following powermodes: invalid. Plugin's judge method failed.`,
		`warning: Empty powermode "invalid", resulting from the removal of invalid configuration parts. Ignoring it.`,
	}
	if got := strings.Split(strings.TrimSuffix(messages(diags), "\n"), "\n"); !reflect.DeepEqual(got, want) {
		t.Errorf("diagnostics =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestValidateEmptyCascadeDistinction(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "real"}), nil)

	_, startsEmpty := e.Validate(modes.Document{"m": map[string]any{}, "ok": map[string]any{"real": true}})
	_, becomesEmpty := e.Validate(modes.Document{"m": map[string]any{"ghost": true}, "ok": map[string]any{"real": true}})

	first := startsEmpty[len(startsEmpty)-1].Message
	second := becomesEmpty[len(becomesEmpty)-1].Message
	if first == second {
		t.Fatalf("both cases reported %q", first)
	}
	if !strings.Contains(first, "Config specified empty powermode") {
		t.Errorf("unexpected message for empty mode: %q", first)
	}
	if !strings.Contains(second, "resulting from the removal of invalid configuration parts") {
		t.Errorf("unexpected message for emptied mode: %q", second)
	}
}

func TestValidateTerminalEmptiness(t *testing.T) {
	tests := []struct {
		name string
		doc  modes.Document
	}{
		{name: "empty document", doc: modes.Document{}},
		{name: "only scalars", doc: modes.Document{"a": int64(1)}},
		{name: "only unknown plugins", doc: modes.Document{"a": map[string]any{"ghost": 1}}},
		{name: "only rejected entries", doc: modes.Document{"a": map[string]any{"real": "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(loadedOf(&stubPlugin{name: "real", valid: isInt}), nil)

			cfg, diags := e.Validate(tt.doc)
			if cfg != nil {
				t.Errorf("expected nil config, got %v", cfg)
			}
			if len(diags) == 0 {
				t.Fatal("expected diagnostics")
			}
			last := diags[len(diags)-1]
			if !last.IsFatal() || !strings.HasPrefix(last.Message, "Empty configuration") {
				t.Errorf("last diagnostic = %v", last)
			}
			if fatal := len(diags) - diags.Warnings(); fatal != 1 {
				t.Errorf("expected exactly one fatal diagnostic, got %d", fatal)
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	e := New(loadedOf(
		&stubPlugin{name: "a", valid: isInt},
		&stubPlugin{name: "b"},
	), nil)

	doc := modes.Document{
		"m1":    map[string]any{"a": int64(1), "b": []any{"x"}, "ghost": true},
		"m2":    map[string]any{"a": "bad", "b": map[string]any{"k": "v"}},
		"m3":    map[string]any{"a": "bad"},
		"plain": false,
	}

	first, _ := e.Validate(doc)
	if first == nil {
		t.Fatal("first validation failed")
	}

	second, diags := e.Validate(first.Document())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second validation changed the config:\n%#v\n%#v", first, second)
	}
	if len(diags) != 0 {
		t.Errorf("second validation reported:\n%s", messages(diags))
	}
}

func TestValidateNeverAddsOrMutates(t *testing.T) {
	e := New(loadedOf(
		&stubPlugin{name: "a", valid: isInt},
		&stubPlugin{name: "b"},
	), nil)

	doc := modes.Document{
		"m1": map[string]any{"a": int64(1), "b": []any{"x"}, "ghost": true},
		"m2": map[string]any{"a": "bad"},
		"m3": "scalar",
	}
	before := modes.Config{}
	for mode, value := range doc {
		if table, ok := value.(map[string]any); ok {
			before[mode] = table
		}
	}
	snapshot := before.Clone()

	cfg, _ := e.Validate(doc)

	for mode, plugins := range cfg {
		if _, ok := snapshot[mode]; !ok {
			t.Errorf("mode %q was added", mode)
		}
		for name, value := range plugins {
			orig, ok := snapshot[mode][name]
			if !ok {
				t.Errorf("plugin %q was added to %q", name, mode)
			}
			if !reflect.DeepEqual(orig, value) {
				t.Errorf("%s.%s changed from %v to %v", mode, name, orig, value)
			}
		}
	}

	cfg["m1"]["b"].([]any)[0] = "changed"
	if !reflect.DeepEqual(before, snapshot) {
		t.Error("the input document shares data with the result")
	}
}

func TestValidateFaultContainment(t *testing.T) {
	e := New(loadedOf(
		&stubPlugin{name: "crashy", panics: true},
		&stubPlugin{name: "erring", judgeErr: errors.New("no such device")},
		&stubPlugin{name: "fine"},
	), nil)

	cfg, diags := e.Validate(modes.Document{
		"m": map[string]any{"crashy": 1, "erring": 2, "fine": 3},
	})

	if want := (modes.Config{"m": {"fine": 3}}); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Validate() = %#v, want %#v", cfg, want)
	}

	count := map[string]int{}
	for _, d := range diags {
		if d.Origin == "" {
			t.Errorf("unattributed diagnostic %v", d)
		}
		count[d.Origin]++
	}
	// one fault warning and one removal warning each
	if count["crashy"] != 2 || count["erring"] != 2 {
		t.Errorf("unexpected diagnostics:\n%s", messages(diags))
	}
	if !strings.Contains(diags[0].Message, "integer divide by zero") {
		t.Errorf("panic trace missing the fault: %q", diags[0].Message)
	}
}

func TestValidateAttributesPluginWarnings(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "chatty", warnings: []diag.Diagnostic{diag.Warning("hello")}}), nil)

	_, diags := e.Validate(modes.Document{"m": map[string]any{"chatty": true}})

	if len(diags) != 1 || diags[0].Origin != "chatty" {
		t.Errorf("diagnostics:\n%s", messages(diags))
	}
}

func TestValidateLogsPasses(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, logging.LevelDebug, logging.FormatJSON)
	e := New(loadedOf(&stubPlugin{name: "real"}), logger)

	e.Validate(modes.Document{"m": map[string]any{"real": true}})

	for _, event := range []string{"engine.validate.pass", "engine.validate.judge", "engine.validate.done"} {
		if !strings.Contains(buf.String(), event) {
			t.Errorf("missing %s event in:\n%s", event, buf.String())
		}
	}
}

func TestApplyModePartialSuccess(t *testing.T) {
	a := &stubPlugin{name: "A", applyOK: true}
	b := &stubPlugin{name: "B", applyOK: false}
	e := New(loadedOf(a, b), nil)
	cfg := modes.Config{"m": {"A": int64(1), "B": int64(2)}}

	ok, diags := e.ApplyMode("m", cfg)

	if !ok {
		t.Fatalf("ApplyMode() = false:\n%s", messages(diags))
	}
	if len(diags) != 1 || diags[0].Origin != "B" || diags[0].IsFatal() {
		t.Errorf("expected one warning about B, got:\n%s", messages(diags))
	}
	if !reflect.DeepEqual(a.applied, []any{int64(1)}) || !reflect.DeepEqual(b.applied, []any{int64(2)}) {
		t.Errorf("applied values: A=%v B=%v", a.applied, b.applied)
	}
}

func TestApplyModeAllFail(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "A"}, &stubPlugin{name: "B", panics: true}), nil)

	ok, diags := e.ApplyMode("m", modes.Config{"m": {"A": 1, "B": 2}})

	if ok {
		t.Fatal("ApplyMode() = true")
	}
	// A: failure warning; B: panic warning and failure warning; then the fatal summary
	if len(diags) != 4 {
		t.Fatalf("unexpected diagnostics:\n%s", messages(diags))
	}
	last := diags[len(diags)-1]
	if !last.IsFatal() || last.Message != "All plugins failed to apply mode m" {
		t.Errorf("last diagnostic = %v", last)
	}
	for _, d := range diags[:len(diags)-1] {
		if d.IsFatal() || d.Origin == "" {
			t.Errorf("expected attributed warning, got %v", d)
		}
	}
}

func TestApplyModeUnknownMode(t *testing.T) {
	a := &stubPlugin{name: "A", applyOK: true}
	e := New(loadedOf(a), nil)

	ok, diags := e.ApplyMode("missing", modes.Config{"m": {"A": 1}})

	if ok || len(diags) != 1 || !diags[0].IsFatal() {
		t.Fatalf("ApplyMode() = %v, %v", ok, diags)
	}
	if diags[0].Message != "Powermode missing not in configuration file" {
		t.Errorf("unexpected message %q", diags[0].Message)
	}
	if len(a.applied) != 0 {
		t.Error("a plugin was applied for a missing mode")
	}
}

func TestApplyModeUnloadedPlugin(t *testing.T) {
	e := New(loadedOf(&stubPlugin{name: "A", applyOK: true}), nil)

	ok, diags := e.ApplyMode("m", modes.Config{"m": {"A": 1, "ghost": 2}})

	if !ok {
		t.Fatal("ApplyMode() = false")
	}
	if len(diags) != 1 || diags[0].Origin != "ghost" {
		t.Errorf("unexpected diagnostics:\n%s", messages(diags))
	}
}
