package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorMode selects when diagnostics are colored
type ColorMode string

const (
	// ColorAuto colors output only when it is a terminal
	ColorAuto ColorMode = "auto"
	// ColorAlways colors output unconditionally
	ColorAlways ColorMode = "always"
	// ColorNever disables colors
	ColorNever ColorMode = "never"
)

// Printer writes diagnostics for humans. Warnings are yellow and errors red when colors are on.
type Printer struct {
	out     io.Writer
	colored bool
	warning lipgloss.Style
	fatal   lipgloss.Style
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, mode ColorMode) *Printer {
	renderer := lipgloss.NewRenderer(out)
	colored := false

	switch mode {
	case ColorAlways:
		renderer.SetColorProfile(termenv.ANSI)
		colored = true
	case ColorNever:
		renderer.SetColorProfile(termenv.Ascii)
	default:
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			colored = true
		} else {
			renderer.SetColorProfile(termenv.Ascii)
		}
	}

	return &Printer{
		out:     out,
		colored: colored,
		warning: renderer.NewStyle().Foreground(lipgloss.Color("3")),
		fatal:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Format renders d the way Print writes it, without the trailing newline
func (p *Printer) Format(d Diagnostic) string {
	if !p.colored {
		return d.String()
	}

	style := p.warning
	if d.IsFatal() {
		style = p.fatal
	}
	// Only the header is styled: multi-line messages (fault traces) would get padded otherwise.
	return style.Render(d.header()) + " " + d.Message
}

// Print writes one diagnostic followed by a newline
func (p *Printer) Print(d Diagnostic) {
	if _, err := fmt.Fprintln(p.out, p.Format(d)); err != nil && p.out != os.Stderr {
		fmt.Fprintf(os.Stderr, "Failed to print diagnostic: %v\n", err)
	}
}

// PrintAll writes every diagnostic in order
func (p *Printer) PrintAll(diags List) {
	for _, d := range diags {
		p.Print(d)
	}
}

// Handle prints diags and reports whether the caller must treat the operation as failed:
// the operation produced no result (ok is false) and at least one diagnostic is fatal.
func (p *Printer) Handle(ok bool, diags List) bool {
	p.PrintAll(diags)
	return !ok && diags.HasFatal()
}
