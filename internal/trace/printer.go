package trace

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/eventsim/internal/engine"
)

var (
	kindStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	emitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CC66"))
	nextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

// Printer writes a debug report of every step.
//
// For each cycle it prints the stepped machine's kind, the state it ran, its
// variables, the events it emitted, the event it reacted to (if any) and the
// state it moves to. Emissions outside a step are printed as they happen.
type Printer struct {
	engine.NopObserver

	w       io.Writer
	plain   bool
	pending []engine.Event
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithPlain disables styling.
func WithPlain() PrinterOption {
	return func(p *Printer) {
		p.plain = true
	}
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{w: w}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

func (p *Printer) BeforeCycle(int64) {
	p.flush()
}

func (p *Printer) Emitted(ev engine.Event) {
	p.pending = append(p.pending, ev)
}

func (p *Printer) Stepped(rec engine.StepRecord) {
	fmt.Fprintln(p.w, p.render(kindStyle, rec.Kind))
	fmt.Fprintf(p.w, "%s %s\n", p.render(labelStyle, "State:"), rec.From)
	fmt.Fprintf(p.w, "%s %s\n", p.render(labelStyle, "Vars:"), engine.FormatVars(rec.Vars))
	p.flush()
	if rec.Reacted != nil {
		fmt.Fprintf(p.w, "%s %s\n", p.render(labelStyle, "Event:"), rec.Reacted)
	}
	fmt.Fprintln(p.w, p.render(nextStyle, "=> "+string(rec.To)))
	fmt.Fprintln(p.w)
}

func (p *Printer) flush() {
	for _, ev := range p.pending {
		fmt.Fprintf(p.w, "%s %s\n", p.render(emitStyle, "Emitting event:"), ev)
	}
	p.pending = p.pending[:0]
}
