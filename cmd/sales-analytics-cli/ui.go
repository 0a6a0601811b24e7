// Package main provides UI utilities for the sales analytics CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// UI provides user-friendly output utilities.
type UI struct {
	out         io.Writer
	errOut      io.Writer
	noColor     bool
	jsonMode    bool
	interactive bool
}

// NewUI creates a new UI instance. Progress output is only drawn when
// interactive is set.
func NewUI(out, errOut io.Writer, jsonMode, noColor, interactive bool) *UI {
	return &UI{
		out:         out,
		errOut:      errOut,
		noColor:     noColor,
		jsonMode:    jsonMode,
		interactive: interactive && !jsonMode,
	}
}

func (ui *UI) print(w io.Writer, c color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if ui.noColor {
		fmt.Fprintf(w, "%s %s\n", symbol, msg)
		return
	}
	color.New(c).Fprintf(w, "%s %s\n", symbol, msg)
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.print(ui.out, color.FgGreen, "✓", format, args...)
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.print(ui.errOut, color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.print(ui.out, color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.print(ui.out, color.FgCyan, "ℹ", format, args...)
}

// Spin starts a spinner on stderr and returns its stop function.
func (ui *UI) Spin(message string) func() {
	if !ui.interactive {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	s.Start()
	return s.Stop
}

// Progress is a single batch progress bar.
type Progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// ProgressBar creates a progress bar over total items. The returned value is
// safe to use when progress output is disabled.
func (ui *UI) ProgressBar(name string, total int64) *Progress {
	if !ui.interactive {
		return &Progress{}
	}

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(ui.errOut))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
	return &Progress{p: p, bar: bar}
}

// Increment advances the bar by one.
func (p *Progress) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

// Wait flushes the bar.
func (p *Progress) Wait() {
	if p.p != nil {
		p.p.Wait()
	}
}

// Table prints a formatted table.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len([]rune(header))
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := len([]rune(cell)); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
	}

	border := func(left, mid, right string) {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			b.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				b.WriteString(mid)
			}
		}
		b.WriteString(right)
		if ui.noColor {
			fmt.Fprintln(ui.out, b.String())
			return
		}
		color.New(color.FgCyan, color.Bold).Fprintln(ui.out, b.String())
	}
	line := func(cells []string) {
		var b strings.Builder
		b.WriteString("│")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(&b, " %-*s │", w, cell)
		}
		fmt.Fprintln(ui.out, b.String())
	}

	border("┌", "┬", "┐")
	line(headers)
	border("├", "┼", "┤")
	for _, row := range rows {
		line(row)
	}
	border("└", "┴", "┘")
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
	if ui.noColor {
		fmt.Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	} else {
		color.New(color.FgMagenta, color.Bold).Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
	}
	fmt.Fprintln(ui.out)
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	if ui.noColor {
		fmt.Fprintf(ui.out, "  %s: %v\n", key, value)
		return
	}
	color.New(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// FormatBytes formats bytes in a human-readable way.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// IsTerminal checks if stderr is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
