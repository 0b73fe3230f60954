package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/msalah0e/causa/internal/causal"
)

// Brand colors
var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

const Mark = "\u25C8" // ◈

// SetColor turns coloured output on or off globally.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// Banner prints the causa banner.
func Banner(subtitle string) {
	fmt.Printf("%s %s — %s\n\n", Mark, Brand.Sprint("causa"), subtitle)
}

// TreeStyle returns the palette as colour functions for tree rendering.
func TreeStyle() causal.Style {
	return causal.Style{
		Brand:  sprint(Brand),
		Subtle: sprint(Subtle),
		Info:   sprint(Info),
		Warn:   sprint(Warn),
	}
}

func sprint(c *color.Color) func(string) string {
	return func(s string) string { return c.Sprint(s) }
}

// Table prints a simple aligned table.
func Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	Subtle.Println(headerLine)
	Subtle.Println(sepLine)

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Println(line)
	}
}

// StatusIcon returns a status icon string.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a warning icon.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
