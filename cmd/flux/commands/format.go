package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wonny/fluxrx/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일 (stdout 전용, 로그는 stderr)
// ═══════════════════════════════════════════════════════════

// RunHeader holds run metadata printed above every table
type RunHeader struct {
	Title      string
	RunID      string
	ConfigHash string
	Source     string
	Assets     int
}

// PrintRunHeader prints a formatted run header
func PrintRunHeader(w io.Writer, h RunHeader) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", h.Title)
	PrintSeparator(w)
	fmt.Fprintf(w, "  Run ID    : %s\n", h.RunID)
	fmt.Fprintf(w, "  Config    : %s\n", shortHash(h.ConfigHash))
	if h.Source != "" {
		fmt.Fprintf(w, "  Source    : %s\n", h.Source)
	}
	if h.Assets > 0 {
		fmt.Fprintf(w, "  Assets    : %d\n", h.Assets)
	}
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintExclusions lists assets dropped from a batch with their reason
func PrintExclusions(w io.Writer, excluded []contracts.Exclusion) {
	if len(excluded) == 0 {
		return
	}
	fmt.Fprintln(w)
	PrintWarning(w, fmt.Sprintf("%d asset(s) excluded", len(excluded)))
	for _, ex := range excluded {
		fmt.Fprintf(w, "   • %s (%s): %s\n", ex.Asset, ex.Kind, ex.Reason)
	}
}

// PrintJSON writes v as indented JSON
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatPercent renders a fraction as a percentage (n/a when undefined)
func formatPercent(s contracts.Scalar) string {
	v, ok := s.Value()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatRatio renders a ratio with 3 decimals (n/a when undefined)
func formatRatio(s contracts.Scalar) string {
	v, ok := s.Value()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
