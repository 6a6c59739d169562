package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/wonny/delaycast/internal/contracts"
	"github.com/wonny/delaycast/internal/model"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// printHeader prints a titled block with aligned key/value rows
func printHeader(w io.Writer, title string, rows [][2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
	for _, r := range rows {
		fmt.Fprintf(w, "  %-10s: %s\n", r[0], r[1])
	}
	fmt.Fprintln(w, singleLine)
}

// printCandidates prints one row per candidate and marks the selected one
func printCandidates(w io.Writer, candidates []contracts.CandidateMetrics, selected string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tCANDIDATE\tACCURACY\tPRECISION\tRECALL\tF1\tPARAMS")
	for _, c := range candidates {
		mark := " "
		if c.Name == selected {
			mark = "*"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n",
			mark, c.Name, c.Accuracy, c.Precision, c.Recall, c.F1, formatParams(c.Params))
	}
	tw.Flush()
}

// printConfusion prints a 2x2 confusion matrix
func printConfusion(w io.Writer, c model.Confusion) {
	fmt.Fprintln(w, "  confusion    pred=0   pred=1")
	fmt.Fprintf(w, "    actual=0  %6d   %6d\n", c.TN, c.FP)
	fmt.Fprintf(w, "    actual=1  %6d   %6d\n", c.FN, c.TP)
}

func formatParams(p map[string]float64) string {
	if len(p) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return strings.Join(parts, " ")
}

// printSuccess prints a success message
func printSuccess(w io.Writer, message string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✅ %s\n", message)
}

// printWarning prints a warning message
func printWarning(w io.Writer, message string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "⚠️  %s\n", message)
}
