package digest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/papercomputeco/frames/pkg/frame"
)

const topToolTypes = 5

// Render produces the text form of a deterministic digest. Sections appear
// in a fixed order and empty sections are left out.
func Render(f *frame.Frame, d *Deterministic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s (%s)\n", f.Name, f.Kind)
	fmt.Fprintf(&b, "Status: %s | Duration: %ss | Events: %d\n",
		d.ExitStatus,
		strconv.FormatFloat(d.DurationSeconds, 'f', -1, 64),
		d.EventCount,
	)

	if len(d.FilesModified) > 0 {
		section(&b, "Files Modified")
		for _, fc := range d.FilesModified {
			if fc.LinesChanged != nil {
				fmt.Fprintf(&b, "- %s (%s, %d lines)\n", fc.Path, fc.Operation, *fc.LinesChanged)
				continue
			}
			fmt.Fprintf(&b, "- %s (%s)\n", fc.Path, fc.Operation)
		}
	}

	if len(d.TestsRun) > 0 {
		passed, failed, skipped := d.TestCounts()
		section(&b, "Tests")
		fmt.Fprintf(&b, "%d passed, %d failed", passed, failed)
		if skipped > 0 {
			fmt.Fprintf(&b, ", %d skipped", skipped)
		}
		b.WriteString("\n")
	}

	if d.ToolCallCount > 0 {
		section(&b, "Tool Calls")
		fmt.Fprintf(&b, "%d calls: %s\n", d.ToolCallCount, topTools(d.ToolCallsByType))
	}

	list(&b, "Decisions", d.Decisions)
	list(&b, "Constraints", d.Constraints)
	list(&b, "Risks", d.Risks)

	if len(d.ErrorsEncountered) > 0 {
		section(&b, "Errors")
		for _, e := range d.ErrorsEncountered {
			line := e.Type
			if e.Message != "" {
				line += ": " + e.Message
			}
			if e.Count > 1 {
				line += fmt.Sprintf(" (x%d)", e.Count)
			}
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n### %s\n", title)
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	section(b, title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func topTools(byType map[string]int) string {
	type tally struct {
		name  string
		count int
	}
	tallies := make([]tally, 0, len(byType))
	for name, count := range byType {
		tallies = append(tallies, tally{name, count})
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].count != tallies[j].count {
			return tallies[i].count > tallies[j].count
		}
		return tallies[i].name < tallies[j].name
	})
	if len(tallies) > topToolTypes {
		tallies = tallies[:topToolTypes]
	}

	parts := make([]string, len(tallies))
	for i, t := range tallies {
		parts[i] = fmt.Sprintf("%s (%d)", t.name, t.count)
	}
	return strings.Join(parts, ", ")
}
