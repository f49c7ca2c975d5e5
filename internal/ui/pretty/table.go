package pretty

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/yaklabco/tmscope/pkg/grammar"
	"github.com/yaklabco/tmscope/pkg/runner"
)

// Table formatting constants.
const (
	tablePadding    = 2
	heavySeparator  = "="
	minColumnWidth  = 6
	failedMarker    = "error"
	unclosedMarker  = "unclosed"
	fileColumnIndex = 0
)

// TableFormatter formats rows as an aligned, styled table.
type TableFormatter struct {
	styles    *Styles
	termWidth int
}

// NewTableFormatter creates a TableFormatter fitting lines into termWidth
// columns.
func NewTableFormatter(styles *Styles, termWidth int) *TableFormatter {
	if termWidth <= 0 {
		termWidth = defaultTermWidth
	}
	return &TableFormatter{styles: styles, termWidth: termWidth}
}

// FormatFiles renders one row per processed file. Paths are shown relative
// to workDir when possible.
func (t *TableFormatter) FormatFiles(files []runner.FileOutcome, workDir string) string {
	header := []string{"FILE", "SCOPE", "CHARS", "NODES", "TIME", "STATUS"}
	rows := make([][]string, 0, len(files))
	styles := make([]lipgloss.Style, 0, len(files))
	for _, f := range files {
		path := f.Path
		if workDir != "" {
			if rel, err := filepath.Rel(workDir, f.Path); err == nil {
				path = rel
			}
		}
		status, style := "", t.styles.SummaryValue
		switch {
		case f.Error != nil:
			status, style = failedMarker+": "+f.Error.Error(), t.styles.Failure
		case f.Unclosed > 0:
			status, style = strconv.Itoa(f.Unclosed)+" "+unclosedMarker, t.styles.Warning
		}
		rows = append(rows, []string{
			path,
			f.Scope,
			humanize.Comma(int64(f.Chars)),
			humanize.Comma(int64(f.Nodes)),
			f.Duration.Round(time.Microsecond).String(),
			status,
		})
		styles = append(styles, style)
	}
	return t.render(header, rows, styles)
}

// FormatGrammars renders the registered grammars.
func (t *TableFormatter) FormatGrammars(entries []grammar.Entry) string {
	header := []string{"SCOPE", "NAME", "FILE TYPES"}
	rows := make([][]string, 0, len(entries))
	styles := make([]lipgloss.Style, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ScopeName, e.Name, strings.Join(e.FileTypes, ", ")})
		styles = append(styles, t.styles.ScopeName)
	}
	return t.render(header, rows, styles)
}

func (t *TableFormatter) render(header []string, rows [][]string, rowStyles []lipgloss.Style) string {
	widths := columnWidths(header, rows)
	t.fit(widths)

	var b strings.Builder
	t.writeRow(&b, header, widths, t.styles.TableHeader)
	total := 0
	for _, w := range widths {
		total += w + tablePadding
	}
	b.WriteString(t.styles.TableSeparator.Render(strings.Repeat(heavySeparator, min(total-tablePadding, t.termWidth))))
	b.WriteByte('\n')
	for i, row := range rows {
		t.writeRow(&b, row, widths, rowStyles[i])
	}
	return b.String()
}

func (t *TableFormatter) writeRow(b *strings.Builder, cells []string, widths []int, style lipgloss.Style) {
	var parts []string
	for i, cell := range cells {
		cell = truncate(cell, widths[i])
		if i < len(cells)-1 {
			cell += strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		if i == fileColumnIndex {
			parts = append(parts, t.styles.FilePath.Render(cell))
			continue
		}
		parts = append(parts, style.Render(cell))
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, strings.Repeat(" ", tablePadding)), " "))
	b.WriteByte('\n')
}

// fit shrinks the widest columns until the table fits the terminal.
func (t *TableFormatter) fit(widths []int) {
	total := 0
	for _, w := range widths {
		total += w + tablePadding
	}
	for total-tablePadding > t.termWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			return
		}
		widths[widest]--
		total--
	}
}

func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	return widths
}
