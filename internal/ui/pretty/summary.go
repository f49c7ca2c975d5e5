package pretty

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yaklabco/tmscope/pkg/metrics"
	"github.com/yaklabco/tmscope/pkg/runner"
)

const (
	summaryDividerWidth = 40
	wordFile            = "file"
	wordFiles           = "files"
)

// FormatSummaryOneLine formats run statistics as a single line.
// Example: "12 files parsed (1.2 MB, 48,211 nodes) in 120ms, 1 failed".
func (s *Styles) FormatSummaryOneLine(stats runner.Stats, elapsed time.Duration) string {
	if stats.FilesProcessed == 0 && stats.FilesErrored == 0 {
		return s.Dim.Render("No files found") + "\n"
	}

	fileWord := wordFiles
	if stats.FilesProcessed == 1 {
		fileWord = wordFile
	}
	msg := s.Success.Render(fmt.Sprintf("%d %s parsed", stats.FilesProcessed, fileWord)) +
		s.Dim.Render(fmt.Sprintf(" (%s, %s nodes) in %s",
			humanize.Bytes(uint64(max(stats.Bytes, 0))),
			humanize.Comma(int64(stats.Nodes)),
			elapsed.Round(time.Millisecond)))

	if stats.FilesErrored > 0 {
		msg += ", " + s.Failure.Render(fmt.Sprintf("%d failed", stats.FilesErrored))
	}
	if stats.Unclosed > 0 {
		msg += ", " + s.Warning.Render(fmt.Sprintf("%d unclosed", stats.Unclosed))
	}
	return msg + "\n"
}

// FormatSummary formats run statistics as a summary block.
func (s *Styles) FormatSummary(stats runner.Stats, elapsed time.Duration) string {
	var builder strings.Builder

	builder.WriteString("\n")
	builder.WriteString(s.SummaryTitle.Render("Summary"))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("-", summaryDividerWidth))
	builder.WriteString("\n")

	builder.WriteString("  Files discovered:  " +
		s.SummaryValue.Render(strconv.Itoa(stats.FilesDiscovered)) + "\n")
	builder.WriteString("  Files parsed:      " +
		s.SummaryValue.Render(strconv.Itoa(stats.FilesProcessed)) + "\n")
	if stats.FilesErrored > 0 {
		builder.WriteString("  Files failed:      " +
			s.Failure.Render(strconv.Itoa(stats.FilesErrored)) + "\n")
	}
	builder.WriteString("  Size:              " +
		s.SummaryValue.Render(humanize.Bytes(uint64(max(stats.Bytes, 0)))) + "\n")
	builder.WriteString("  Characters:        " +
		s.SummaryValue.Render(humanize.Comma(int64(stats.Chars))) + "\n")
	builder.WriteString("  Nodes:             " +
		s.SummaryValue.Render(humanize.Comma(int64(stats.Nodes))) + "\n")
	if stats.Unclosed > 0 {
		builder.WriteString("  Unclosed blocks:   " +
			s.Warning.Render(strconv.Itoa(stats.Unclosed)) + "\n")
	}
	builder.WriteString("  Elapsed:           " +
		s.SummaryValue.Render(elapsed.Round(time.Millisecond).String()) + "\n")

	if len(stats.FilesByScope) > 0 {
		builder.WriteString("\n")
		scopes := make([]string, 0, len(stats.FilesByScope))
		for scope := range stats.FilesByScope {
			scopes = append(scopes, scope)
		}
		slices.Sort(scopes)
		for _, scope := range scopes {
			fmt.Fprintf(&builder, "    %s %d\n", s.ScopeName.Render(fmt.Sprintf("%-22s", scope)), stats.FilesByScope[scope])
		}
	}

	builder.WriteString("\n")
	if stats.FilesErrored > 0 {
		builder.WriteString(s.Failure.Render("Parse failed for some files"))
	} else {
		builder.WriteString(s.Success.Render("All files parsed"))
	}
	builder.WriteString("\n")

	return builder.String()
}

// FormatMetrics formats the engine counters of a run.
func (s *Styles) FormatMetrics(sum metrics.Summary) string {
	var builder strings.Builder
	builder.WriteString(s.SummaryTitle.Render("Engine"))
	builder.WriteString("\n")
	builder.WriteString("  Parses:            " + s.SummaryValue.Render(humanize.Comma(int64(sum.Parses))) + "\n")
	if sum.Updates > 0 {
		builder.WriteString("  Updates:           " + s.SummaryValue.Render(humanize.Comma(int64(sum.Updates))) + "\n")
	}
	if sum.Runaways > 0 {
		builder.WriteString("  Runaway grammars:  " + s.Failure.Render(strconv.Itoa(sum.Runaways)) + "\n")
	}
	fmt.Fprintf(&builder, "  Pattern cache:     %s hits, %s misses (%.1f%%)\n",
		humanize.Comma(int64(sum.CacheHits)), humanize.Comma(int64(sum.CacheMisses)), sum.HitRatio()*100)
	return builder.String()
}
