// Package markdown finds fenced code blocks in Markdown documents and
// parses their bodies with the grammar that matches the fence's info
// string.
package markdown

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/yaklabco/tmscope/pkg/region"
)

// Fence is a fenced code block.
type Fence struct {
	// Info is the full info string after the opening fence.
	Info string

	// Language is the first word of Info, lower-cased.
	Language string

	// Region is the body of the block in character offsets of the
	// Markdown document, from the first body line to the end of the last.
	Region region.Region

	// Text is the body exactly as it appears in the document, indentation
	// included, so that Region and Text line up.
	Text string

	// Line is the 1-based line of the opening fence.
	Line int
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// Fences returns the fenced code blocks of src in document order. Blocks
// with neither a body nor an info string are skipped.
func Fences(src []byte) []Fence {
	doc := newMarkdown().Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))

	var fences []Fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if f, ok := fenceOf(src, block); ok {
			fences = append(fences, f)
		}
		return ast.WalkSkipChildren, nil
	})
	return fences
}

func fenceOf(src []byte, block *ast.FencedCodeBlock) (Fence, bool) {
	var f Fence
	if block.Info != nil {
		f.Info = strings.TrimSpace(string(block.Info.Value(src)))
		f.Language = strings.ToLower(string(block.Language(src)))
	}

	lines := block.Lines()
	var begin, end int
	switch {
	case lines.Len() > 0:
		begin = lines.At(0).Start
		end = lines.At(lines.Len() - 1).Stop
		// The first segment of an indented block may start after the
		// indentation; take the whole line.
		begin = lineStart(src, begin)
	case block.Info != nil:
		// Empty body: it would start on the line after the info string.
		begin = nextLine(src, block.Info.Segment.Stop)
		end = begin
	default:
		return Fence{}, false
	}

	f.Text = string(src[begin:end])
	offset := utf8.RuneCount(src[:begin])
	f.Region = region.New(offset, offset+utf8.RuneCountInString(f.Text))
	f.Line = bytes.Count(src[:lineStart(src, begin)], []byte("\n"))
	return f, true
}

func lineStart(src []byte, pos int) int {
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

func nextLine(src []byte, pos int) int {
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}
