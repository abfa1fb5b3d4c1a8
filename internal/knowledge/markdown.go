package knowledge

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

type passage struct {
	section string
	text    string
}

var parser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// passages walks the markdown AST and returns one passage per paragraph or
// list item, plus one per table body row rendered as "Header: value; ...".
// Code blocks and raw HTML are ignored.
func passages(src []byte) []passage {
	root := parser.Parse(text.NewReader(src))

	var (
		out     []passage
		section string
	)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			section = inlineText(node, src)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			if t := inlineText(node, src); t != "" {
				out = append(out, passage{section: section, text: t})
			}
			return ast.WalkSkipChildren, nil
		case *east.Table:
			for _, row := range tableRows(node, src) {
				out = append(out, passage{section: section, text: row})
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// tableRows flattens body rows into single-line facts keyed by header cells.
func tableRows(tbl *east.Table, src []byte) []string {
	var (
		header []string
		rows   []string
	)
	for c := tbl.FirstChild(); c != nil; c = c.NextSibling() {
		switch r := c.(type) {
		case *east.TableHeader:
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				header = append(header, inlineText(cell, src))
			}
		case *east.TableRow:
			parts := make([]string, 0, len(header))
			col := 0
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				v := inlineText(cell, src)
				if v != "" {
					if col < len(header) && header[col] != "" {
						parts = append(parts, header[col]+": "+v)
					} else {
						parts = append(parts, v)
					}
				}
				col++
			}
			if len(parts) > 0 {
				rows = append(rows, strings.Join(parts, "; "))
			}
		}
	}
	return rows
}

// inlineText concatenates the text leaves below n, turning line breaks into
// spaces.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
