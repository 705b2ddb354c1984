package parser

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"policy-rag/internal/models"
)

// parseMarkdown splits a markdown file into sections at top-level headings
// (H1/H2) and maps each section to one logical page, so that page-scoped
// retrieval and page lookup keep working for markdown sources.
func parseMarkdown(filePath string) ([]models.PageText, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var sections []string
	var current strings.Builder

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			sections = append(sections, strings.TrimSpace(current.String()))
		}
		current.Reset()
	}

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if heading, ok := n.(*ast.Heading); ok && heading.Level <= 2 {
				flush()
				current.WriteString(headingText(heading, source) + "\n\n")
				return ast.WalkSkipChildren, nil
			}
			if textNode, ok := n.(*ast.Text); ok {
				current.Write(textNode.Segment.Value(source))
			}
		} else {
			if _, ok := n.(*ast.Paragraph); ok {
				current.WriteString("\n\n")
			}
			if _, ok := n.(*ast.Heading); ok {
				current.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	var pages []models.PageText
	for i, section := range sections {
		pages = append(pages, models.PageText{PageNumber: i + 1, Content: section})
	}
	return pages, nil
}

func headingText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
		}
	}
	return buf.String()
}
