package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText flattens markdown to plain text so that markup does not leak
// into chunks and embeddings. Block boundaries become newlines; fenced code
// blocks keep their content verbatim.
func PlainText(markdown string) string {
	md := goldmark.New()
	reader := text.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(reader.Source()))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString(" ")
			}
		case *ast.FencedCodeBlock:
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			for i := 0; i < node.Lines().Len(); i++ {
				line := node.Lines().At(i)
				sb.Write(line.Value(reader.Source()))
			}
			return ast.WalkSkipChildren, nil
		default:
			if n.Type() == ast.TypeBlock && sb.Len() > 0 {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
