package source

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText reduces markdown to readable prose. Block elements end with a
// blank line so headings stay on a line of their own; code and HTML are
// dropped.
func PlainText(markdown []byte) string {
	reader := text.NewReader(markdown)
	doc := goldmark.New().Parser().Parse(reader)

	var buf strings.Builder
	walk(doc, reader.Source(), &buf)
	return strings.TrimSpace(buf.String()) + "\n"
}

func walk(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			buf.WriteString("\n")
		case n.SoftLineBreak():
			buf.WriteString(" ")
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.AutoLink:
		buf.Write(n.Label(source))
		return

	case *ast.Image:
		// Alt text only.
		walkChildren(n, source, buf)
		return

	case *ast.Heading, *ast.Paragraph:
		walkChildren(n, source, buf)
		endBlock(buf)
		return

	case *ast.ListItem:
		walkChildren(n, source, buf)
		if !strings.HasSuffix(buf.String(), "\n") {
			buf.WriteString("\n")
		}
		return

	case *ast.List:
		walkChildren(n, source, buf)
		endBlock(buf)
		return

	case *ast.ThematicBreak:
		endBlock(buf)
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c, source, buf)
	}
}

// endBlock terminates the current block with a blank line.
func endBlock(buf *strings.Builder) {
	s := buf.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		buf.WriteString("\n")
	default:
		buf.WriteString("\n\n")
	}
}

const frontmatterFence = "---"

// RemoveFrontmatter strips a leading YAML front matter block.
func RemoveFrontmatter(content []byte) []byte {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte(frontmatterFence+"\n")) {
		return content
	}

	rest := content[len(frontmatterFence)+1:]
	end := bytes.Index(rest, []byte("\n"+frontmatterFence))
	if end < 0 {
		return content
	}
	rest = rest[end+1+len(frontmatterFence):]
	return bytes.TrimLeft(rest, "\n")
}
