package richtext

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
	return p
}()

var blockTags = map[string]string{
	"paragraph":   "p",
	"blockquote":  "blockquote",
	"bulletList":  "ul",
	"orderedList": "ol",
	"listItem":    "li",
	"codeBlock":   "pre",
	"tableRow":    "tr",
	"tableCell":   "td",
	"tableHeader": "th",
	"table":       "table",
}

var markTags = map[string]string{
	"bold":      "strong",
	"italic":    "em",
	"strike":    "s",
	"underline": "u",
	"code":      "code",
}

// RenderHTML renders doc to sanitized HTML for read-only display.
func RenderHTML(doc Doc) string {
	var b strings.Builder
	renderNodes(&b, doc.Content)
	return htmlPolicy.Sanitize(b.String())
}

func renderNodes(b *strings.Builder, nodes []Doc) {
	for _, n := range nodes {
		renderNode(b, n)
	}
}

func renderNode(b *strings.Builder, n Doc) {
	switch n.Type {
	case "text":
		renderText(b, n)
	case "hardBreak":
		b.WriteString("<br/>")
	case "horizontalRule":
		b.WriteString("<hr/>")
	case "heading":
		level := 1
		if v, ok := n.Attrs["level"].(float64); ok && v >= 1 && v <= 6 {
			level = int(v)
		}
		fmt.Fprintf(b, "<h%d>", level)
		renderNodes(b, n.Content)
		fmt.Fprintf(b, "</h%d>", level)
	case "image":
		src, _ := n.Attrs["src"].(string)
		alt, _ := n.Attrs["alt"].(string)
		fmt.Fprintf(b, `<img src="%s" alt="%s"/>`, html.EscapeString(src), html.EscapeString(alt))
	default:
		tag, ok := blockTags[n.Type]
		if !ok {
			renderNodes(b, n.Content)
			return
		}
		fmt.Fprintf(b, "<%s>", tag)
		renderNodes(b, n.Content)
		fmt.Fprintf(b, "</%s>", tag)
	}
}

func renderText(b *strings.Builder, n Doc) {
	open := make([]string, 0, len(n.Marks))
	for _, m := range n.Marks {
		if m.Type == "link" {
			href, _ := m.Attrs["href"].(string)
			fmt.Fprintf(b, `<a href="%s">`, html.EscapeString(href))
			open = append(open, "a")
			continue
		}
		if tag, ok := markTags[m.Type]; ok {
			fmt.Fprintf(b, "<%s>", tag)
			open = append(open, tag)
		}
	}
	b.WriteString(html.EscapeString(n.Text))
	for i := len(open) - 1; i >= 0; i-- {
		fmt.Fprintf(b, "</%s>", open[i])
	}
}
