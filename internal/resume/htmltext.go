package resume

import (
	"strings"

	"golang.org/x/net/html"
)

// NormalizeText extracts visible text when the input looks like pasted
// HTML (job boards often copy with markup), otherwise returns the
// trimmed input as-is.
func NormalizeText(input string) string {
	trimmed := strings.TrimSpace(input)
	if !looksLikeHTML(trimmed) {
		return trimmed
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return trimmed
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func looksLikeHTML(s string) bool {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(s[open:], '>') > 0
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
