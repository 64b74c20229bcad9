package rod

import (
	"strings"

	"golang.org/x/net/html"
)

const defaultMaxTextChars = 60_000

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true, "iframe": true,
	"link": true, "meta": true, "head": true, "title": true, "template": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true, "footer": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"form": true, "fieldset": true, "label": true, "main": true, "nav": true, "aside": true,
	"dt": true, "dd": true, "pre": true, "blockquote": true,
}

// PageText renders the visible text of an HTML document: one line per block,
// table cells separated by " | ", form values in brackets.
func PageText(rawHTML string, maxChars int) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	root := findBodyNode(doc)
	if root == nil {
		root = doc
	}

	var sb strings.Builder
	writeText(&sb, root)
	return truncateText(collapseLines(sb.String()), maxChars)
}

func findBodyNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBodyNode(c); b != nil {
			return b
		}
	}
	return nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		sb.WriteString(strings.Map(flattenSpace, n.Data))
		return
	case html.ElementNode:
		if skippedTags[n.Data] || hasAttr(n, "hidden") {
			return
		}
		switch n.Data {
		case "input", "textarea", "select":
			if v := formValue(n); v != "" {
				sb.WriteString(" [" + v + "] ")
			}
			if n.Data != "textarea" && n.Data != "select" {
				return
			}
		case "td", "th":
			sb.WriteString(" | ")
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

func flattenSpace(r rune) rune {
	switch r {
	case '\n', '\r', '\t', '\f':
		return ' '
	}
	return r
}

func formValue(n *html.Node) string {
	if v := attr(n, "value"); v != "" {
		return v
	}
	return attr(n, "placeholder")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		line = strings.Trim(line, "| ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateText(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n... (truncated)"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
