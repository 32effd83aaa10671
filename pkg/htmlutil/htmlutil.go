package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// GetText returns the concatenated text content of node, like the DOM's
// textContent.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, s)
}

// Normalize trims s and collapses inner whitespace runs into a single space.
func Normalize(s string) string {
	s = textWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(removeNonPrintable(s))
}

// ResolveUrl resolves ref against base, returning ref unchanged when either
// cannot be parsed.
func ResolveUrl(base, ref string) string {
	baseUrl, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refUrl, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseUrl.ResolveReference(refUrl).String()
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true,
	atom.Caption: true, atom.Dd: true, atom.Div: true, atom.Dl: true,
	atom.Dt: true, atom.Fieldset: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Header: true, atom.Hr: true, atom.Li: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Tbody: true, atom.Thead: true, atom.Tfoot: true,
	atom.Tr: true, atom.Ul: true,
}

var hiddenElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Template: true,
	atom.Noscript: true,
}

// InnerText approximates the rendered innerText of node:
//   - table rows render their cells separated by "\t",
//   - <br> and block level elements break lines,
//   - whitespace inside a line is collapsed and each line is trimmed,
//   - blank lines are dropped.
//
// A row whose cells are all blank renders as the empty string.
func InnerText(node *html.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == html.ElementNode && node.DataAtom == atom.Tr {
		return rowText(node)
	}
	return blockText(node)
}

func rowText(tr *html.Node) string {
	var cells []string
	blank := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		text := blockText(c)
		if text != "" {
			blank = false
		}
		cells = append(cells, text)
	}
	if blank {
		return ""
	}
	return strings.Join(cells, "\t")
}

func blockText(node *html.Node) string {
	var buffer strings.Builder
	writeInnerText(node, &buffer)

	lines := strings.Split(buffer.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		// tabs left at this point come from row cells, only spaces collapse
		line = spaceRun.ReplaceAllString(line, " ")
		line = strings.Trim(line, " ")
		if strings.Trim(line, "\t") == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

var spaceRun = regexp.MustCompile(` {2,}`)
var textWhitespace = regexp.MustCompile(`[\s\x{00a0}]+`)

func writeInnerText(node *html.Node, buffer *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		// whitespace in source text (including &nbsp;) is never a line
		// break or cell separator when rendered
		buffer.WriteString(removeNonPrintable(textWhitespace.ReplaceAllString(node.Data, " ")))
		return
	case html.ElementNode:
		if hiddenElements[node.DataAtom] {
			return
		}
		if node.DataAtom == atom.Br {
			buffer.WriteByte('\n')
			return
		}
		if node.DataAtom == atom.Tr {
			buffer.WriteByte('\n')
			buffer.WriteString(rowText(node))
			buffer.WriteByte('\n')
			return
		}
	}

	block := node.Type == html.ElementNode && blockElements[node.DataAtom]
	if block {
		buffer.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeInnerText(child, buffer)
	}
	if block {
		buffer.WriteByte('\n')
	}
}
