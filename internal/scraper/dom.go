package scraper

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strip removes elements whose text is never content.
func strip(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Iframe:
				n.RemoveChild(c)
				c = next
				continue
			}
		}
		strip(c)
		c = next
	}
}

// findAll returns matching descendants of n in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// joinedText concatenates the text of every element of the given kind.
func joinedText(root *html.Node, a atom.Atom) string {
	var b strings.Builder
	for _, n := range findAll(root, is(a)) {
		b.WriteString(textOf(n))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func is(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.DataAtom == a }
}

func isHeading(n *html.Node) bool {
	return n.DataAtom == atom.H1 || n.DataAtom == atom.H2 || n.DataAtom == atom.H3
}

func isSection(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Section, atom.Article, atom.Main:
		return true
	case atom.Div:
		return hasClass(n, "row") || hasClass(n, "container")
	}
	return hasClass(n, "container")
}

func isListItem(n *html.Node) bool {
	if n.DataAtom != atom.Li || n.Parent == nil {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Ul || p.DataAtom == atom.Ol {
			return true
		}
	}
	return false
}

func metaDescription(root *html.Node) string {
	for _, m := range findAll(root, is(atom.Meta)) {
		if strings.EqualFold(attr(m, "name"), "description") {
			return attr(m, "content")
		}
	}
	return ""
}
