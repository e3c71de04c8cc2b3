package render

import (
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(text(s))
	return n
}

func class(v string) html.Attribute { return html.Attribute{Key: "class", Val: v} }

// HTMLNode builds an <article> holding the rendered tree.
func HTMLNode(t Tree) *html.Node {
	article := element(atom.Article, class("answer"))
	if t.Title != "" {
		article.AppendChild(withText(element(atom.H1, class("answer-question")), t.Title))
	}
	for _, n := range t.Nodes {
		article.AppendChild(htmlNode(n))
	}
	return article
}

func htmlNode(n Node) *html.Node {
	switch n.Type {
	case NodeHeading:
		a := atom.H2
		if n.Level == 3 {
			a = atom.H3
		}
		return withText(element(a), n.Text)
	case NodeList:
		ul := element(atom.Ul)
		for _, it := range n.Items {
			ul.AppendChild(withText(element(atom.Li), it))
		}
		return ul
	case NodeCode:
		pre := element(atom.Pre)
		pre.AppendChild(withText(element(atom.Code), n.Text))
		return pre
	case NodeCallout:
		return withText(element(atom.Aside, class("callout")), n.Text)
	case NodeImage:
		return element(atom.Img,
			html.Attribute{Key: "src", Val: n.Src},
			html.Attribute{Key: "alt", Val: n.Label},
			html.Attribute{Key: "loading", Val: "lazy"},
		)
	case NodePlaceholder:
		return withText(element(atom.Div, class("image-placeholder")), n.Label)
	default:
		p := element(atom.P)
		for _, s := range n.Spans {
			if s.Emphasis {
				p.AppendChild(withText(element(atom.Strong), s.Text))
				continue
			}
			p.AppendChild(text(s.Text))
		}
		return p
	}
}

// HTML writes the tree as an HTML fragment.
func HTML(w io.Writer, t Tree) error {
	return html.Render(w, HTMLNode(t))
}

// Page writes a complete HTML document for the tree.
func Page(w io.Writer, t Tree) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element(atom.Html, html.Attribute{Key: "lang", Val: "en"})
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), t.Title))
	body := element(atom.Body, html.Attribute{Key: "data-blocks", Val: strconv.Itoa(len(t.Nodes))})
	body.AppendChild(HTMLNode(t))
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)
	return html.Render(w, doc)
}
