package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToHTML converts the subtree rooted at n into an x/net/html tree so it can be
// rendered or handed to code that speaks the html package.
func ToHTML(n *Node) *html.Node {
	if n == nil {
		return nil
	}
	out := &html.Node{}
	switch n.Type {
	case DocumentNode:
		out.Type = html.DocumentNode
	case ElementNode:
		out.Type = html.ElementNode
		out.Data = n.Tag
		out.DataAtom = atom.Lookup([]byte(n.Tag))
		for _, attr := range n.attrs {
			out.Attr = append(out.Attr, html.Attribute{Key: attr.Name, Val: attr.Value})
		}
	case TextNode:
		out.Type = html.TextNode
		out.Data = n.Data
	case CommentNode:
		out.Type = html.CommentNode
		out.Data = n.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(ToHTML(c))
	}
	return out
}

// FromHTML converts an x/net/html subtree into a detached live tree. Doctype
// and unknown node kinds are skipped.
func FromHTML(h *html.Node) *Node {
	if h == nil {
		return nil
	}
	var out *Node
	switch h.Type {
	case html.DocumentNode:
		out = &Node{Type: DocumentNode}
	case html.ElementNode:
		out = CreateElement(h.Data)
		for _, attr := range h.Attr {
			name := attr.Key
			if attr.Namespace != "" {
				name = attr.Namespace + ":" + attr.Key
			}
			out.SetAttribute(name, attr.Val)
		}
	case html.TextNode:
		out = CreateText(h.Data)
	case html.CommentNode:
		out = CreateComment(h.Data)
	default:
		return nil
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if child := FromHTML(c); child != nil {
			out.AppendChild(child)
		}
	}
	return out
}

// Parse reads a markup fragment into detached live nodes, using a <body>
// element as the parsing context.
func Parse(r io.Reader) ([]*Node, error) {
	nodes, err := html.ParseFragment(r, &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(nodes))
	for _, h := range nodes {
		if node := FromHTML(h); node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

// Render writes n as HTML. Documents render their children only.
func Render(w io.Writer, n *Node) error {
	if n == nil {
		return nil
	}
	if n.Type == DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(w, ToHTML(c)); err != nil {
				return err
			}
		}
		return nil
	}
	return html.Render(w, ToHTML(n))
}

// OuterHTML renders n including its own tag.
func OuterHTML(n *Node) string {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(OuterHTML(c))
	}
	return b.String()
}
