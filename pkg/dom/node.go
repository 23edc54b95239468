package dom

import (
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType int

const (
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
)

func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Attribute is a single name/value pair on an element. Attribute order is
// preserved in insertion order.
type Attribute struct {
	Name  string
	Value string
}

// Node is a live tree node. The tree mirrors the parts of the browser DOM the
// engine relies on: parent and sibling links, ordered attributes, listeners,
// and connectivity to a document root. Nodes are not safe for concurrent use.
type Node struct {
	Type NodeType
	Tag  string
	Data string

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	attrs     []Attribute
	listeners map[string][]Listener
	ext       any
}

// NewDocument returns a document root holding a single <body> element.
func NewDocument() *Node {
	doc := &Node{Type: DocumentNode}
	doc.AppendChild(CreateElement("body"))
	return doc
}

// CreateElement allocates a detached element. Tag names are lower-cased.
func CreateElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: strings.ToLower(strings.TrimSpace(tag))}
}

// CreateText allocates a detached text node.
func CreateText(value string) *Node {
	return &Node{Type: TextNode, Data: value}
}

// CreateComment allocates a detached comment node.
func CreateComment(value string) *Node {
	return &Node{Type: CommentNode, Data: value}
}

// Body returns the first <body> element below a document, or nil.
func (n *Node) Body() *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if found != nil {
			return false
		}
		if node.Type == ElementNode && node.Tag == "body" {
			found = node
			return false
		}
		return true
	})
	return found
}

// AppendChild adds child as the last child of n, detaching it from any
// previous parent first.
func (n *Node) AppendChild(child *Node) {
	n.InsertBefore(child, nil)
}

// InsertBefore inserts child immediately before ref. A nil ref appends.
// It panics when ref is not a child of n or when the insertion would create a
// cycle, mirroring DOM HierarchyRequestError semantics.
func (n *Node) InsertBefore(child, ref *Node) {
	if child == nil {
		return
	}
	if ref != nil && ref.Parent != n {
		panic("dom: InsertBefore called with a reference node that is not a child")
	}
	if child.Contains(n) {
		panic("dom: InsertBefore would create a cycle")
	}
	if child == ref {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}

	child.Parent = n
	if ref == nil {
		child.PrevSibling = n.LastChild
		if n.LastChild != nil {
			n.LastChild.NextSibling = child
		} else {
			n.FirstChild = child
		}
		n.LastChild = child
		return
	}

	child.NextSibling = ref
	child.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = child
	} else {
		n.FirstChild = child
	}
	ref.PrevSibling = child
}

// RemoveChild detaches child from n. It panics when child is not a child of n.
func (n *Node) RemoveChild(child *Node) {
	if child == nil || child.Parent != n {
		panic("dom: RemoveChild called for a non-child node")
	}
	if child.PrevSibling != nil {
		child.PrevSibling.NextSibling = child.NextSibling
	} else {
		n.FirstChild = child.NextSibling
	}
	if child.NextSibling != nil {
		child.NextSibling.PrevSibling = child.PrevSibling
	} else {
		n.LastChild = child.PrevSibling
	}
	child.Parent = nil
	child.PrevSibling = nil
	child.NextSibling = nil
}

// Remove detaches n from its parent, if any.
func (n *Node) Remove() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveChildren detaches every child of n.
func (n *Node) RemoveChildren() {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// ChildNodes returns a snapshot of every child node.
func (n *Node) ChildNodes() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Children returns a snapshot of the element children.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for node := other; node != nil; node = node.Parent {
		if node == n {
			return true
		}
	}
	return false
}

// Root returns the top-most ancestor of n.
func (n *Node) Root() *Node {
	node := n
	for node.Parent != nil {
		node = node.Parent
	}
	return node
}

// IsConnected reports whether n is part of a document tree.
func (n *Node) IsConnected() bool {
	return n != nil && n.Root().Type == DocumentNode
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		c.Walk(fn)
		c = next
	}
}

// GetAttribute returns the attribute value and whether it is present.
func (n *Node) GetAttribute(name string) (string, bool) {
	for _, attr := range n.attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Attr returns the attribute value or an empty string.
func (n *Node) Attr(name string) string {
	value, _ := n.GetAttribute(name)
	return value
}

// HasAttribute reports whether the attribute is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.GetAttribute(name)
	return ok
}

// SetAttribute sets or replaces an attribute, keeping its original position.
func (n *Node) SetAttribute(name, value string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attribute{Name: name, Value: value})
}

// RemoveAttribute deletes an attribute when present.
func (n *Node) RemoveAttribute(name string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			return
		}
	}
}

// Attributes returns a copy of the attribute list.
func (n *Node) Attributes() []Attribute {
	if len(n.attrs) == 0 {
		return nil
	}
	return append([]Attribute(nil), n.attrs...)
}

// ID returns the id attribute.
func (n *Node) ID() string {
	return n.Attr("id")
}

// HasClass reports whether the class attribute contains name.
func (n *Node) HasClass(name string) bool {
	for _, class := range strings.Fields(n.Attr("class")) {
		if class == name {
			return true
		}
	}
	return false
}

// SetNodeValue replaces the content of a text or comment node.
func (n *Node) SetNodeValue(value string) {
	n.Data = value
}

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	n.Walk(func(node *Node) bool {
		if node.Type == TextNode {
			b.WriteString(node.Data)
		}
		return true
	})
	return b.String()
}

// SetExt attaches an engine-owned value to the node.
func (n *Node) SetExt(v any) {
	n.ext = v
}

// Ext returns the engine-owned value attached with SetExt.
func (n *Node) Ext() any {
	return n.ext
}
