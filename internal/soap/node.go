package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Node is a namespace-agnostic view of an XML element. Names are local names
// with any prefix removed, so lookups work regardless of which prefixes a
// camera vendor chose.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Parse decodes an XML document into a Node tree and returns its root.
func Parse(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	var text []*strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if n.Attrs == nil {
					n.Attrs = make(map[string]string)
				}
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})

		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("invalid XML: unexpected </%s>", t.Name.Local)
			}
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		}
	}

	if root == nil {
		return nil, errors.New("invalid XML: no root element")
	}
	return root, nil
}

// Child returns the first child named name, or nil. It is safe to call on a
// nil Node so lookups can be chained.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Has reports whether a child named name exists.
func (n *Node) Has(name string) bool {
	return n.Child(name) != nil
}

// ChildrenNamed returns every child named name, in document order. Use it
// wherever a vendor may send one element or several.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Path walks a chain of first-match children.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// TextAt returns the text of the node at path, or "".
func (n *Node) TextAt(names ...string) string {
	return n.Path(names...).Value()
}

// Value returns the element's text content, or "" for a nil Node.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return n.Text
}

// Attr returns the attribute with the given local name, or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Fields splits a whitespace-separated list such as XAddrs or Scopes.
func Fields(s string) []string {
	return strings.Fields(s)
}
