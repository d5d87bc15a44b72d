// Package xmltree parses an XML document into a generic element tree.
//
// The tree keeps what a TDM schema walk needs and nothing else: element
// names with their namespace, attributes in document order, child elements
// in document order, and the character data directly inside each element.
// Unknown elements and attributes are retained as opaque nodes, so forward
// compatible metadata extensions survive a parse untouched.
//
// Parsing is pure: no I/O beyond draining the supplied reader, no global
// state. A stream that is not well-formed XML fails with
// errs.ErrMalformedMetadata.
package xmltree

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/tdm/errs"
)

// Attr is a single attribute on an element. Attrs preserve document order.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the parsed tree.
type Node struct {
	// Name is the element's local name with any namespace prefix stripped.
	Name string
	// Space is the element's namespace URI, empty when unqualified.
	Space string
	// Attrs holds the element's attributes in document order.
	Attrs []Attr
	// Children holds the element's child elements in document order.
	Children []*Node
	// Text is the concatenated character data directly inside the element,
	// excluding text nested in child elements.
	Text string
}

// Parse reads a decoded XML text stream and returns the root element.
//
// Returns errs.ErrMalformedMetadata when the stream is not well-formed XML
// or contains no root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrMalformedMetadata, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{
				Name:  t.Name.Local,
				Space: t.Name.Space,
				Attrs: make([]Attr, 0, len(t.Attr)),
			}
			for _, a := range t.Attr {
				// xmlns declarations are namespace plumbing, not metadata.
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attrs = append(node.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", errs.ErrMalformedMetadata)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unbalanced end element </%s>", errs.ErrMalformedMetadata, t.Name.Local)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", errs.ErrMalformedMetadata)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unclosed element <%s>", errs.ErrMalformedMetadata, stack[len(stack)-1].Name)
	}

	return root, nil
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// AttrOr returns the value of the named attribute, or def when absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}

	return def
}

// Child returns the first child element with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// ChildList returns every child element with the given local name, in
// document order.
func (n *Node) ChildList(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}

	return out
}

// ChildText returns the trimmed text of the first child with the given name,
// or an empty string when the child is absent.
func (n *Node) ChildText(name string) string {
	c := n.Child(name)
	if c == nil {
		return ""
	}

	return strings.TrimSpace(c.Text)
}

// Descendants returns every element with the given local name in the subtree
// rooted at n, in document order. n itself is not considered.
func (n *Node) Descendants(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.Descendants(name)...)
	}

	return out
}

// TrimmedText returns the element's character data with surrounding
// whitespace removed.
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}

// RequireChild returns the first child element with the given name, failing
// with errs.ErrMalformedMetadata when it is absent.
func (n *Node) RequireChild(name string) (*Node, error) {
	c := n.Child(name)
	if c == nil {
		return nil, fmt.Errorf("%w: element <%s> is missing required child <%s>", errs.ErrMalformedMetadata, n.Name, name)
	}

	return c, nil
}

// RequireAttr returns the value of the named attribute, failing with
// errs.ErrMalformedMetadata when it is absent.
func (n *Node) RequireAttr(name string) (string, error) {
	v, ok := n.Attr(name)
	if !ok {
		return "", fmt.Errorf("%w: element <%s> is missing required attribute %q", errs.ErrMalformedMetadata, n.Name, name)
	}

	return v, nil
}
