package iso20022

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is a parsed XML element with its namespace-resolved name.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Attr returns the value of the first attribute with the given local name.
func (n *Node) Attr(local string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}

	return "", false
}

// Parse builds a Node tree from raw XML. It fails on anything that is not a
// single well-formed document, including input truncated mid-element.
func Parse(data []byte) (*Node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var root *Node
	var stack []*Node
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name, Attrs: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errMultipleRoots
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, errTextOutsideRoot
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w, <%s> is never closed", errTruncated, stack[len(stack)-1].Name.Local)
	}
	if root == nil {
		return nil, errNoRoot
	}

	return root, nil
}
