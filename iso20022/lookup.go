package iso20022

import "strings"

// Lookup resolves ElementTree-style relative paths ("PmtId/InstrId",
// ".//DtAndPlcOfBirth/BirthDt") against elements of a single namespace.
// A nil starting node or any unresolvable segment yields nil.
type Lookup struct {
	Namespace string
}

// Find returns the first element matching path below n, in document order.
func (l Lookup) Find(n *Node, path string) *Node {
	if n == nil {
		return nil
	}

	current := []*Node{n}
	descendant := false
	for _, step := range strings.Split(path, "/") {
		if step == "." {
			continue
		}
		if step == "" {
			descendant = true
			continue
		}

		var next []*Node
		for _, c := range current {
			if descendant {
				next = l.collectDescendants(c, step, next)
			} else {
				next = l.collectChildren(c, step, next)
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
		descendant = false
	}

	return current[0]
}

// FindAll returns every element matching a descendant search for local below n.
func (l Lookup) FindAll(n *Node, local string) []*Node {
	if n == nil {
		return nil
	}

	return l.collectDescendants(n, local, nil)
}

// Text returns the trimmed text of the element at path, or nil when the
// element is absent or its text is blank.
func (l Lookup) Text(n *Node, path string) *string {
	found := l.Find(n, path)
	if found == nil {
		return nil
	}

	text := strings.TrimSpace(found.Text)
	if text == "" {
		return nil
	}

	return &text
}

// Attr returns the trimmed value of attribute attr on the element at path.
func (l Lookup) Attr(n *Node, path, attr string) *string {
	found := l.Find(n, path)
	value, ok := found.Attr(attr)
	if !ok {
		return nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return &value
}

func (l Lookup) matches(n *Node, local string) bool {
	return n.Name.Local == local && n.Name.Space == l.Namespace
}

func (l Lookup) collectChildren(n *Node, local string, acc []*Node) []*Node {
	for _, c := range n.Children {
		if l.matches(c, local) {
			acc = append(acc, c)
		}
	}

	return acc
}

func (l Lookup) collectDescendants(n *Node, local string, acc []*Node) []*Node {
	for _, c := range n.Children {
		if l.matches(c, local) {
			acc = append(acc, c)
		}
		acc = l.collectDescendants(c, local, acc)
	}

	return acc
}
