// Package response implements the response-size governance core: field
// selection, verbosity projection, envelope building, and overflow handle
// storage. Every tool funnels its result through this package before it
// reaches the MCP transport.
package response

import "strings"

// fieldNode is one level of the parsed field-selection tree. A spec like
// "jnid,primary.name,tags[].color" merges into a single tree so overlapping
// paths project together.
type fieldNode struct {
	children map[string]*fieldNode
	array    bool // segment written as "name[]": project each array element
	leaf     bool // path ends here: keep the whole subtree
}

// ParseFields parses a comma-separated field spec into a selection tree.
// Supported forms: plain names ("jnid"), dotted paths ("primary.name"),
// and array projection ("tags[].color", nestable). Returns nil for an
// empty spec, meaning "no explicit selection".
func ParseFields(spec string) *fieldNode {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}

	root := &fieldNode{children: map[string]*fieldNode{}}
	for _, path := range strings.Split(spec, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		node := root
		segments := strings.Split(path, ".")
		for i, seg := range segments {
			seg = strings.TrimSpace(seg)
			isArray := strings.HasSuffix(seg, "[]")
			if isArray {
				seg = strings.TrimSuffix(seg, "[]")
			}
			if seg == "" {
				break
			}
			child, ok := node.children[seg]
			if !ok {
				child = &fieldNode{children: map[string]*fieldNode{}}
				node.children[seg] = child
			}
			if isArray {
				child.array = true
			}
			if i == len(segments)-1 {
				child.leaf = true
			}
			node = child
		}
	}

	if len(root.children) == 0 {
		return nil
	}
	return root
}

// topLevelCount returns the number of top-level fields the tree selects.
func (n *fieldNode) topLevelCount() int {
	if n == nil {
		return 0
	}
	return len(n.children)
}

// applyFields projects value through the selection tree. A requested path
// missing from the source is silently omitted; array projection against a
// non-array is treated as no-match. Never returns an error.
func applyFields(value any, node *fieldNode) (any, bool) {
	if node == nil {
		return value, true
	}
	if node.leaf && len(node.children) == 0 {
		return value, true
	}

	record, ok := value.(map[string]any)
	if !ok {
		// A deeper selection against a scalar: keep it only if this node
		// was itself requested as a leaf.
		if node.leaf {
			return value, true
		}
		return nil, false
	}

	out := make(map[string]any, len(node.children))
	for name, child := range node.children {
		source, present := record[name]
		if !present {
			continue
		}

		if child.array {
			elements, isArray := source.([]any)
			if !isArray {
				continue
			}
			projected := make([]any, 0, len(elements))
			for _, element := range elements {
				if v, kept := applyFields(element, childForElements(child)); kept {
					projected = append(projected, v)
				}
			}
			out[name] = projected
			continue
		}

		if v, kept := applyFields(source, child); kept {
			out[name] = v
		}
	}
	return out, true
}

// childForElements strips the array marker so element projection descends
// into the child's sub-selection ("tags[].color" keeps color per element;
// bare "tags[]" keeps whole elements).
func childForElements(n *fieldNode) *fieldNode {
	if len(n.children) == 0 {
		return nil // bare array projection: keep the element as-is
	}
	return &fieldNode{children: n.children, leaf: n.leaf && len(n.children) == 0}
}
