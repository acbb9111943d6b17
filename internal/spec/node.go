package spec

import "gopkg.in/yaml.v3"

// Raw document access goes through yaml.Node rather than map[string]any so
// that definition, property, and path order survive parsing. Swagger
// documents are order-sensitive for reproducible output, and JSON input
// parses fine through the YAML decoder.

type nodeEntry struct {
	Key   string
	Value *yaml.Node
}

// resolveNode unwraps document wrappers and alias indirection.
func resolveNode(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func isMapping(n *yaml.Node) bool {
	n = resolveNode(n)
	return n != nil && n.Kind == yaml.MappingNode
}

// mappingEntries returns the key/value pairs of a mapping node in document
// order. Non-mapping nodes yield nil.
func mappingEntries(n *yaml.Node) []nodeEntry {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	entries := make([]nodeEntry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := resolveNode(n.Content[i])
		if key == nil || key.Kind != yaml.ScalarNode {
			continue
		}
		entries = append(entries, nodeEntry{Key: key.Value, Value: n.Content[i+1]})
	}
	return entries
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for _, e := range mappingEntries(n) {
		if e.Key == key {
			return resolveNode(e.Value)
		}
	}
	return nil
}

func scalarString(n *yaml.Node) (string, bool) {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

// scalarValue decodes a scalar into its natural Go value (string, int,
// float64, bool, or nil) so enum literals keep their document type.
func scalarValue(n *yaml.Node) (any, bool) {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return nil, false
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return n.Value, true
	}
	return v, true
}

// sequenceValues returns the element nodes of a sequence in document order.
func sequenceValues(n *yaml.Node) []*yaml.Node {
	n = resolveNode(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]*yaml.Node, 0, len(n.Content))
	for _, c := range n.Content {
		if r := resolveNode(c); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// stringList flattens a sequence of scalars, skipping anything else.
func stringList(n *yaml.Node) []string {
	var out []string
	for _, v := range sequenceValues(n) {
		if s, ok := scalarString(v); ok {
			out = append(out, s)
		}
	}
	return out
}
