package serialize

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads a structure declared as a YAML mapping. Key order is
// kept. Values are true or null (include), false (skipped), a mode name
// (include, pk, string, default) or a nested mapping.
//
//	title: true
//	author: pk
//	comments:
//	  body: true
//	  author: string
func ParseYAML(data []byte) (*Structure, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return Struct(), nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		root = root.Content[0]
	}
	return parseNode(root)
}

func parseNode(n *yaml.Node) (*Structure, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping", ErrInvalidRule, n.Line)
	}

	st := Struct()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}

		if val.Kind == yaml.MappingNode {
			nested, err := parseNode(val)
			if err != nil {
				return nil, err
			}
			st.Set(key.Value, nested)
			continue
		}
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidRule, val.Line, key.Value)
		}

		switch val.Tag {
		case "!!null":
			st.Set(key.Value, Include)
			continue
		case "!!bool":
			var include bool
			if err := val.Decode(&include); err != nil {
				return nil, err
			}
			if include {
				st.Set(key.Value, Include)
			}
			continue
		}

		mode, ok := modes[val.Value]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q: %q", ErrInvalidRule, val.Line, key.Value, val.Value)
		}
		st.Set(key.Value, mode)
	}
	return st, nil
}

var modes = map[string]Mode{
	"include": Include,
	"pk":      AsIdentifier,
	"id":      AsIdentifier,
	"string":  AsString,
	"str":     AsString,
	"default": AsRegistered,
}
