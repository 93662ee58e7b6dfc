package document

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Timestamp layouts accepted for the !!timestamp tag, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalYAML builds the document from a yaml.v3 node tree, preserving
// mapping key insertion order.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalYAML renders the document as a block-style node tree with mapping
// keys in insertion order.
func (d *Document) MarshalYAML() (interface{}, error) {
	return d.toYAMLNode(), nil
}

func fromYAMLNode(node *yaml.Node) (*Document, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return NewNull(), nil
		}
		return fromYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := NewSequence()
		for _, item := range node.Content {
			val, err := fromYAMLNode(item)
			if err != nil {
				return nil, err
			}
			seq.Append(val)
		}
		return seq, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(node)
	default:
		return nil, fmt.Errorf("document: unsupported yaml node kind %d", node.Kind)
	}
}

func fromYAMLScalar(node *yaml.Node) (*Document, error) {
	switch node.Tag {
	case "!!null", "":
		return NewNull(), nil
	case "!!bool":
		v, err := strconv.ParseBool(node.Value)
		if err != nil {
			return NewString(node.Value), nil
		}
		return NewBool(v), nil
	case "!!int":
		v, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return NewString(node.Value), nil
		}
		return NewInt(v), nil
	case "!!float":
		switch strings.ToLower(node.Value) {
		case ".inf", "+.inf":
			return NewFloat(math.Inf(1)), nil
		case "-.inf":
			return NewFloat(math.Inf(-1)), nil
		case ".nan":
			return NewFloat(math.NaN()), nil
		}
		v, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return NewString(node.Value), nil
		}
		return NewFloat(v), nil
	case "!!timestamp":
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, node.Value); err == nil {
				return NewTime(t), nil
			}
		}
		return NewString(node.Value), nil
	case "!!binary":
		raw, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return nil, fmt.Errorf("document: invalid !!binary scalar: %w", err)
		}
		return NewBytes(raw), nil
	default:
		return NewString(node.Value), nil
	}
}

func (d *Document) toYAMLNode() *yaml.Node {
	switch d.kind {
	case Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range d.keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				d.vals[k].toYAMLNode())
		}
		return n
	case Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, v := range d.seq {
			n.Content = append(n.Content, v.toYAMLNode())
		}
		return n
	case String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.str}
	case Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(d.i, 10)}
	case Float:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(d.f)}
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(d.b)}
	case Bytes:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString(d.data),
		}
	case Time:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!timestamp",
			Value: d.t.Format(time.RFC3339),
		}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Keep the scalar resolvable as !!float on the way back in.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
