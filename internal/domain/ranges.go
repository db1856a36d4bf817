package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Range is a closed interval [Min, Max] mapped to a key.
type Range struct {
	Key   string  `json:"key" yaml:"key"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Color string  `json:"color,omitempty" yaml:"color"`
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// RangeSet is an ordered list of ranges; lookups return the first match.
// Documents may write it either as a list or as an object keyed by range key,
// in which case document order is kept.
type RangeSet []Range

// Find returns the first range containing v.
func (rs RangeSet) Find(v float64) (Range, bool) {
	for _, r := range rs {
		if r.Contains(v) {
			return r, true
		}
	}
	return Range{}, false
}

type rangeBounds struct {
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Color string  `json:"color,omitempty" yaml:"color"`
}

func (rs *RangeSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*rs = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Range
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*rs = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ranges: expected object or array")
	}
	var out RangeSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var b rangeBounds
		if err := dec.Decode(&b); err != nil {
			return fmt.Errorf("ranges: %s: %w", key, err)
		}
		out = append(out, Range{Key: key, Min: b.Min, Max: b.Max, Color: b.Color})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*rs = out
	return nil
}

func (rs *RangeSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []Range
		if err := node.Decode(&list); err != nil {
			return err
		}
		*rs = list
		return nil
	case yaml.MappingNode:
		out := make(RangeSet, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			var b rangeBounds
			if err := node.Content[i+1].Decode(&b); err != nil {
				return fmt.Errorf("ranges: %s: %w", key, err)
			}
			out = append(out, Range{Key: key, Min: b.Min, Max: b.Max, Color: b.Color})
		}
		*rs = out
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*rs = nil
			return nil
		}
	}
	return fmt.Errorf("ranges: line %d: expected mapping or sequence", node.Line)
}

func (e *Expected) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Expected{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*e = list
	return nil
}

func (e *Expected) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = Expected{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*e = list
	return nil
}
