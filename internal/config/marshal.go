package config

import (
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//nolint:gochecknoglobals // type lookup
var durationType = reflect.TypeOf(time.Duration(0))

// MarshalYAML renders the configuration in field order with durations as
// strings such as "10s", the same form Load accepts.
func (c *Config) MarshalYAML() (any, error) {
	return structNode(reflect.ValueOf(*c))
}

// structNode builds a mapping node from the yaml-tagged fields of v.
func structNode(v reflect.Value) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		name, opts, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" || !field.IsExported() {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		fv := v.Field(i)
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}

		value, err := valueNode(fv)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			value,
		)
	}
	return node, nil
}

func valueNode(v reflect.Value) (*yaml.Node, error) {
	switch {
	case v.Type() == durationType:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: time.Duration(v.Int()).String()}, nil
	case v.Kind() == reflect.Struct:
		return structNode(v)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Struct:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i := range v.Len() {
			item, err := structNode(v.Index(i))
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, item)
		}
		return seq, nil
	}

	var node yaml.Node
	if err := node.Encode(v.Interface()); err != nil {
		return nil, err
	}
	return &node, nil
}
