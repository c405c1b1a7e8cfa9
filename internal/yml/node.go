package yml

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	Node yaml.Node
)

// Root unwraps a document node.
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// Lookup returns the value of a mapping key (case-insensitive), or nil.
func (n *Node) Lookup(name string) *Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if strings.EqualFold(n.Content[i].Value, name) {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

func (n *Node) Items(callback func(index int, node *Node) error) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a sequence", n.Line)
	}
	for i := 0; i < len(n.Content); i++ {
		if err := callback(i, (*Node)(n.Content[i])); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Text returns a scalar value.
func (n *Node) Text() (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	return n.Value, nil
}

// Int returns an integer scalar.
func (n *Node) Int() (int, error) {
	text, err := n.Text()
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("line %d: expected an integer, got %q", n.Line, text)
	}
	return value, nil
}

func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			flag, _ := strconv.ParseBool(n.Value)
			return flag
		case "!!null":
			return nil
		case "!!float":
			value, _ := strconv.ParseFloat(n.Value, 64)
			return value
		case "!!int":
			value, _ := strconv.Atoi(n.Value)
			return value
		default:
			return n.Value
		}
	case yaml.MappingNode:
		var aMap = make(map[string]interface{})
		for i := 0; i+1 < len(n.Content); i += 2 {
			aMap[n.Content[i].Value] = (*Node)(n.Content[i+1]).Interface()
		}
		return aMap
	case yaml.SequenceNode:
		var aSlice = make([]interface{}, 0, len(n.Content))
		for i := 0; i < len(n.Content); i++ {
			aSlice = append(aSlice, (*Node)(n.Content[i]).Interface())
		}
		return aSlice
	case yaml.DocumentNode:
		return n.Root().Interface()
	}
	return nil
}
