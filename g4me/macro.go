package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Command is one configuration key with its parameter string.
type Command struct {
	Key   string
	Value string
	Line  int
}

// ParseMacro reads a YAML sequence of key: value mappings, keeping the
// order in which the commands appear:
//
//   - /detector/enable: ABSO
//   - tracker.addLayer: 2 cm 50 cm 300 um
func ParseMacro(data []byte) ([]Command, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: macro must be a list of commands", root.Line)
	}

	var commands []Command
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: command must be a key: value mapping", item.Line)
		}
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, value := item.Content[i], item.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: value of %s must be a string", value.Line, key.Value)
			}
			commands = append(commands, Command{Key: key.Value, Value: value.Value, Line: key.Line})
		}
	}
	return commands, nil
}

func LoadMacro(filename string) ([]Command, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	commands, err := ParseMacro(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing macro %s: %w", filename, err)
	}
	return commands, nil
}
