package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is one record of the filter document.
//
//	- name: <filter_name>
//	  files:
//	    - <path regex>
//	  skip-if:
//	    all-files-match-any:
//	      - <path regex>
type Definition struct {
	Name   string            `yaml:"name"`
	Files  []string          `yaml:"files"`
	SkipIf *SkipIfDefinition `yaml:"skip-if,omitempty"`
}

// SkipIfDefinition is the skip-if block of a filter record.
type SkipIfDefinition struct {
	AllFilesMatchAny []string `yaml:"all-files-match-any,omitempty"`
}

// Set is an ordered collection of filters. It is not modified after loading.
type Set struct {
	Filters []*Filter
}

// Names returns the filter names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Filters))
	for _, f := range s.Filters {
		names = append(names, f.Name)
	}
	return names
}

// Compile compiles every pattern of every filter, stopping at the first error.
func (s *Set) Compile() error {
	for _, f := range s.Filters {
		if err := f.Compile(); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads and validates a filter document from disk.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter file: %w", err)
	}

	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("filter file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes and validates a filter document.
func Parse(data []byte) (*Set, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDefinition
		}
		return nil, fmt.Errorf("parse filter file: %w", err)
	}

	if len(doc.Content) == 0 || isNull(doc.Content[0]) {
		return nil, ErrEmptyDefinition
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, ErrNotAList
	}

	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("filter %d: line %d: expected a mapping", i, item.Line)
		}
		if isFilesTypeError(item) {
			return nil, fmt.Errorf("filter %d: %w: files is not a list", i, ErrMissingFiles)
		}
	}

	// Unknown keys are rejected so typos such as "skip_if" are not silently ignored.
	var defs []Definition
	strict := yaml.NewDecoder(bytes.NewReader(data))
	strict.KnownFields(true)
	if err := strict.Decode(&defs); err != nil {
		return nil, fmt.Errorf("parse filter file: %w", err)
	}

	return Build(defs)
}

// isFilesTypeError reports whether the files key holds something other than a list.
func isFilesTypeError(node *yaml.Node) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "files" {
			v := node.Content[i+1]
			return v.Kind != yaml.SequenceNode && !isNull(v)
		}
	}
	return false
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// Build validates definitions and turns them into a Set.
func Build(defs []Definition) (*Set, error) {
	set := &Set{Filters: make([]*Filter, 0, len(defs))}
	seen := make(map[string]string, len(defs))

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("filter %d: %w", i, ErrMissingName)
		}
		if len(def.Files) == 0 {
			return nil, fmt.Errorf("filter %d (%s): %w", i, def.Name, ErrMissingFiles)
		}

		skip := NoSkip
		if def.SkipIf != nil && def.SkipIf.AllFilesMatchAny != nil {
			skip = SkipIf(NewSkipRule(def.SkipIf.AllFilesMatchAny))
		}

		f := New(def.Name, def.Files, skip)
		if prev, ok := seen[f.Key()]; ok {
			return nil, fmt.Errorf("filter %d (%s): %w: conflicts with %s", i, def.Name, ErrDuplicateName, prev)
		}
		seen[f.Key()] = def.Name

		set.Filters = append(set.Filters, f)
	}

	return set, nil
}
