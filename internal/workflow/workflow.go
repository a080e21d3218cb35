// Package workflow reads job names from a GitHub Actions workflow file.
package workflow

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmpty is returned for a workflow file without content.
	ErrEmpty = errors.New("workflow file is empty")
	// ErrNoJobs is returned when the workflow has no jobs section.
	ErrNoJobs = errors.New("workflow file has no jobs section")
	// ErrJobsNotAMapping is returned when jobs is not a mapping of job IDs.
	ErrJobsNotAMapping = errors.New("workflow jobs section is not a mapping")
)

// LoadJobs reads a workflow file and returns its job IDs in declaration order.
func LoadJobs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	jobs, err := Jobs(data)
	if err != nil {
		return nil, fmt.Errorf("workflow file %s: %w", path, err)
	}
	return jobs, nil
}

// Jobs returns the job IDs of a workflow document in declaration order.
func Jobs(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrEmpty
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, ErrEmpty
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrNoJobs
	}

	jobs := lookup(root, "jobs")
	if jobs == nil {
		return nil, ErrNoJobs
	}
	if jobs.Kind != yaml.MappingNode {
		return nil, ErrJobsNotAMapping
	}

	// Mapping content alternates key and value nodes.
	names := make([]string, 0, len(jobs.Content)/2)
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		names = append(names, jobs.Content[i].Value)
	}
	return names, nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
