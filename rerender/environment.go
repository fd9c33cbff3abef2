package rerender

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aexvir/radioconda/conda"
	"github.com/aexvir/radioconda/platform"
)

// Environment is the content of a conda environment file.
type Environment struct {
	Name         string   `yaml:"name"`
	Channels     []string `yaml:"channels"`
	Platforms    []string `yaml:"platforms"`
	Dependencies []any    `yaml:"dependencies"`
}

// LoadEnvironment reads an environment file. When tag is not empty, line selectors
// are applied for that platform before parsing.
func LoadEnvironment(path, tag string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	content := string(data)
	if tag != "" {
		content, err = platform.FilterSelectors(content, tag)
		if err != nil {
			return nil, fmt.Errorf("failed to apply selectors to %s: %w", path, err)
		}
	}

	var env Environment
	if err := yaml.Unmarshal([]byte(content), &env); err != nil {
		return nil, fmt.Errorf("failed to parse environment file %s: %w", path, err)
	}

	return &env, nil
}

// Spec returns the specification of the environment for the given platform.
func (e *Environment) Spec(tag string) (conda.Spec, error) {
	specs := make([]string, 0, len(e.Dependencies))
	for _, dep := range e.Dependencies {
		spec, ok := dep.(string)
		if !ok {
			return conda.Spec{}, fmt.Errorf("unsupported dependency in %s: %v", e.Name, dep)
		}
		specs = append(specs, spec)
	}

	return conda.Spec{
		Specs:    specs,
		Channels: e.Channels,
		Platform: tag,
	}, nil
}
