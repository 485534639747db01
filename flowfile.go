package toolflow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FlowFile is the on-disk YAML form of a flow definition.
type FlowFile struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Type        string     `yaml:"type"`
	Steps       []FlowStep `yaml:"-"`
}

type flowFileStep struct {
	Tool       string         `yaml:"tool"`
	Parameters map[string]any `yaml:"parameters,omitempty"`
	Condition  string         `yaml:"condition,omitempty"`
	MaxRetries int            `yaml:"max_retries,omitempty"`
	RetryDelay string         `yaml:"retry_delay,omitempty"`
}

// UnmarshalYAML decodes the file form, converting retry delays from duration
// strings ("500ms", "2s") into time.Duration.
func (f *FlowFile) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		Type        string         `yaml:"type"`
		Steps       []flowFileStep `yaml:"steps"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.Description = raw.Description
	f.Type = raw.Type

	f.Steps = make([]FlowStep, 0, len(raw.Steps))
	for i, s := range raw.Steps {
		step := FlowStep{
			ToolName:   s.Tool,
			Parameters: s.Parameters,
			Condition:  s.Condition,
			MaxRetries: s.MaxRetries,
		}
		if s.RetryDelay != "" {
			d, err := time.ParseDuration(s.RetryDelay)
			if err != nil {
				return fmt.Errorf("step %d: retry_delay: %w", i, err)
			}
			step.RetryDelay = d
		}
		f.Steps = append(f.Steps, step)
	}
	return nil
}

// FlowType returns the parsed flow type of the file.
func (f *FlowFile) FlowType() (FlowType, error) {
	return ParseFlowType(f.Type)
}

// ParseFlowFile decodes and validates a YAML flow definition.
func ParseFlowFile(data []byte) (*FlowFile, error) {
	var f FlowFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing flow file: %w", err)
	}
	if _, err := f.FlowType(); err != nil {
		return nil, err
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("flow %q: %w", f.Name, ErrNoSteps)
	}
	for i, s := range f.Steps {
		if s.ToolName == "" {
			return nil, fmt.Errorf("flow %q: step %d has no tool", f.Name, i)
		}
	}
	return &f, nil
}

// LoadFlowFile reads and parses a YAML flow definition from disk.
func LoadFlowFile(path string) (*FlowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFlowFile(data)
}
