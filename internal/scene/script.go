package scene

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Branch names a step may declare sub-paths for.
const (
	BranchSubjectNotFound = "subject-not-found"
	BranchTargetNotFound  = "target-not-found"
	BranchTransferRefused = "transfer-refused"
)

// NullTarget as a transfer target means "no parent".
const NullTarget = "null"

// Script is an authored scene as read from yaml.
type Script struct {
	Steps []Descriptor `yaml:"steps"`
}

// Descriptor is one authored step. Exactly one of the kind fields is set.
type Descriptor struct {
	Text     *string        `yaml:"text,omitempty"`
	Delay    *Duration      `yaml:"delay,omitempty"`
	Choice   []OptionSpec   `yaml:"choice,omitempty"`
	Transfer *TransferSpec  `yaml:"transfer,omitempty"`
	State    *StateSpec     `yaml:"state,omitempty"`
	Spawn    *SpawnSpec     `yaml:"spawn,omitempty"`
	Unknown  map[string]any `yaml:",inline"`

	SubjectNotFound []Descriptor `yaml:"subject-not-found,omitempty"`
	TargetNotFound  []Descriptor `yaml:"target-not-found,omitempty"`
	TransferRefused []Descriptor `yaml:"transfer-refused,omitempty"`

	// set while decoding so a choice with zero options is still a choice
	hasChoice bool
}

type OptionSpec struct {
	Label   string         `yaml:"label"`
	Steps   []Descriptor   `yaml:"steps,omitempty"`
	Unknown map[string]any `yaml:",inline"`
}

type TransferSpec struct {
	Subject string `yaml:"subject"`
	Target  string `yaml:"target"`
}

type StateSpec struct {
	Subject string `yaml:"subject"`
	Key     string `yaml:"key"`
	Value   int    `yaml:"value"`
}

type SpawnSpec struct {
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
	Name   string `yaml:"name,omitempty"`
}

// Duration accepts Go duration strings ("1.5s") or a bare number of
// milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	type plain Descriptor
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Descriptor(p)
	if node.Kind == yaml.MappingNode {
		for i := 0; i < len(node.Content); i += 2 {
			if node.Content[i].Value == "choice" {
				d.hasChoice = true
			}
		}
	}
	return nil
}

// ParseScript decodes an authored scene.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
