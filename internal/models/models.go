package models

import "time"

// CurrentVersion is written into every save file.
const CurrentVersion = 1

// SaveFile is the serialized world: the root's children, recursively.
type SaveFile struct {
	Version  int            `yaml:"version"`
	Entities []EntityRecord `yaml:"entities"`
}

// EntityRecord mirrors one entity and its subtree.
type EntityRecord struct {
	Kind        string            `yaml:"kind"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Gender      string            `yaml:"gender,omitempty"` // "m", "f" or "n"
	Immovable   *bool             `yaml:"immovable,omitempty"`
	States      map[string]int    `yaml:"states,omitempty"`
	Connections []string          `yaml:"connections,omitempty"` // places only, by name
	Extra       map[string]string `yaml:"extra,omitempty"`       // kind-specific data
	Children    []EntityRecord    `yaml:"children,omitempty"`
}

// SaveInfo describes one save slot.
type SaveInfo struct {
	Slot    string    `yaml:"slot"`
	Version int       `yaml:"version"`
	SavedAt time.Time `yaml:"saved_at"`
}
