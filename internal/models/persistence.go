package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrNoSave = errors.New("save not found")

// Store persists save files by slot name.
type Store interface {
	Save(ctx context.Context, slot string, sf *SaveFile) error
	Load(ctx context.Context, slot string) (*SaveFile, error)
	List(ctx context.Context) ([]SaveInfo, error)
}

// FileStore keeps each slot in its own directory under Dir as world.yaml plus
// a meta.yaml marker.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) Save(_ context.Context, slot string, sf *SaveFile) error {
	dir := filepath.Join(s.Dir, slot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	worldData, err := yaml.Marshal(sf)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "world.yaml"), worldData, 0644); err != nil {
		return err
	}

	metaData, err := yaml.Marshal(SaveInfo{Slot: slot, Version: sf.Version, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.yaml"), metaData, 0644)
}

func (s *FileStore) Load(_ context.Context, slot string) (*SaveFile, error) {
	sf, err := LoadWorldFile(filepath.Join(s.Dir, slot, "world.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", slot, ErrNoSave)
	}
	return sf, err
}

func (s *FileStore) List(_ context.Context) ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return []SaveInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// meta.yaml marks a complete save
		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name(), "meta.yaml"))
		if err != nil {
			continue
		}
		var info SaveInfo
		if err := yaml.Unmarshal(data, &info); err != nil {
			continue
		}
		info.Slot = entry.Name()
		saves = append(saves, info)
	}
	return saves, nil
}

// LoadWorldFile reads a save file or an authored world definition.
func LoadWorldFile(path string) (*SaveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sf, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return sf, nil
}

func ParseWorld(data []byte) (*SaveFile, error) {
	var sf SaveFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, err
	}
	if sf.Version == 0 {
		sf.Version = CurrentVersion
	}
	return &sf, nil
}
