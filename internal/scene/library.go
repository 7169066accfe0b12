package scene

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Library holds compiled scenes by name.
type Library struct {
	graphs map[string]*Graph
}

func NewLibrary() *Library {
	return &Library{graphs: make(map[string]*Graph)}
}

// LoadLibrary compiles every .yaml file below dir in fsys. A scene's name is
// its path relative to dir without the extension, e.g. "gerrit/no-find".
// Any compile error aborts the load.
func LoadLibrary(fsys fs.FS, dir string) (*Library, error) {
	lib := NewLibrary()
	err := fs.WalkDir(fsys, dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		script, err := ParseScript(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, dir+"/"), ".yaml")
		return lib.Add(name, script)
	})
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// Add compiles script and stores it under name.
func (l *Library) Add(name string, script *Script) error {
	g, err := Compile(name, script)
	if err != nil {
		return err
	}
	l.graphs[name] = g
	return nil
}

func (l *Library) Get(name string) (*Graph, bool) {
	g, ok := l.graphs[name]
	return g, ok
}

func (l *Library) Names() []string {
	names := make([]string, 0, len(l.graphs))
	for n := range l.graphs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
