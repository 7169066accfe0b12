// Package resources holds the localised string tables the game text is built
// from. Text anywhere in the game may embed ${dotted.key} references that
// Decode expands.
package resources

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingKey  = errors.New("missing resource string")
	ErrNotAList    = errors.New("resource is not a list")
	ErrExpansion   = errors.New("resource expansion does not terminate")
	ErrNoLanguages = errors.New("no string tables found")
)

// maxExpansions bounds Decode so self-referencing strings fail instead of
// looping.
const maxExpansions = 256

// Table is one language's strings, flattened to dotted keys.
type Table struct {
	Language language.Tag
	strings  map[string]string
	lists    map[string][]string
}

// Parse flattens a yaml string table. Nested mappings become dotted keys;
// sequences of scalars are kept as lists.
func Parse(tag language.Tag, data []byte) (*Table, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	t := &Table{
		Language: tag,
		strings:  make(map[string]string),
		lists:    make(map[string][]string),
	}
	if err := t.flatten("", root); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) flatten(prefix string, m map[string]any) error {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			if err := t.flatten(key, v); err != nil {
				return err
			}
		case []any:
			list := make([]string, 0, len(v))
			for _, item := range v {
				list = append(list, fmt.Sprint(item))
			}
			t.lists[key] = list
		case nil:
			t.strings[key] = ""
		default:
			t.strings[key] = fmt.Sprint(v)
		}
	}
	return nil
}

// Load picks the string table in dir that best matches want. Tables are named
// strings.<bcp47>.yaml; the first one in name order is the fallback.
func Load(fsys fs.FS, dir, want string) (*Table, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	files := map[language.Tag]string{}
	var tags []language.Tag
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "strings.") || path.Ext(name) != ".yaml" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		code := strings.TrimSuffix(strings.TrimPrefix(name, "strings."), ".yaml")
		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("string table %s: %w", name, err)
		}
		files[tag] = name
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoLanguages)
	}

	chosen := tags[0]
	if want != "" {
		desired, err := language.Parse(want)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", want, err)
		}
		_, idx, _ := language.NewMatcher(tags).Match(desired)
		chosen = tags[idx]
	}

	data, err := fs.ReadFile(fsys, path.Join(dir, files[chosen]))
	if err != nil {
		return nil, err
	}
	t, err := Parse(chosen, data)
	if err != nil {
		return nil, fmt.Errorf("string table %s: %w", files[chosen], err)
	}
	return t, nil
}

// Lookup returns the raw string stored under key.
func (t *Table) Lookup(key string) (string, error) {
	s, ok := t.strings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return s, nil
}

// MustLookup is Lookup for keys the engine itself depends on. A missing key
// yields the reference unexpanded.
func (t *Table) MustLookup(key string) string {
	s, err := t.Lookup(key)
	if err != nil {
		return "${" + key + "}"
	}
	return s
}

// List returns the list stored under key.
func (t *Table) List(key string) ([]string, error) {
	l, ok := t.lists[key]
	if !ok {
		if _, isString := t.strings[key]; isString {
			return nil, fmt.Errorf("%w: %s", ErrNotAList, key)
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return l, nil
}

// Decode expands every ${key} in text. Expanded strings are scanned again, so
// resources may reference each other.
func (t *Table) Decode(text string) (string, error) {
	for n := 0; ; n++ {
		start := strings.Index(text, "${")
		if start < 0 {
			return text, nil
		}
		end := strings.Index(text[start:], "}")
		if end < 0 {
			return text, nil
		}
		if n == maxExpansions {
			return "", fmt.Errorf("%w: %q", ErrExpansion, text)
		}
		end += start
		s, err := t.Lookup(text[start+2 : end])
		if err != nil {
			return "", err
		}
		text = text[:start] + s + text[end+1:]
	}
}

// Keys returns every string key in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.strings))
	for k := range t.strings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
