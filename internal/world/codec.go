package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/models"
)

// NameDecoder resolves resource references embedded in authored names. A nil
// decoder keeps names as written.
type NameDecoder func(string) (string, error)

// Snapshot serializes every entity below the root.
func (w *World) Snapshot() *models.SaveFile {
	sf := &models.SaveFile{Version: models.CurrentVersion}
	for _, c := range w.Children(w.Root()) {
		sf.Entities = append(sf.Entities, w.Encode(c))
	}
	return sf
}

// Encode serializes h and its subtree. Kind Save hooks run last and may add to
// the record.
func (w *World) Encode(h Handle) models.EntityRecord {
	e, ok := w.Get(h)
	if !ok {
		return models.EntityRecord{}
	}
	rec := models.EntityRecord{
		Kind:        e.Kind,
		Name:        e.name,
		Description: e.Description,
		Gender:      e.Gender.String(),
	}
	b := w.Behavior(h)
	if e.Immovable != b.Immovable {
		immovable := e.Immovable
		rec.Immovable = &immovable
	}
	if len(e.States) > 0 {
		rec.States = make(map[string]int, len(e.States))
		for k, v := range e.States {
			rec.States[k] = v
		}
	}
	for _, c := range w.Connections(h) {
		rec.Connections = append(rec.Connections, w.Name(c))
	}
	for _, c := range e.children {
		rec.Children = append(rec.Children, w.Encode(c))
	}
	if b.Save != nil {
		b.Save(w, h, &rec)
	}
	return rec
}

// Restore rebuilds the entities of sf under the root, then builds every
// place's declared connections. On error the world is valid but may hold part
// of the save.
func (w *World) Restore(sf *models.SaveFile, decode NameDecoder) error {
	for i := range sf.Entities {
		if _, err := w.Decode(w.Root(), &sf.Entities[i], decode); err != nil {
			return err
		}
	}
	if err := w.BuildAllConnections(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	w.log.Info("world restored", zap.Int("entities", w.count()))
	return nil
}

// Decode creates the entity described by rec, and its subtree, under parent.
// Connections are only declared; BuildDeclaredConnections resolves them.
func (w *World) Decode(parent Handle, rec *models.EntityRecord, decode NameDecoder) (Handle, error) {
	h, err := w.Create(rec.Kind, parent)
	if err != nil {
		return 0, fmt.Errorf("restore %q: %w", rec.Name, err)
	}
	e, _ := w.Get(h)

	name := rec.Name
	if decode != nil {
		if name, err = decode(rec.Name); err != nil {
			return h, fmt.Errorf("restore %q: %w", rec.Name, err)
		}
	}
	if name != "" {
		w.SetName(h, name)
	}
	if rec.Description != "" {
		e.Description = rec.Description
	}
	if rec.Gender != "" {
		g, err := ParseGender(rec.Gender)
		if err != nil {
			return h, fmt.Errorf("restore %q: %w", rec.Name, err)
		}
		e.Gender = g
	}
	if rec.Immovable != nil {
		e.Immovable = *rec.Immovable
	}
	for k, v := range rec.States {
		e.States[k] = v
	}
	if len(rec.Connections) > 0 {
		if !e.place {
			return h, fmt.Errorf("restore %q has connections: %w", rec.Name, ErrNotPlace)
		}
		names := make([]string, 0, len(rec.Connections))
		for _, c := range rec.Connections {
			if decode != nil {
				if c, err = decode(c); err != nil {
					return h, fmt.Errorf("restore %q: %w", rec.Name, err)
				}
			}
			names = append(names, c)
		}
		w.Declare(h, names...)
	}

	for i := range rec.Children {
		if _, err := w.Decode(h, &rec.Children[i], decode); err != nil {
			return h, err
		}
	}
	if b := w.Behavior(h); b.Load != nil {
		if err := b.Load(w, h, rec); err != nil {
			return h, fmt.Errorf("restore %q: %w", rec.Name, err)
		}
	}
	return h, nil
}

func (w *World) count() int {
	n := 0
	w.Walk(w.Root(), func(Handle, *Entity) bool {
		n++
		return true
	})
	return n - 1
}
