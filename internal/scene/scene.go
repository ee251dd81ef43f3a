// Package scene loads the initial world from a YAML document. A scene is
// turned into a full-state message and applied through the replication
// consumer like any other authoritative state.
//
//	entities:
//	  - id: 6f1c...            # optional
//	    replicated: true       # default
//	    components:
//	      transform: {position: {x: 1, y: 0, z: 0}}
//	      ai_state: {mode: patrol, range: 4}
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/replication"
)

var ErrInvalidScene = errors.New("invalid scene")

type Scene struct {
	Entities []Entity `yaml:"entities"`
}

type Entity struct {
	ID         string                    `yaml:"id"`
	Replicated *bool                     `yaml:"replicated"`
	Components map[string]map[string]any `yaml:"components"`
}

func Load(path string) (Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scene{}, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (Scene, error) {
	var s Scene
	if err := yaml.NewDecoder(r).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Scene{}, fmt.Errorf("decode scene: %w", err)
	}
	return s, nil
}

// Message converts the scene into a full-state message at tick 0. Component
// bodies are decoded by type name through codecs; ids left empty are minted.
func (s Scene) Message(codecs *codec.Registry) (replication.WorldDeltaMessage, error) {
	msg := replication.WorldDeltaMessage{Full: true}
	seen := make(map[models.EntityID]struct{}, len(s.Entities))

	for i, def := range s.Entities {
		id := models.NewEntityID()
		if def.ID != "" {
			parsed, err := models.ParseEntityID(def.ID)
			if err != nil {
				return replication.WorldDeltaMessage{}, fmt.Errorf("%w: entity %d: id %q: %v", ErrInvalidScene, i, def.ID, err)
			}
			id = parsed
		}
		if _, dup := seen[id]; dup {
			return replication.WorldDeltaMessage{}, fmt.Errorf("%w: entity %d: duplicate id %s", ErrInvalidScene, i, id)
		}
		seen[id] = struct{}{}

		delta := replication.EntityDelta{EntityID: id, IsNew: true}
		if def.Replicated == nil || *def.Replicated {
			delta.AddedOrModified = append(delta.AddedOrModified, models.Replicated{})
		}
		for _, name := range sortedKeys(def.Components) {
			body, err := json.Marshal(def.Components[name])
			if err != nil {
				return replication.WorldDeltaMessage{}, fmt.Errorf("%w: entity %d: %s: %v", ErrInvalidScene, i, name, err)
			}
			c, err := codecs.DecodeNamed(models.ComponentType(name), body)
			if err != nil {
				return replication.WorldDeltaMessage{}, fmt.Errorf("entity %d: %w", i, err)
			}
			delta.AddedOrModified = append(delta.AddedOrModified, c)
		}
		msg.Deltas = append(msg.Deltas, delta)
	}
	return msg, nil
}

// Apply loads the scene into r through a consumer. The scene describes the
// entire replicated world, so replicated entities it does not mention are
// destroyed.
func (s Scene) Apply(r *models.EntityRegistry, codecs *codec.Registry) (replication.ApplyStats, error) {
	msg, err := s.Message(codecs)
	if err != nil {
		return replication.ApplyStats{}, err
	}
	return replication.NewConsumer(codecs, nil).Apply(r, msg)
}
