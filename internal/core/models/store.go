package models

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/arcade/internal/core/observability/log"
)

// Checksummer is implemented by components that take part in Store.Checksum.
type Checksummer interface {
	AppendChecksum(b []byte) []byte
}

// Store owns every entity and its components. It is not synchronised: it is
// only used from the frame goroutine, or from setup code before the loop runs.
type Store struct {
	entities map[EntityID]*Entity
	order    []EntityID
	logger   log.Log
}

func NewStore(logger log.Log) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		entities: make(map[EntityID]*Entity),
		logger:   logger.With(log.String("component", "entity_store")),
	}
}

// NewEntityID returns a collision-resistant id.
func NewEntityID() EntityID {
	return EntityID("entity-" + uuid.NewString())
}

// CreateEntity creates an active entity with a generated id.
func (s *Store) CreateEntity(name string) *Entity {
	return s.CreateEntityWithID(name, "")
}

// CreateEntityWithID creates an entity with the given id, generating one when
// id is empty. An existing entity with the same id is replaced.
func (s *Store) CreateEntityWithID(name string, id EntityID) *Entity {
	if id == "" {
		id = NewEntityID()
	}
	if _, exists := s.entities[id]; exists {
		s.logger.Warn("replacing entity with duplicate id",
			log.String("entity_id", string(id)),
			log.String("entity", name))
		s.removeFromOrder(id)
	}
	e := newEntity(id, name, s.logger)
	s.entities[id] = e
	s.order = append(s.order, id)
	return e
}

func (s *Store) Entity(id EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Entities returns every entity in creation order. The slice is a copy, so
// callers may create or remove entities while ranging over it.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out
}

// FindByName returns the first entity, in creation order, with the given name.
func (s *Store) FindByName(name string) (*Entity, bool) {
	for _, id := range s.order {
		if e := s.entities[id]; e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// RemoveEntity deletes the entity immediately. Unknown ids are ignored.
func (s *Store) RemoveEntity(id EntityID) {
	if _, ok := s.entities[id]; !ok {
		return
	}
	delete(s.entities, id)
	s.removeFromOrder(id)
}

func (s *Store) Len() int { return len(s.order) }

func (s *Store) Clear() {
	s.entities = make(map[EntityID]*Entity)
	s.order = nil
}

// Checksum hashes ids, names, active flags and every Checksummer component in
// creation order. Equal worlds give equal sums.
func (s *Store) Checksum() uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 256)
	for _, id := range s.order {
		e := s.entities[id]
		buf = buf[:0]
		buf = append(buf, id...)
		buf = append(buf, 0)
		buf = append(buf, e.Name...)
		buf = append(buf, 0)
		if e.Active {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		for _, t := range e.order {
			c, ok := e.components[t].(Checksummer)
			if !ok {
				continue
			}
			buf = append(buf, t...)
			buf = c.AppendChecksum(buf)
		}
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}

func (s *Store) removeFromOrder(id EntityID) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// AppendFloats encodes floats for Checksummer implementations.
func AppendFloats(b []byte, values ...float64) []byte {
	for _, v := range values {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}
