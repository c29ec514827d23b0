package server

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/zeusync/arcade/internal/core/components"
	"github.com/zeusync/arcade/internal/core/models"
	"github.com/zeusync/arcade/internal/core/system"
	"github.com/zeusync/arcade/pkg/generic"
)

// Snapshot is one frame of the world as sent to spectators.
type Snapshot struct {
	Frame    uint64       `json:"frame"`
	Checksum uint64       `json:"checksum"`
	Time     time.Time    `json:"time"`
	Session  SessionView  `json:"session"`
	Entities []EntityView `json:"entities"`
}

type SessionView struct {
	Paused bool `json:"paused"`
	Level  int  `json:"level"`
	Score  int  `json:"score"`
	Lives  int  `json:"lives"`
}

type EntityView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Size     [3]float64 `json:"size"`
	Shape    string     `json:"shape,omitempty"`
}

var bufferPool = generic.NewHotPool(func() *bytes.Buffer {
	return bytes.NewBuffer(make([]byte, 0, 4096))
}, 2)

// BuildSnapshot captures every active entity that has a Transform.
func BuildSnapshot(store *models.Store, state system.GameState, frame uint64, checksum uint64) Snapshot {
	snap := Snapshot{
		Frame:    frame,
		Checksum: checksum,
		Time:     time.Now().UTC(),
		Session: SessionView{
			Paused: state.IsPaused,
			Level:  state.CurrentLevel,
			Score:  state.Score,
			Lives:  state.Lives,
		},
		Entities: make([]EntityView, 0, store.Len()),
	}
	for _, e := range store.Entities() {
		if !e.Active {
			continue
		}
		tr, ok := components.TransformOf(e)
		if !ok {
			continue
		}
		view := EntityView{
			ID:       e.ID().String(),
			Name:     e.Name,
			Position: tr.Position,
		}
		if col, ok := components.ColliderOf(e); ok {
			view.Size = col.Size
			view.Shape = string(col.Shape)
		}
		snap.Entities = append(snap.Entities, view)
	}
	return snap
}

// Encode returns the JSON frame. The returned slice is owned by the caller.
func (s Snapshot) Encode() ([]byte, error) {
	buf := bufferPool.Get()
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(s); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
