// Package assets loads glyph sprites described in YAML files.
package assets

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// Sprite is a terminal visual. Glyphs are drawn row by row, top first,
// centred on the entity. A Fill glyph instead tiles the entity's collider
// rectangle.
type Sprite struct {
	Name   string   `yaml:"name"`
	Glyphs []string `yaml:"glyphs"`
	Fill   string   `yaml:"fill"`
	// Color is a tcell color name such as "yellow" or "#ffcc00".
	Color string `yaml:"color"`
}

// ParseSprite decodes a sprite document.
func ParseSprite(data []byte) (*Sprite, error) {
	var s Sprite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSprite, err)
	}
	if len(s.Glyphs) == 0 && s.Fill == "" {
		return nil, fmt.Errorf("%w: %q has neither glyphs nor fill", ErrInvalidSprite, s.Name)
	}
	if s.Fill != "" && runewidth.StringWidth(s.Fill) == 0 {
		return nil, fmt.Errorf("%w: %q fill glyph has no width", ErrInvalidSprite, s.Name)
	}
	return &s, nil
}

// Clone returns a deep copy.
func (s *Sprite) Clone() *Sprite {
	if s == nil {
		return nil
	}
	c := *s
	c.Glyphs = append([]string(nil), s.Glyphs...)
	return &c
}

// Width is the widest glyph row in terminal cells.
func (s *Sprite) Width() int {
	w := 0
	for _, row := range s.Glyphs {
		w = max(w, runewidth.StringWidth(row))
	}
	return w
}

func (s *Sprite) Height() int {
	return len(s.Glyphs)
}
