package assets

import "errors"

var (
	ErrSpriteNotFound = errors.New("sprite not found")
	ErrInvalidSprite  = errors.New("invalid sprite")
)
