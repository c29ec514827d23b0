package platformer

import "errors"

var ErrInvalidLevel = errors.New("invalid level")
