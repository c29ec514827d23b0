package audio

import "errors"

var ErrUnknownCue = errors.New("unknown audio cue")
