package ice

import "math"

// Level is the ICE strength parameter. It fixes both the number of rounds and
// the required key length.
type Level uint

// Thin selects Thin-ICE, the reduced 8 round variant with an 8 byte key.
const Thin Level = 0

const (
	_THIN_ROUNDS      = 8
	_ROUNDS_PER_LEVEL = 16
	_KEY_CHUNK        = 8
)

// MaxLevel is the largest level whose round count fits in an int.
const MaxLevel Level = math.MaxInt / _ROUNDS_PER_LEVEL

// NewLevel validates n and returns it as a Level.
func NewLevel(n int) (Level, error) {
	if n < 0 || Level(n) > MaxLevel {
		return 0, ErrInvalidLevel
	}
	return Level(n), nil
}

func (l Level) valid() bool {
	return l <= MaxLevel
}

// Rounds returns the number of Feistel rounds (one subkey each), or 0 for a
// level above MaxLevel.
func (l Level) Rounds() int {
	if l == Thin {
		return _THIN_ROUNDS
	}
	if !l.valid() {
		return 0
	}
	return int(l) * _ROUNDS_PER_LEVEL
}

// KeySize returns the key length in bytes required by l, or 0 for a level
// above MaxLevel.
func (l Level) KeySize() int {
	if l == Thin {
		return _KEY_CHUNK
	}
	if !l.valid() {
		return 0
	}
	return int(l) * _KEY_CHUNK
}
