// Package ice implements the ICE (Information Concealment Engine) block cipher
// with a variable strength level, including the 8 round Thin-ICE variant.
package ice

import (
	"crypto/cipher"
	"errors"
)

// BlockSize is the ICE block size in bytes.
const BlockSize = 8

var (
	ErrInvalidKeyLength   = errors.New("ice: invalid key length for level")
	ErrInvalidLevel       = errors.New("ice: invalid level, level must be between 0 and MaxLevel")
	ErrInvalidBlockLength = errors.New("ice: invalid block length, block must be 8 bytes long")
)

var _KEY_ROT = [16]int{
	0, 1, 2, 3, 2, 1, 3, 0,
	1, 3, 2, 0, 3, 1, 0, 2,
}

// Key is an expanded ICE key. It is read-only after NewKey and may be shared
// between goroutines.
type Key struct {
	level    Level
	keysched [][3]uint32
}

// NewKey expands key into the subkey table for level.
//
// key must be exactly level.KeySize() bytes long.
func NewKey(key []byte, level Level) (*Key, error) {
	if !level.valid() {
		return nil, ErrInvalidLevel
	}
	if len(key) != level.KeySize() {
		return nil, ErrInvalidKeyLength
	}

	initSBoxes()

	k := &Key{
		level:    level,
		keysched: make([][3]uint32, level.Rounds()),
	}

	var kb [4]uint16
	if level == Thin {
		loadKeyChunk(&kb, key)
		k.scheduleBuild(&kb, 0, _KEY_ROT[:8])
	} else {
		rounds := level.Rounds()
		for i := 0; i < int(level); i++ {
			loadKeyChunk(&kb, key[i*_KEY_CHUNK:])
			k.scheduleBuild(&kb, i*8, _KEY_ROT[:8])
			k.scheduleBuild(&kb, rounds-8-i*8, _KEY_ROT[8:])
		}
	}
	for i := range kb {
		kb[i] = 0
	}

	return k, nil
}

// NewCipher is NewKey for an unvalidated integer level.
func NewCipher(key []byte, level int) (*Key, error) {
	l, err := NewLevel(level)
	if err != nil {
		return nil, err
	}
	return NewKey(key, l)
}

func loadKeyChunk(kb *[4]uint16, chunk []byte) {
	_ = chunk[7]
	for j := 0; j < 4; j++ {
		kb[3-j] = uint16(chunk[j*2])<<8 | uint16(chunk[j*2+1])
	}
}

// scheduleBuild fills 8 subkeys starting at n. Every subkey word takes 15
// rounds of 4 bits, one bit from each key word in keyRot order; the source
// words are rotated right with the taken bit inverted.
func (k *Key) scheduleBuild(kb *[4]uint16, n int, keyRot []int) {
	for i := 0; i < 8; i++ {
		kr := keyRot[i]
		isk := &k.keysched[n+i]
		isk[0], isk[1], isk[2] = 0, 0, 0

		for j := 0; j < 15; j++ {
			sk := &isk[j%3]
			for b := 0; b < 4; b++ {
				w := &kb[(kr+b)&3]
				bit := *w & 1
				*sk = (*sk << 1) | uint32(bit)
				*w = (*w >> 1) | ((bit ^ 1) << 15)
			}
		}
	}
}

func (k *Key) encrypt(dst, src []byte) {
	_ = src[7]
	_ = dst[7]

	l := uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
	r := uint32(src[4])<<24 | uint32(src[5])<<16 | uint32(src[6])<<8 | uint32(src[7])

	for i := 0; i < len(k.keysched); i += 2 {
		l ^= f(r, &k.keysched[i])
		r ^= f(l, &k.keysched[i+1])
	}

	putHalves(dst, r, l)
}

func (k *Key) decrypt(dst, src []byte) {
	_ = src[7]
	_ = dst[7]

	l := uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
	r := uint32(src[4])<<24 | uint32(src[5])<<16 | uint32(src[6])<<8 | uint32(src[7])

	for i := len(k.keysched) - 1; i > 0; i -= 2 {
		l ^= f(r, &k.keysched[i])
		r ^= f(l, &k.keysched[i-1])
	}

	putHalves(dst, r, l)
}

func putHalves(dst []byte, a, b uint32) {
	dst[0] = byte(a >> 24)
	dst[1] = byte(a >> 16)
	dst[2] = byte(a >> 8)
	dst[3] = byte(a)
	dst[4] = byte(b >> 24)
	dst[5] = byte(b >> 16)
	dst[6] = byte(b >> 8)
	dst[7] = byte(b)
}

// Encrypt encrypts the first block of src into dst. It panics if either is
// shorter than a block. dst and src may be the same slice.
func (k *Key) Encrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("ice: input not full block")
	}
	k.encrypt(dst, src)
}

// Decrypt decrypts the first block of src into dst. It panics if either is
// shorter than a block. dst and src may be the same slice.
func (k *Key) Decrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("ice: input not full block")
	}
	k.decrypt(dst, src)
}

// EncryptBlock encrypts exactly one 8 byte block.
func (k *Key) EncryptBlock(dst, src []byte) error {
	if len(src) != BlockSize || len(dst) < BlockSize {
		return ErrInvalidBlockLength
	}
	k.encrypt(dst, src)
	return nil
}

// DecryptBlock decrypts exactly one 8 byte block.
func (k *Key) DecryptBlock(dst, src []byte) error {
	if len(src) != BlockSize || len(dst) < BlockSize {
		return ErrInvalidBlockLength
	}
	k.decrypt(dst, src)
	return nil
}

// BlockSize returns the ICE block size, 8 bytes.
func (k *Key) BlockSize() int {
	return BlockSize
}

func (k *Key) Level() Level {
	return k.level
}

// Rounds returns the number of subkeys in the schedule.
func (k *Key) Rounds() int {
	return len(k.keysched)
}

// Destroy zeroes the subkey table. The key must not be used afterwards.
func (k *Key) Destroy() {
	for i := range k.keysched {
		k.keysched[i] = [3]uint32{}
	}
}

var _ cipher.Block = (*Key)(nil)
