// Package bdfs decrypts and re-encrypts game asset payloads protected with the
// ICE block cipher, and hands decrypted payloads to an asset-format Unpacker.
package bdfs

import (
	"crypto/cipher"
	"errors"
	"unsafe"

	"github.com/rjwvandenberg/bdfs/ice"
)

var (
	ErrBufferTooSmall      = errors.New("bdfs: buffer too small for the requested block count")
	ErrInvalidBlockCount   = errors.New("bdfs: invalid block count, block count must not be negative")
	ErrOutOfMemory         = errors.New("bdfs: out of memory")
	ErrInvalidOverlap      = errors.New("bdfs: source and destination overlap without being identical")
	ErrInvalidBufferLength = errors.New("bdfs: invalid buffer length, length must be positive")
	ErrReleased            = errors.New("bdfs: buffer used after release")
	ErrOutOfBounds         = errors.New("bdfs: access past buffer bounds")
	ErrUnaligned           = errors.New("bdfs: data length is not a multiple of 8")
	ErrInvalidHeader       = errors.New("bdfs: invalid compressed header")
	ErrShortOutput         = errors.New("bdfs: output shorter than declared size")
	ErrNoUnpacker          = errors.New("bdfs: compressed payload but no unpacker configured")
)

// Direction selects encryption or decryption for the bulk functions.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	switch d {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	}
	return "unknown"
}

// ProcessBuffer runs blockCount independent 8 byte blocks of src through b and
// writes each result at the same offset in dst.
//
// dst and src may be the same slice (in-place processing) but must not
// overlap otherwise. Nothing is written unless all checks pass.
func ProcessBuffer(b cipher.Block, dst, src []byte, blockCount int, dir Direction) error {
	if err := validate(b, dst, src, blockCount); err != nil {
		return err
	}
	n := blockCount * ice.BlockSize
	processRange(b, dst[:n], src[:n], dir)
	return nil
}

// EncryptBlocks encrypts blockCount blocks of src into dst.
func EncryptBlocks(b cipher.Block, dst, src []byte, blockCount int) error {
	return ProcessBuffer(b, dst, src, blockCount, Encrypt)
}

// DecryptBlocks decrypts blockCount blocks of src into dst.
func DecryptBlocks(b cipher.Block, dst, src []byte, blockCount int) error {
	return ProcessBuffer(b, dst, src, blockCount, Decrypt)
}

func validate(b cipher.Block, dst, src []byte, blockCount int) error {
	if b.BlockSize() != ice.BlockSize {
		return ice.ErrInvalidBlockLength
	}
	if blockCount < 0 {
		return ErrInvalidBlockCount
	}
	if blockCount > len(src)/ice.BlockSize || blockCount > len(dst)/ice.BlockSize {
		return ErrBufferTooSmall
	}
	n := blockCount * ice.BlockSize
	if inexactOverlap(dst[:n], src[:n]) {
		return ErrInvalidOverlap
	}
	return nil
}

// processRange expects len(dst) == len(src), a multiple of the block size.
func processRange(b cipher.Block, dst, src []byte, dir Direction) {
	for off := 0; off < len(src); off += ice.BlockSize {
		if dir == Decrypt {
			b.Decrypt(dst[off:off+ice.BlockSize], src[off:off+ice.BlockSize])
		} else {
			b.Encrypt(dst[off:off+ice.BlockSize], src[off:off+ice.BlockSize])
		}
	}
}

// inexactOverlap reports whether x and y share memory at any non-corresponding
// index.
func inexactOverlap(x, y []byte) bool {
	if len(x) == 0 || len(y) == 0 || &x[0] == &y[0] {
		return false
	}
	xs := uintptr(unsafe.Pointer(&x[0]))
	ys := uintptr(unsafe.Pointer(&y[0]))
	return xs <= ys+uintptr(len(y)-1) && ys <= xs+uintptr(len(x)-1)
}
