package ice

import "sync"

// Per row S-box moduli and input XOR constants.
var _S_MOD = [4][4]uint32{
	{333, 313, 505, 369},
	{379, 375, 319, 391},
	{361, 445, 451, 397},
	{397, 425, 395, 505},
}

var _S_XOR = [4][4]uint32{
	{0x83, 0x85, 0x9b, 0xcd},
	{0xcc, 0xa7, 0xad, 0x41},
	{0x4b, 0x2e, 0xd4, 0x33},
	{0xea, 0xcb, 0x2e, 0x04},
}

// _P_BOX maps input bit i of the S-box output to its final position.
var _P_BOX = [32]uint32{
	0x00000001, 0x00000080, 0x00000400, 0x00002000,
	0x00080000, 0x00200000, 0x01000000, 0x40000000,
	0x00000008, 0x00000020, 0x00000100, 0x00004000,
	0x00010000, 0x00800000, 0x04000000, 0x20000000,
	0x00000004, 0x00000010, 0x00000200, 0x00008000,
	0x00020000, 0x00400000, 0x08000000, 0x10000000,
	0x00000002, 0x00000040, 0x00000800, 0x00001000,
	0x00040000, 0x00100000, 0x02000000, 0x80000000,
}

var (
	sbox     [4][1024]uint32
	sboxOnce sync.Once
)

// gfMult multiplies a and b in GF(2^8) reduced by m.
func gfMult(a, b, m uint32) uint32 {
	var res uint32
	for b != 0 {
		if b&1 != 0 {
			res ^= a
		}
		a <<= 1
		b >>= 1
		if a >= 256 {
			a ^= m
		}
	}
	return res
}

// gfExp7 returns b^7 in GF(2^8) reduced by m.
func gfExp7(b, m uint32) uint32 {
	if b == 0 {
		return 0
	}
	x := gfMult(b, b, m)
	x = gfMult(b, x, m)
	x = gfMult(x, x, m)
	return gfMult(b, x, m)
}

func perm32(x uint32) uint32 {
	var res uint32
	for i := 0; x != 0; i++ {
		if x&1 != 0 {
			res |= _P_BOX[i]
		}
		x >>= 1
	}
	return res
}

func initSBoxes() {
	sboxOnce.Do(func() {
		for i := 0; i < 1024; i++ {
			col := uint32(i>>1) & 0xff
			row := (i & 0x1) | ((i & 0x200) >> 8)
			for j := 0; j < 4; j++ {
				x := gfExp7(col^_S_XOR[j][row], _S_MOD[j][row])
				sbox[j][i] = perm32(x << (24 - 8*j))
			}
		}
	})
}
