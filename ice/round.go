package ice

// f is the ICE round function. The 32-bit half is expanded to two 20-bit
// values, swapped under the key-controlled mask sk[2], keyed with sk[0] and
// sk[1], then substituted through the four S-boxes.
func f(p uint32, sk *[3]uint32) uint32 {
	tl := ((p >> 16) & 0x3ff) | (((p >> 14) | (p << 18)) & 0xffc00)
	tr := (p & 0x3ff) | ((p << 2) & 0xffc00)

	al := sk[2] & (tl ^ tr)
	ar := al ^ tr
	al ^= tl

	al ^= sk[0]
	ar ^= sk[1]

	return sbox[0][al>>10] | sbox[1][al&0x3ff] | sbox[2][ar>>10] | sbox[3][ar&0x3ff]
}
