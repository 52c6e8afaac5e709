// Package crc implements the reflected CRC-32 (IEEE) used by the ZIP format.
//
// Update is a pure running-value updater: callers seed with [Seed] and
// finalize with [Finalize]. Blocks of 16 bytes are folded per iteration
// using slice-by-16 tables; the tail is processed one byte at a time.
package crc

// Polynomial is the reversed IEEE polynomial.
const Polynomial = 0xedb88320

// Seed is the initial running value for a new checksum.
const Seed uint32 = 0xffffffff

const slices = 16

var tables = makeTables(Polynomial)

func makeTables(poly uint32) *[slices][256]uint32 {
	t := new([slices][256]uint32)
	for i := range 256 {
		c := uint32(i)
		for range 8 {
			if c&1 == 1 {
				c = c>>1 ^ poly
			} else {
				c >>= 1
			}
		}
		t[0][i] = c
	}
	for i := range 256 {
		c := t[0][i]
		for k := 1; k < slices; k++ {
			c = t[0][c&0xff] ^ c>>8
			t[k][i] = c
		}
	}
	return t
}

// Update folds p into the running value crc and returns the new running value.
// An empty p returns crc unchanged.
func Update(crc uint32, p []byte) uint32 {
	t := tables
	for len(p) >= slices {
		crc ^= uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
		crc = t[15][crc&0xff] ^ t[14][crc>>8&0xff] ^ t[13][crc>>16&0xff] ^ t[12][crc>>24] ^
			t[11][p[4]] ^ t[10][p[5]] ^ t[9][p[6]] ^ t[8][p[7]] ^
			t[7][p[8]] ^ t[6][p[9]] ^ t[5][p[10]] ^ t[4][p[11]] ^
			t[3][p[12]] ^ t[2][p[13]] ^ t[1][p[14]] ^ t[0][p[15]]
		p = p[slices:]
	}
	for _, b := range p {
		crc = t[0][byte(crc)^b] ^ crc>>8
	}
	return crc
}

// Finalize converts a running value into the stored checksum.
func Finalize(crc uint32) uint32 {
	return crc ^ 0xffffffff
}

// Checksum returns the finalized CRC-32 of p.
func Checksum(p []byte) uint32 {
	return Finalize(Update(Seed, p))
}

// Digest accumulates a checksum across writes.
// The zero value is not ready for use; call New.
type Digest struct {
	crc uint32
}

// New returns a Digest seeded with [Seed].
func New() *Digest {
	return &Digest{crc: Seed}
}

// Write implements io.Writer. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

// Sum32 returns the finalized checksum of everything written so far.
func (d *Digest) Sum32() uint32 {
	return Finalize(d.crc)
}

