/*package rand implements the Mersenne Twister (MT19937) pseudo-random
stream used by navigation contexts.

Each Generator is an independent stream. Generators are not safe for
concurrent use; give every worker its own.
*/
package rand

const (
	period = 624
	shift  = 397

	matrixA   uint32 = 0x9908b0df
	upperMask uint32 = 0x80000000
	lowerMask uint32 = 0x7fffffff

	temperB uint32 = 0x9d2c5680
	temperC uint32 = 0xefc60000

	initMult uint32 = 1812433253

	// Largest float64 strictly below 1.
	belowOne = 1 - 1.0/(1<<53)
)

var mag01 = [2]uint32{0, matrixA}

// Generator is the state of one stream: a 624 word buffer and the index of
// the last word handed out.
type Generator struct {
	index  int
	buffer [period]uint32
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed uint32) *Generator {
	gen := &Generator{}
	gen.Seed(seed)
	return gen
}

// Seed reinitializes the whole buffer from seed. Prior output is discarded
// and the next draw regenerates the state.
func (gen *Generator) Seed(seed uint32) {
	gen.buffer[0] = seed
	for j := 1; j < period; j++ {
		prev := gen.buffer[j-1]
		gen.buffer[j] = initMult*(prev^(prev>>30)) + uint32(j)
	}
	gen.index = period
}

// twist regenerates all 624 words of the buffer.
func (gen *Generator) twist() {
	buf := &gen.buffer
	var y uint32
	kk := 0
	for ; kk < period-shift; kk++ {
		y = (buf[kk] & upperMask) | (buf[kk+1] & lowerMask)
		buf[kk] = buf[kk+shift] ^ (y >> 1) ^ mag01[y&1]
	}
	for ; kk < period-1; kk++ {
		y = (buf[kk] & upperMask) | (buf[kk+1] & lowerMask)
		buf[kk] = buf[kk+(shift-period)] ^ (y >> 1) ^ mag01[y&1]
	}
	y = (buf[period-1] & upperMask) | (buf[0] & lowerMask)
	buf[period-1] = buf[shift-1] ^ (y >> 1) ^ mag01[y&1]
}

// Uint32 returns the next tempered 32-bit word of the stream.
func (gen *Generator) Uint32() uint32 {
	if gen.index < period-1 {
		gen.index++
	} else {
		gen.twist()
		gen.index = 0
	}

	y := gen.buffer[gen.index]
	y ^= y >> 11
	y ^= (y << 7) & temperB
	y ^= (y << 15) & temperC
	y ^= y >> 18
	return y
}

// Uniform01 returns a uniform deviate in [0, 1).
//
// Words are scaled by 1/(2^32 - 1), so the all-ones word would map to 1; it
// is returned as the largest double below 1 instead.
func (gen *Generator) Uniform01() float64 {
	u := float64(gen.Uint32()) * (1.0 / 4294967295.0)
	if u >= 1 {
		return belowOne
	}
	return u
}

// Uniform returns a uniform deviate in [low, high).
func (gen *Generator) Uniform(low, high float64) float64 {
	return low + (high-low)*gen.Uniform01()
}
