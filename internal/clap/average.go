package clap

// fracBits is the number of fractional bits in the accumulator.
const fracBits = 16

// RunningAverage is a slow exponential average of the microphone level kept
// in fixed point: the upper 16 bits of the accumulator are the average.
// Each update moves the average by (sample - average) / 65536.
type RunningAverage struct {
	accum uint32
}

// Level returns the integer part of the average.
func (a *RunningAverage) Level() uint16 {
	return uint16(a.accum >> fracBits)
}

// Update folds one sample into the average.
func (a *RunningAverage) Update(sample uint16) {
	a.accum -= uint32(a.Level())
	a.accum += uint32(sample)
}

// Seed sets the average to the mean of samples.
func (a *RunningAverage) Seed(samples []uint16) {
	if len(samples) == 0 {
		return
	}
	var total uint64
	for _, s := range samples {
		total += uint64(s)
	}
	a.accum = uint32(total << fracBits / uint64(len(samples)))
}

// Set places the average at level.
func (a *RunningAverage) Set(level uint16) {
	a.accum = uint32(level) << fracBits
}
