package reqchan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoothedEstimatorFormula(t *testing.T) {
	e := newSmoothedEstimator(8)
	got := e.update(100)
	// smoothed_new = (0 + (8-1)*100) / 8 = 700/8 = 87 (integer division).
	assert.Equal(t, uint64(87), got)
	assert.Equal(t, uint64(87), e.get())
}

func TestSmoothedEstimatorConvergesOnRepeatedSample(t *testing.T) {
	const v = 1000
	e := newSmoothedEstimator(8)
	for i := 0; i < 64; i++ {
		e.update(v)
	}
	// After enough identical samples the fixed-point EMA should settle
	// within a handful of units of the sample value.
	got := e.get()
	assert.InDelta(t, v, got, 2)
}

func TestSmoothedEstimatorDefaultsBadIalpha(t *testing.T) {
	e := newSmoothedEstimator(1)
	assert.Equal(t, uint64(DefaultEMAInverseAlpha), e.ialpha)
}
