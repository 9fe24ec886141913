package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CountRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 42, 1 << 40, ^uint64(0)}

	for _, c := range cases {
		p := NewDropMarker(16, c)
		assert.Equal(t, c, p.Count())
	}
}

func Test_NewDropMarkerIsAllZeroPastHeader(t *testing.T) {
	p := NewDropMarker(16, 7)

	assert.True(t, p.IsDropMarker())
	for _, b := range p[8:] {
		assert.Zero(t, b)
	}
}

func Test_SetDropMarkerReusesBacking(t *testing.T) {
	p := New(16)
	copy(p[8:], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	p.SetDropMarker(99)

	assert.Equal(t, uint64(99), p.Count())
	assert.True(t, p.IsDropMarker())
}

func Test_IsDropMarkerFalseForLiveData(t *testing.T) {
	p := New(16)
	p[15] = 1

	assert.False(t, p.IsDropMarker())
}
