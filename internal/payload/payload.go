// Package payload defines the fixed-size datagram value type carried
// through the capture pipeline.
package payload

import "encoding/binary"

// Payload is a single fixed-size FPGA datagram. Bytes [0:8) encode the
// count header, big-endian; the remainder is opaque and forwarded
// verbatim.
type Payload []byte

// New returns a zero-valued payload of the given size, ready to be
// written into by a capture.
func New(size int) Payload {
	return make(Payload, size)
}

// Count decodes the big-endian count header from bytes [0:8).
func (p Payload) Count() uint64 {
	return binary.BigEndian.Uint64(p[0:8])
}

// NewDropMarker synthesises the egress drop marker for a missing count:
// bytes [0:8) carry the expected count, the remainder stays zero. A
// freshly allocated Payload is already all-zero, so only the count needs
// writing.
func NewDropMarker(size int, count uint64) Payload {
	p := New(size)
	binary.BigEndian.PutUint64(p[0:8], count)
	return p
}

// SetDropMarker overwrites p in place to become the drop marker for
// count: the count header is written and the remainder cleared to
// zero. Reusing the existing backing array keeps block-slot
// finalization allocation-free.
func (p Payload) SetDropMarker(count uint64) {
	clear(p[8:])
	binary.BigEndian.PutUint64(p[0:8], count)
}

// IsDropMarker reports whether every byte past the count header is
// zero, the consumer-facing way to distinguish a synthesised gap from
// live data.
func (p Payload) IsDropMarker() bool {
	for _, b := range p[8:] {
		if b != 0 {
			return false
		}
	}
	return true
}
