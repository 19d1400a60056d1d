package lsb

import (
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuomas-lb/lsbsteg/internal/bitstream"
	"github.com/tuomas-lb/lsbsteg/internal/pixbuf"
)

// noisyBuffer returns a buffer filled with deterministic pseudo-random pixels.
func noisyBuffer(width, height int) *pixbuf.Buffer {
	rng := rand.New(rand.NewSource(7))
	buf := pixbuf.New(width, height)
	for i := range buf.Pix {
		buf.Pix[i] = color.NRGBA{
			R: uint8(rng.Intn(256)),
			G: uint8(rng.Intn(256)),
			B: uint8(rng.Intn(256)),
			A: uint8(rng.Intn(256)),
		}
	}
	return buf
}

func TestLocate(t *testing.T) {
	tests := []struct {
		pos   int
		pixel int
		ch    Channel
	}{
		{0, 0, Red},
		{1, 0, Green},
		{2, 0, Blue},
		{3, 1, Red},
		{47, 15, Blue},
	}
	for _, tt := range tests {
		px, ch := Locate(tt.pos)
		assert.Equal(t, tt.pixel, px, "pixel for bit %d", tt.pos)
		assert.Equal(t, tt.ch, ch, "channel for bit %d", tt.pos)
	}
	assert.Equal(t, "green", Green.String())
}

func TestEmbedRotationCrossesPixels(t *testing.T) {
	src := pixbuf.New(2, 1)
	dst, err := Embed(src, []bool{true, false, true, true})
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 1, G: 0, B: 1, A: 0}, dst.Pix[0])
	assert.Equal(t, color.NRGBA{R: 1, G: 0, B: 0, A: 0}, dst.Pix[1])
}

func TestEmbedClearsAndSetsLSB(t *testing.T) {
	src := pixbuf.New(1, 1)
	src.Pix[0] = color.NRGBA{R: 0xFF, G: 0x10, B: 0x81, A: 0x7F}

	dst, err := Embed(src, []bool{false, true, false})
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xFE, G: 0x11, B: 0x80, A: 0x7F}, dst.Pix[0])
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("SGk="),
		[]byte("SGVsbG8gV29ybGQgOkQ="),
	}
	for _, payload := range payloads {
		src := noisyBuffer(32, 32)
		dst, err := EmbedPayload(src, payload)
		require.NoError(t, err)

		got, err := Extract(dst)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestCapacityBoundary(t *testing.T) {
	payload := []byte("SGk=")
	required := RequiredBits(len(payload))
	require.Equal(t, 48, required)

	exact := pixbuf.New(16, 1)
	require.Equal(t, required, Capacity(exact.Len()))
	dst, err := EmbedPayload(exact, payload)
	require.NoError(t, err)
	got, err := Extract(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	short := noisyBuffer(15, 1)
	before := short.Clone()
	_, err = EmbedPayload(short, payload)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, short, "source mutated on failed embed")
}

func TestEmptyPayloadCapacity(t *testing.T) {
	_, err := EmbedPayload(pixbuf.New(5, 1), nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	dst, err := EmbedPayload(pixbuf.New(6, 1), nil)
	require.NoError(t, err)
	got, err := Extract(dst)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbedEmptyBuffer(t *testing.T) {
	_, err := EmbedPayload(pixbuf.New(0, 0), nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = EmbedPayload(nil, nil)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestEmbedLeavesTailAndAlpha(t *testing.T) {
	src := noisyBuffer(8, 8)
	// 2 bytes + sentinel = 32 bits: pixels 0-9 fully used, pixel 10 red and
	// green used, blue untouched.
	dst, err := EmbedPayload(src, []byte("SG"))
	require.NoError(t, err)

	for i := range src.Pix {
		assert.Equal(t, src.Pix[i].A, dst.Pix[i].A, "alpha changed at pixel %d", i)
	}
	for i := 11; i < src.Len(); i++ {
		assert.Equal(t, src.Pix[i], dst.Pix[i], "tail pixel %d modified", i)
	}
	assert.Equal(t, src.Pix[10].B, dst.Pix[10].B, "unused channel in last pixel modified")
	for i := 0; i <= 10; i++ {
		assert.Equal(t, src.Pix[i].R>>1, dst.Pix[i].R>>1, "high bits changed at pixel %d", i)
		assert.Equal(t, src.Pix[i].G>>1, dst.Pix[i].G>>1, "high bits changed at pixel %d", i)
		assert.Equal(t, src.Pix[i].B>>1, dst.Pix[i].B>>1, "high bits changed at pixel %d", i)
	}
}

func TestEmbedDoesNotMutateSource(t *testing.T) {
	src := noisyBuffer(4, 4)
	before := src.Clone()
	_, err := EmbedPayload(src, []byte("SGk="))
	require.NoError(t, err)
	assert.Equal(t, before, src)
}

func TestExtractSentinelNotFound(t *testing.T) {
	_, err := Extract(pixbuf.New(16, 16))
	assert.ErrorIs(t, err, ErrSentinelNotFound)

	_, err = Extract(pixbuf.New(0, 0))
	assert.ErrorIs(t, err, ErrSentinelNotFound)

	// A truncated stream loses its sentinel.
	full, err := EmbedPayload(pixbuf.New(16, 1), []byte("SGk="))
	require.NoError(t, err)
	truncated := &pixbuf.Buffer{Width: 15, Height: 1, Pix: full.Pix[:15]}
	_, err = Extract(truncated)
	assert.ErrorIs(t, err, ErrSentinelNotFound)
}

func TestExtractUnalignedPayload(t *testing.T) {
	bits := append([]bool{false, true, false}, bitstream.Sentinel()...)
	dst, err := Embed(pixbuf.New(8, 1), bits)
	require.NoError(t, err)

	_, err = Extract(dst)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestExtractStopsAtFirstSentinel(t *testing.T) {
	bits := bitstream.Terminate([]byte("AB"))
	bits = append(bits, bitstream.Terminate([]byte("CDEF"))...)
	dst, err := Embed(pixbuf.New(40, 1), bits)
	require.NoError(t, err)

	got, err := Extract(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("AB"), got)
}

func TestScannerStates(t *testing.T) {
	var s Scanner
	assert.Equal(t, Scanning, s.State())

	for _, bit := range bitstream.Terminate([]byte("A")) {
		s.Feed(bit)
	}
	assert.Equal(t, SentinelFound, s.State())
	assert.True(t, s.Feed(false), "feed after sentinel must report stop")

	got, err := s.Payload()
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), got)
	assert.Equal(t, Done, s.State())

	var empty Scanner
	empty.Feed(true)
	empty.Exhaust()
	assert.Equal(t, Exhausted, empty.State())
	_, err = empty.Payload()
	assert.ErrorIs(t, err, ErrSentinelNotFound)
}

func TestScannerLargeCarrierWithoutSentinel(t *testing.T) {
	buf := noisyBuffer(512, 512)
	for i := range buf.Pix {
		buf.Pix[i].R &^= 1 // a zero every third bit rules out the sentinel
	}

	var s Scanner
	for pos := 0; pos < Capacity(buf.Len()); pos++ {
		px, ch := Locate(pos)
		if s.Feed(*carrier(&buf.Pix[px], ch)&1 == 1) {
			t.Fatalf("scanner stopped at bit %d", pos)
		}
	}
	s.Exhaust()
	assert.Equal(t, Exhausted, s.State())
	assert.Equal(t, 3*512*512, s.Bits())

	_, err := s.Payload()
	assert.ErrorIs(t, err, ErrSentinelNotFound)
	assert.ErrorContains(t, err, "after 786432 bits")
}

func TestScannerReportsUnalignedBitCount(t *testing.T) {
	var s Scanner
	for _, bit := range append([]bool{true, false, true, true, false}, bitstream.Sentinel()...) {
		s.Feed(bit)
	}
	require.Equal(t, SentinelFound, s.State())
	assert.Equal(t, 5+bitstream.SentinelBits, s.Bits())

	_, err := s.Payload()
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorContains(t, err, "5 payload bits")
	assert.Equal(t, Done, s.State())
}
