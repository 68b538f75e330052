package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32ToPCM16(t *testing.T) {
	frame := Float32ToPCM16([]float32{0, 1, -1, 2, -2})
	require.Len(t, frame, 10, "expected two bytes per sample")

	samples := PCM16ToFloat32(frame)
	assert.InDelta(t, 0, samples[0], 0.001)
	assert.InDelta(t, 1, samples[1], 0.001)
	assert.InDelta(t, -1, samples[2], 0.001)
	assert.InDelta(t, 1, samples[3], 0.001, "expected out-of-range samples clamped")
	assert.InDelta(t, -1, samples[4], 0.001)
}

func TestPCM16ToFloat32_oddTrailingByte(t *testing.T) {
	samples := PCM16ToFloat32([]byte{0x00, 0x00, 0xff})
	assert.Len(t, samples, 1, "expected the trailing odd byte to be ignored")
}
