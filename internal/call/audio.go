package call

import "encoding/binary"

// SampleRate is the fixed rate of the raw PCM16 mono stream exchanged while
// a call is connected.
const SampleRate = 16000

// CaptureFunc receives one captured PCM16 frame, ready for the wire.
type CaptureFunc func(frame []byte)

// Audio abstracts the microphone capture and playback device pair held for
// the lifetime of a connected call. Implementations are platform specific;
// the state machine only guarantees Cleanup is reached exactly once per
// acquisition, on every teardown path.
type Audio interface {
	Init() error
	StartCapture(fn CaptureFunc) error
	StopCapture()
	Play(frame []byte) error
	Cleanup()
}

// NullAudio is the device used when no audio backend is wired in: capture
// produces nothing and playback discards frames. Signaling still works, so a
// headless client can place and answer calls.
type NullAudio struct{}

func (NullAudio) Init() error                    { return nil }
func (NullAudio) StartCapture(CaptureFunc) error { return nil }
func (NullAudio) StopCapture()                   {}
func (NullAudio) Play([]byte) error              { return nil }
func (NullAudio) Cleanup()                       {}

// Float32ToPCM16 converts normalized samples to the wire's little-endian
// PCM16 framing, clamping to [-1, 1].
func Float32ToPCM16(samples []float32) []byte {
	frame := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(v))
	}

	return frame
}

// PCM16ToFloat32 converts a wire frame back to normalized samples. A
// trailing odd byte is ignored.
func PCM16ToFloat32(frame []byte) []float32 {
	samples := make([]float32, len(frame)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(frame[i*2:]))
		if v < 0 {
			samples[i] = float32(v) / 0x8000
		} else {
			samples[i] = float32(v) / 0x7FFF
		}
	}

	return samples
}
