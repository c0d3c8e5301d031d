package myaudio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcmOf(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestCalculateAudioLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		samples      []byte
		wantLevel    int
		wantClipping bool
	}{
		{"empty input", nil, 0, false},
		{"silence", pcmOf(0, 0, 0, 0), 0, false},
		{"full scale clips", pcmOf(32767, -32768, 32767, -32768), 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAudioLevel(tt.samples, "test", "test device")
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantClipping, got.Clipping)
			assert.Equal(t, "test", got.Source)
		})
	}
}

func TestCalculateAudioLevelMonotonic(t *testing.T) {
	t.Parallel()

	quiet := CalculateAudioLevel(pcmOf(500, -500, 500, -500), "test", "")
	loud := CalculateAudioLevel(pcmOf(16000, -16000, 16000, -16000), "test", "")
	assert.Greater(t, loud.Level, quiet.Level)
}

func TestCalculateSampleLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		samples      []float64
		wantLevel    int
		wantClipping bool
	}{
		{"empty input", nil, 0, false},
		{"silence", []float64{0, 0, 0, 0}, 0, false},
		{"full scale clips", []float64{1, -1, 1, -1}, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSampleLevel(tt.samples, "file", "night.wav")
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantClipping, got.Clipping)
			assert.Equal(t, "file", got.Source)
		})
	}
}

func TestCalculateSampleLevelMatchesPCMVariant(t *testing.T) {
	t.Parallel()

	// The two mappings must agree for the same signal, so device and file
	// sources meter comparably.
	pcm := CalculateAudioLevel(pcmOf(16000, -16000, 16000, -16000), "test", "")
	normalized := 16000.0 / 32768.0
	flt := CalculateSampleLevel([]float64{normalized, -normalized, normalized, -normalized}, "file", "")
	assert.InDelta(t, pcm.Level, flt.Level, 1)
}

func TestCalculateAudioLevelOddByteInput(t *testing.T) {
	t.Parallel()

	// A trailing odd byte is dropped rather than misread.
	samples := append(pcmOf(1000, -1000), 0x7f)
	got := CalculateAudioLevel(samples, "test", "")
	assert.False(t, got.Clipping)
	assert.GreaterOrEqual(t, got.Level, 0)
}
