package myaudio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somnetics/apnea-go/internal/conf"
)

func sineSamples(freq float64, n, sampleRate int, amplitude float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func TestFrameFromSamplesRejectsWrongLength(t *testing.T) {
	t.Parallel()

	_, err := FrameFromSamples(make([]float64, 100), conf.SampleRate)
	assert.Error(t, err)
}

func TestFrameFromSamplesConcentratesEnergyAtTone(t *testing.T) {
	t.Parallel()

	const toneHz = 250.0
	samples := sineSamples(toneHz, conf.FFTSize, conf.SampleRate, 0.5)

	frame, err := FrameFromSamples(samples, conf.SampleRate)
	require.NoError(t, err)

	require.Len(t, frame.Spectrum, conf.FFTSize/2+1)
	require.Len(t, frame.Samples, conf.FFTSize)
	assert.Equal(t, conf.SampleRate, frame.SampleRate)

	// The strongest bin must sit at the tone frequency.
	peakBin := 0
	for i, v := range frame.Spectrum {
		if v > frame.Spectrum[peakBin] {
			peakBin = i
		}
	}
	expectedBin := int(toneHz / frame.FrequencyResolution())
	assert.InDelta(t, expectedBin, peakBin, 1)

	// Energy far from the tone stays near the noise floor.
	farBin := int(5000.0 / frame.FrequencyResolution())
	assert.Less(t, frame.Spectrum[farBin], frame.Spectrum[peakBin]/4)
}

func TestFrameFromSamplesPreservesRawSamples(t *testing.T) {
	t.Parallel()

	samples := sineSamples(100, conf.FFTSize, conf.SampleRate, 0.3)
	frame, err := FrameFromSamples(samples, conf.SampleRate)
	require.NoError(t, err)

	// The frame carries the unwindowed time-domain samples.
	assert.Equal(t, samples, frame.Samples)
}

func TestFrameFromPCM(t *testing.T) {
	t.Parallel()

	samples := sineSamples(300, conf.FFTSize, conf.SampleRate, 0.4)
	pcm := make([]byte, conf.FFTSize*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s*32767)))
	}

	frame, err := FrameFromPCM(pcm, conf.SampleRate)
	require.NoError(t, err)
	for i, s := range samples {
		assert.InDelta(t, s, frame.Samples[i], 1e-3, "sample %d", i)
	}

	_, err = FrameFromPCM(pcm[:100], conf.SampleRate)
	assert.Error(t, err)
}

func TestQuantizeMagnitude(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mag  float64
		want float64
	}{
		{"zero magnitude", 0, 0},
		{"below dynamic range", 1e-6, 0},
		{"above dynamic range", 0.1, conf.SpectrumScale},
		{"midpoint of range", math.Pow(10, -65.0/20), conf.SpectrumScale / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantizeMagnitude(tt.mag), 0.5)
		})
	}
}

func TestBinRangeClamping(t *testing.T) {
	t.Parallel()

	frame := &SpectralFrame{
		Spectrum:   make([]float64, conf.FFTSize/2+1),
		SampleRate: conf.SampleRate,
	}

	lo, hi := frame.BinRange(20, 600)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 76, hi)

	lo, hi = frame.BinRange(-100, 1e9)
	assert.Equal(t, 0, lo)
	assert.Equal(t, len(frame.Spectrum)-1, hi)

	// Degenerate band collapses to a single bin instead of inverting.
	lo, hi = frame.BinRange(600, 20)
	assert.Equal(t, lo, hi)
}
