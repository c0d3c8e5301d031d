package myaudio

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/errors"
	"gonum.org/v1/gonum/dsp/window"
)

// Dynamic range of the fixed-point spectrum. Bin magnitudes are converted
// to decibels and mapped linearly from [MinDecibels, MaxDecibels] onto
// 0..SpectrumScale, clamping outside the range. This mirrors the dynamic
// range of an 8-bit spectrum analyser.
const (
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// FrameFromPCM computes a spectral frame from raw little-endian 16-bit PCM.
// The input must contain exactly conf.FFTSize samples.
func FrameFromPCM(pcm []byte, sampleRate int) (*SpectralFrame, error) {
	if len(pcm) != conf.FFTSize*2 {
		return nil, errors.Newf("pcm chunk must be %d bytes, got %d", conf.FFTSize*2, len(pcm)).
			Component("myaudio").
			Category(errors.CategoryAudioAnalysis).
			Build()
	}

	samples := make([]float64, conf.FFTSize)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float64(s) / 32768.0
	}
	return FrameFromSamples(samples, sampleRate)
}

// FrameFromSamples computes a spectral frame from normalized time-domain
// samples in [-1, 1]. The input must contain exactly conf.FFTSize samples.
func FrameFromSamples(samples []float64, sampleRate int) (*SpectralFrame, error) {
	if len(samples) != conf.FFTSize {
		return nil, errors.Newf("sample chunk must be %d samples, got %d", conf.FFTSize, len(samples)).
			Component("myaudio").
			Category(errors.CategoryAudioAnalysis).
			Build()
	}

	// Window a copy so the frame can still carry the raw samples.
	windowed := make([]float64, len(samples))
	copy(windowed, samples)
	window.Hann(windowed)

	spectrum := fft.FFTReal(windowed)

	// Keep positive frequencies only, including DC and Nyquist.
	bins := len(spectrum)/2 + 1
	magnitudes := make([]float64, bins)
	scale := 1.0 / float64(len(windowed))
	for i := range bins {
		magnitudes[i] = quantizeMagnitude(cmplx.Abs(spectrum[i]) * scale)
	}

	raw := make([]float64, len(samples))
	copy(raw, samples)

	return &SpectralFrame{
		Spectrum:   magnitudes,
		Samples:    raw,
		SampleRate: sampleRate,
		Timestamp:  time.Now(),
	}, nil
}

// quantizeMagnitude maps a linear magnitude onto the fixed-point
// 0..SpectrumScale scale through the configured decibel range.
func quantizeMagnitude(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	if db <= MinDecibels {
		return 0
	}
	if db >= MaxDecibels {
		return conf.SpectrumScale
	}
	return (db - MinDecibels) / (MaxDecibels - MinDecibels) * conf.SpectrumScale
}
