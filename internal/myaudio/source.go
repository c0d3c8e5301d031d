// Package myaudio handles audio capture and spectral frame production for
// the breathing analysis engine.
//
// A Source owns the audio input and periodically yields a SpectralFrame,
// the frequency-domain snapshot consumed by the feature extractor. Frames
// are ephemeral: they are valid only for the tick that requested them and
// must not be retained by consumers.
package myaudio

import (
	"context"
	"time"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/errors"
)

// ErrNoData indicates that the source has not yet buffered enough audio to
// produce a frame. Not a failure; callers should retry on a later tick.
var ErrNoData = errors.NewStd("myaudio: not enough audio buffered")

// Source is an audio input that produces spectral frames on demand.
// Start and Stop are idempotent. Frame never blocks.
type Source interface {
	// Start acquires the underlying audio resource. Acquiring a device may
	// be slow (permission prompts); callers keep it out of the tick path.
	Start(ctx context.Context) error

	// Stop releases the audio resource. Safe to call at any time, including
	// before Start or twice in a row.
	Stop() error

	// Active reports whether the source is currently capturing.
	Active() bool

	// Frame returns the most recent spectral frame, or ErrNoData if the
	// source has not buffered a full analysis window yet.
	Frame() (*SpectralFrame, error)

	// Level returns the audio level computed during the most recent
	// successful Frame call, for live metering.
	Level() AudioLevelData
}

// SpectralFrame is one tick's frequency-domain snapshot plus the raw
// time-domain samples it was computed from.
//
// Spectrum holds per-bin magnitudes on the fixed-point 0..SpectrumScale
// scale; bin i covers frequencies around i*SampleRate/FFTSize Hz.
// Samples are normalized to [-1, 1].
type SpectralFrame struct {
	Spectrum   []float64
	Samples    []float64
	SampleRate int
	Timestamp  time.Time
}

// FrequencyResolution returns the width of one spectrum bin in Hz.
func (f *SpectralFrame) FrequencyResolution() float64 {
	return float64(f.SampleRate) / float64(conf.FFTSize)
}

// BinRange maps a frequency band in Hz to the inclusive bin index range
// [lo, hi] of the spectrum. The range is clamped to valid bins.
func (f *SpectralFrame) BinRange(minHz, maxHz float64) (lo, hi int) {
	res := f.FrequencyResolution()
	lo = int(minHz / res)
	hi = int(maxHz / res)
	if lo < 0 {
		lo = 0
	}
	if hi > len(f.Spectrum)-1 {
		hi = len(f.Spectrum) - 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
