package detection

import (
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/myaudio"
)

// Features is the reduction of one spectral frame into the scalars the
// scorer consumes.
type Features struct {
	// Breathing is the blended breathing-band energy sample in [0, 1]:
	// peak-normalized band average plus the time-domain amplitude average,
	// clamped. The additive blend keeps transient events visible that
	// frequency averaging smooths away.
	Breathing float64

	// Amplitude is the time-domain amplitude average in [0, 1].
	Amplitude float64

	// Snoring and Gasping are the peak-normalized band averages for the
	// auxiliary sound detectors, computed on every tick.
	Snoring float64
	Gasping float64

	// Suppressed marks a noise-contaminated tick: the non-breathing
	// reference band exceeded the ambient noise threshold, so none of the
	// sample buffers may be updated from this frame.
	Suppressed bool
}

// FeatureExtractor reduces spectral frames into Features using the
// configured frequency bands. It holds no mutable state.
type FeatureExtractor struct {
	bands        conf.BandSettings
	ambientNoise float64
}

// NewFeatureExtractor creates an extractor for the configured bands.
func NewFeatureExtractor(d *conf.DetectionSettings) *FeatureExtractor {
	return &FeatureExtractor{
		bands:        d.Bands,
		ambientNoise: d.Thresholds.AmbientNoise,
	}
}

// Extract computes the per-tick features from a frame. It has no side
// effects; recording samples into buffers is the detector's job.
func (fe *FeatureExtractor) Extract(frame *myaudio.SpectralFrame) Features {
	peak := spectrumPeak(frame.Spectrum)

	breathing := bandAverage(frame, fe.bands.Breathing.MinHz, fe.bands.Breathing.MaxHz, peak)
	reference := bandAverage(frame, fe.bands.Reference.MinHz, fe.bands.Reference.MaxHz, peak)
	snoring := bandAverage(frame, fe.bands.Snoring.MinHz, fe.bands.Snoring.MaxHz, peak)
	gasping := bandAverage(frame, fe.bands.Gasping.MinHz, fe.bands.Gasping.MaxHz, peak)

	amplitude := amplitudeAverage(frame.Samples)

	blended := breathing + amplitude
	if blended > 1 {
		blended = 1
	}

	return Features{
		Breathing:  blended,
		Amplitude:  amplitude,
		Snoring:    snoring,
		Gasping:    gasping,
		Suppressed: reference > fe.ambientNoise,
	}
}

// spectrumPeak returns the maximum bin magnitude of the frame. A single
// left-to-right pass; evaluation order matters for reproducibility at
// threshold boundaries.
func spectrumPeak(spectrum []float64) float64 {
	peak := 0.0
	for _, v := range spectrum {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// bandAverage computes the average magnitude within [minHz, maxHz],
// normalized by the frame's own peak so the result is invariant to
// microphone gain. Accumulation runs in ascending bin order.
func bandAverage(frame *myaudio.SpectralFrame, minHz, maxHz, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	lo, hi := frame.BinRange(minHz, maxHz)
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += frame.Spectrum[i]
	}
	return sum / float64(hi-lo+1) / peak
}

// amplitudeAverage computes the mean absolute sample value in sample order.
func amplitudeAverage(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		if s < 0 {
			sum -= s
		} else {
			sum += s
		}
	}
	return sum / float64(len(samples))
}
