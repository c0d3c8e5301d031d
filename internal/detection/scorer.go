package detection

import (
	"time"

	"github.com/somnetics/apnea-go/internal/conf"
)

// ScoreResult is one tick's fused scoring outcome.
type ScoreResult struct {
	Confidence     float64
	Pattern        Pattern
	IsApnea        bool
	Duration       time.Duration
	Sounds         SoundFlags
	Classification Classification
}

// Scorer fuses the independent detection signals into a per-tick confidence
// value with hysteresis. Per-tick confidence is the maximum of the signals,
// not a weighted sum: any strong single signal should dominate.
//
// The only state carried across ticks is the consecutive-anomaly counter;
// everything else derives from the sample buffers each call.
type Scorer struct {
	t            conf.ThresholdSettings
	bands        conf.BandSettings
	tickInterval time.Duration
	minWindow    int
	matchWindow  int
	matcher      *Matcher

	multiplier           float64
	consecutiveAnomalies int
}

// NewScorer creates a scorer with thresholds and sensitivity taken from the
// detection settings.
func NewScorer(d *conf.DetectionSettings, matcher *Matcher) *Scorer {
	return &Scorer{
		t:            d.Thresholds,
		bands:        d.Bands,
		tickInterval: d.TickInterval,
		minWindow:    d.MinWindow,
		matchWindow:  d.MatchWindow,
		matcher:      matcher,
		multiplier:   conf.SensitivityMultiplier(d.Sensitivity),
	}
}

// SetSensitivity updates the threshold multiplier from a 1..10 level.
func (s *Scorer) SetSensitivity(level int) {
	s.multiplier = conf.SensitivityMultiplier(level)
}

// Reset clears the hysteresis counter. Used at session start/stop.
func (s *Scorer) Reset() {
	s.consecutiveAnomalies = 0
}

// ConsecutiveAnomalies returns the current hysteresis counter value.
func (s *Scorer) ConsecutiveAnomalies() int {
	return s.consecutiveAnomalies
}

// Score fuses the current features and buffered history into a confidence
// value and classification. soundHints carries corroboration from the
// optional ML classifier; zero hints leave the heuristics unchanged.
//
// Signals are evaluated in a fixed order (silence, irregularity, pattern
// match, sound bands, hysteresis) so results are reproducible at threshold
// boundaries.
func (s *Scorer) Score(f Features, patterns, snore, gasp *SampleBuffer, soundHints SoundFlags) ScoreResult {
	// A detector must accumulate a minimum window before it can emit a
	// non-trivial classification.
	if patterns.Len() < s.minWindow {
		return ScoreResult{Pattern: PatternNormal}
	}

	confidence := 0.0

	// Silence: breathing-band energy and time-domain amplitude both below
	// their sensitivity-scaled thresholds.
	silenceThreshold := s.t.Silence * s.multiplier
	if f.Breathing < silenceThreshold && f.Amplitude < silenceThreshold*s.t.TimeDomainFraction {
		confidence = maxConf(confidence, clamp01((silenceThreshold-f.Amplitude)/silenceThreshold))
	}
	// Very low time-domain amplitude alone floors the confidence.
	if f.Amplitude < silenceThreshold*s.t.VeryLowFraction {
		confidence = maxConf(confidence, s.t.VeryLowFloor)
	}

	// Statistical irregularity over the full buffer.
	history := patterns.Values()
	if stddev(history) > s.t.Irregularity*s.multiplier {
		confidence = maxConf(confidence, s.t.IrregularityFloor)
	}

	// Flat-and-quiet: the most recent samples show almost no variation at
	// a low level, the signature of faded breathing.
	recent := patterns.Window(flatWindow)
	if len(recent) == flatWindow {
		recentDev := stddev(recent)
		recentMean := mean(recent)
		if recentDev < s.t.FlatStdDev && recentMean < s.t.FlatMean {
			if recentMean < s.t.ExtremeFlatMean {
				confidence = maxConf(confidence, s.t.ExtremeFlatFloor)
			} else {
				confidence = maxConf(confidence, s.t.FlatFloor)
			}
		}
	}

	// Pattern match against the reference catalog. Only matches in an
	// apnea category may raise confidence; a confident match against a
	// normal-breathing template is reassuring, not alarming.
	cls := s.matcher.Classify(patterns.Window(s.matchWindow))
	if isApneaCategory(cls.Category) && cls.Confidence > s.t.MatchGate {
		confidence = maxConf(confidence, clamp01(cls.Confidence*s.t.MatchBoost))
		if cls.IsApnea {
			confidence = maxConf(confidence, s.t.ApneaMatchFloor)
		}
	}

	// Sound bands: snoring or gasping energy sustained in their own
	// buffers, or corroborated by the classifier.
	sounds := SoundFlags{
		Snoring: soundHints.Snoring || bandTripped(snore.Values(), s.bands.Snoring),
		Gasping: soundHints.Gasping || bandTripped(gasp.Values(), s.bands.Gasping),
	}
	if sounds.Snoring || sounds.Gasping {
		confidence = maxConf(confidence, s.t.SoundFloor)
	}

	// Hysteresis: only persistent anomalies convert into a stable
	// detection; isolated noisy ticks decay back to zero.
	if confidence > s.t.AnomalyBase*s.multiplier {
		s.consecutiveAnomalies++
	} else if s.consecutiveAnomalies > 0 {
		s.consecutiveAnomalies--
	}
	if s.consecutiveAnomalies >= anomalyPersistence {
		confidence = clamp01(confidence + s.t.HysteresisBoost)
	}

	result := ScoreResult{
		Confidence:     confidence,
		Sounds:         sounds,
		Classification: cls,
		Duration:       time.Duration(s.consecutiveAnomalies) * s.tickInterval,
	}
	switch {
	case confidence < s.t.Low:
		result.Pattern = PatternNormal
	case confidence < s.t.High:
		result.Pattern = PatternInterrupted
	default:
		result.Pattern = PatternMissing
		result.IsApnea = true
	}
	return result
}

const (
	// flatWindow is the number of most recent samples inspected by the
	// flat-and-quiet signal.
	flatWindow = 5

	// anomalyPersistence is how many consecutive anomalous ticks are
	// required before the hysteresis boost applies.
	anomalyPersistence = 2
)

// bandTripped reports whether a sound band's buffered averages exceed the
// configured threshold, either sustained (mean above threshold) or as a
// single peak above threshold*peakRatio.
func bandTripped(values []float64, band conf.SoundBand) bool {
	if len(values) == 0 {
		return false
	}
	if mean(values) > band.Threshold {
		return true
	}
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	return peak > band.Threshold*band.PeakRatio
}

// isApneaCategory reports whether a catalog category describes an apnea or
// hypopnea pattern rather than benign sound.
func isApneaCategory(c Category) bool {
	return c == CategoryCentral || c == CategoryObstructive || c == CategoryHypopnea
}

func maxConf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}
