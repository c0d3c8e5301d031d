// Package detection implements the streaming breathing-pattern analysis
// engine: feature extraction from spectral frames, bounded sample history,
// reference pattern matching and the hysteresis-smoothed confidence scorer
// that drives apnea classification.
package detection

import "time"

// Pattern is the per-tick breathing classification.
type Pattern string

const (
	// PatternNormal means breathing looks regular.
	PatternNormal Pattern = "normal"
	// PatternInterrupted means breathing is irregular but not absent.
	PatternInterrupted Pattern = "interrupted"
	// PatternMissing means breathing appears to have stopped.
	PatternMissing Pattern = "missing"
)

// Severity grades a detected event.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// SoundFlags records which auxiliary sound categories tripped this tick.
type SoundFlags struct {
	Snoring bool `json:"snoring"`
	Gasping bool `json:"gasping"`
}

// Event is the per-tick output of the detection engine. Events are plain
// values; consumers receive copies and never a live view into the engine's
// internal buffers.
type Event struct {
	Timestamp  time.Time     `json:"timestamp"`
	IsApnea    bool          `json:"is_apnea"`
	Confidence float64       `json:"confidence"` // 0..1, post-hysteresis
	Duration   time.Duration `json:"duration"`   // estimated anomaly duration
	Pattern    Pattern       `json:"pattern"`
	Severity   Severity      `json:"severity"`
	Sounds     SoundFlags    `json:"sounds"`

	// MatchedPattern names the best-matching reference template, if any.
	MatchedPattern string  `json:"matched_pattern,omitempty"`
	MatchScore     float64 `json:"match_score,omitempty"`

	// NonBreathingNoise is set when ambient noise contaminated this tick
	// and the sample buffers were left unmodified.
	NonBreathingNoise bool `json:"non_breathing_noise"`
}

// neutralEvent is the event reported before the engine has accumulated a
// minimum analysis window, or while it is stopped.
func neutralEvent(now time.Time) Event {
	return Event{
		Timestamp:  now,
		Pattern:    PatternNormal,
		Severity:   SeverityNone,
		Confidence: 0,
	}
}
