package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Detection = DetectionSettings{
		Sensitivity:       5,
		TickInterval:      200 * time.Millisecond,
		MinTickInterval:   60 * time.Millisecond,
		MinSubscribeEvery: 200 * time.Millisecond,
		PatternBufferSize: 100,
		SoundBufferSize:   10,
		RecentEventsSize:  10,
		MinWindow:         5,
		MatchWindow:       10,
		Bands: BandSettings{
			Breathing: Band{MinHz: 20, MaxHz: 600},
			Reference: Band{MinHz: 1000, MaxHz: 3000},
			Snoring:   SoundBand{MinHz: 30, MaxHz: 500, Threshold: 0.45, PeakRatio: 1.2},
			Gasping:   SoundBand{MinHz: 200, MaxHz: 2500, Threshold: 0.50, PeakRatio: 1.2},
		},
		Thresholds: ThresholdSettings{
			Silence:      0.15,
			AnomalyBase:  0.13,
			MatchFloor:   0.5,
			AmbientNoise: 0.55,
			Low:          0.10,
			High:         0.30,
		},
	}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"sensitivity too low", func(s *Settings) { s.Detection.Sensitivity = 0 }},
		{"sensitivity too high", func(s *Settings) { s.Detection.Sensitivity = 11 }},
		{"pattern buffer below min window", func(s *Settings) { s.Detection.PatternBufferSize = 3 }},
		{"match window too small", func(s *Settings) { s.Detection.MatchWindow = 1 }},
		{"sound buffer empty", func(s *Settings) { s.Detection.SoundBufferSize = 0 }},
		{"zero min tick interval", func(s *Settings) { s.Detection.MinTickInterval = 0 }},
		{"tick below throttle floor", func(s *Settings) { s.Detection.TickInterval = 10 * time.Millisecond }},
		{"inverted band", func(s *Settings) { s.Detection.Bands.Breathing = Band{MinHz: 600, MaxHz: 20} }},
		{"band beyond nyquist", func(s *Settings) { s.Detection.Bands.Reference.MaxHz = 9000 }},
		{"low above high", func(s *Settings) { s.Detection.Thresholds.Low = 0.5 }},
		{"silence out of range", func(s *Settings) { s.Detection.Thresholds.Silence = 0 }},
		{"match floor above one", func(s *Settings) { s.Detection.Thresholds.MatchFloor = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, ValidateSettings(s))
		})
	}
}

func TestSensitivityMultiplier(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.4, SensitivityMultiplier(1), 1e-9)
	assert.InDelta(t, 1.0, SensitivityMultiplier(5), 1e-9)
	assert.InDelta(t, 0.5, SensitivityMultiplier(10), 1e-9)

	// Out-of-range levels clamp instead of extrapolating.
	assert.InDelta(t, 1.4, SensitivityMultiplier(-3), 1e-9)
	assert.InDelta(t, 0.5, SensitivityMultiplier(99), 1e-9)

	// Strictly decreasing across the whole range.
	for level := 2; level <= 10; level++ {
		assert.Less(t, SensitivityMultiplier(level), SensitivityMultiplier(level-1))
	}
}
