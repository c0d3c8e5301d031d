// conf/validate.go settings validation
package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks the loaded settings for values the engine cannot
// operate with. Validation failures abort startup; the engine never patches
// a bad value silently.
func ValidateSettings(settings *Settings) error {
	var errs []error

	d := &settings.Detection

	if d.Sensitivity < 1 || d.Sensitivity > 10 {
		errs = append(errs, fmt.Errorf("detection.sensitivity must be between 1 and 10, got %d", d.Sensitivity))
	}
	if d.PatternBufferSize < d.MinWindow {
		errs = append(errs, fmt.Errorf("detection.patternbuffersize %d is smaller than detection.minwindow %d",
			d.PatternBufferSize, d.MinWindow))
	}
	if d.MatchWindow < 2 {
		errs = append(errs, fmt.Errorf("detection.matchwindow must be at least 2, got %d", d.MatchWindow))
	}
	if d.SoundBufferSize < 1 {
		errs = append(errs, fmt.Errorf("detection.soundbuffersize must be positive, got %d", d.SoundBufferSize))
	}
	if d.MinTickInterval <= 0 {
		errs = append(errs, fmt.Errorf("detection.mintickinterval must be positive, got %v", d.MinTickInterval))
	}
	if d.TickInterval < d.MinTickInterval {
		errs = append(errs, fmt.Errorf("detection.tickinterval %v is below detection.mintickinterval %v",
			d.TickInterval, d.MinTickInterval))
	}

	for _, band := range []struct {
		name     string
		min, max float64
	}{
		{"breathing", d.Bands.Breathing.MinHz, d.Bands.Breathing.MaxHz},
		{"reference", d.Bands.Reference.MinHz, d.Bands.Reference.MaxHz},
		{"snoring", d.Bands.Snoring.MinHz, d.Bands.Snoring.MaxHz},
		{"gasping", d.Bands.Gasping.MinHz, d.Bands.Gasping.MaxHz},
	} {
		if band.min < 0 || band.max <= band.min {
			errs = append(errs, fmt.Errorf("detection.bands.%s range [%g, %g] is invalid", band.name, band.min, band.max))
		}
		if band.max > SampleRate/2 {
			errs = append(errs, fmt.Errorf("detection.bands.%s upper bound %g Hz exceeds the Nyquist frequency %d Hz",
				band.name, band.max, SampleRate/2))
		}
	}

	t := &d.Thresholds
	if t.Low >= t.High {
		errs = append(errs, fmt.Errorf("detection.thresholds.low %g must be below detection.thresholds.high %g", t.Low, t.High))
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"silence", t.Silence},
		{"anomalybase", t.AnomalyBase},
		{"matchfloor", t.MatchFloor},
		{"ambientnoise", t.AmbientNoise},
	} {
		if v.value <= 0 || v.value > 1 {
			errs = append(errs, fmt.Errorf("detection.thresholds.%s must be in (0, 1], got %g", v.name, v.value))
		}
	}

	return errors.Join(errs...)
}

// SensitivityMultiplier maps a sensitivity level in 1..10 to the threshold
// multiplier used by the confidence scorer. Higher levels mean more
// sensitive detection, so the multiplier decreases strictly with level:
// level 1 -> 1.4, level 10 -> 0.5.
func SensitivityMultiplier(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	return 1.5 - 0.1*float64(level)
}
