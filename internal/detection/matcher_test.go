package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template []float64
		target   int
		want     []float64
	}{
		{"upsample preserves endpoints", []float64{0, 1}, 3, []float64{0, 0.5, 1}},
		{"identity", []float64{0.2, 0.8, 0.4}, 3, []float64{0.2, 0.8, 0.4}},
		{"downsample preserves endpoints", []float64{0, 0.25, 0.5, 0.75, 1}, 3, []float64{0, 0.5, 1}},
		{"single sample takes first", []float64{0.6, 0.1}, 1, []float64{0.6}},
		{"empty template", nil, 4, nil},
		{"zero target", []float64{1, 2}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResizePattern(tt.template, tt.target)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestResizePatternEndpointsExact(t *testing.T) {
	t.Parallel()

	template := []float64{0.37, 0.9, 0.12, 0.55, 0.81}
	for _, target := range []int{2, 7, 50, 100} {
		got := ResizePattern(template, target)
		require.Len(t, got, target)
		assert.Equal(t, template[0], got[0], "target %d", target)
		assert.Equal(t, template[len(template)-1], got[target-1], "target %d", target)
	}
}

func TestSimilarityBounds(t *testing.T) {
	t.Parallel()

	window := []float64{0.9, 0.4, 0.1, 0.0, 0.0, 0.3, 0.8}
	for _, p := range builtinPatterns {
		sim := Similarity(window, &p)
		assert.GreaterOrEqual(t, sim, 0.0, p.Name)
		assert.LessOrEqual(t, sim, 1.0, p.Name)
	}
}

func TestSimilarityDegenerateInputs(t *testing.T) {
	t.Parallel()

	p := &builtinPatterns[0]
	assert.Zero(t, Similarity(nil, p))
	assert.Zero(t, Similarity([]float64{0, 0, 0}, p))
	assert.Zero(t, Similarity([]float64{0.5}, &ReferencePattern{}))
}

func TestSimilarityScaleInvariant(t *testing.T) {
	t.Parallel()

	// Peak normalization makes the score invariant to input gain.
	p := &builtinPatterns[0]
	window := []float64{0.8, 0.6, 0.2, 0.0, 0.0, 0.1, 0.5, 0.9}
	scaled := make([]float64, len(window))
	for i, v := range window {
		scaled[i] = v * 0.25
	}
	assert.InDelta(t, Similarity(window, p), Similarity(scaled, p), 1e-9)
}

func TestBestMatchRejectsBelowFloor(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultLibrary(), 0.5)

	_, ok := m.BestMatch([]float64{0, 0, 0, 0}, CategoryCentral)
	assert.False(t, ok, "all-zero window must not match")

	// An impossible floor rejects everything.
	strict := NewMatcher(DefaultLibrary(), 1.0)
	_, ok = strict.BestMatch([]float64{1.0, 0.5, 0.0, 0.0, 0.5, 1.0}, CategoryCentral)
	assert.False(t, ok)
}

func TestClassifyRecognizesCentralApnea(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultLibrary(), 0.5)

	// A window tracing a central apnea envelope must classify as central
	// apnea with high confidence, regardless of absolute gain.
	var central *ReferencePattern
	for i := range builtinPatterns {
		if builtinPatterns[i].Name == "central-classic" {
			central = &builtinPatterns[i]
		}
	}
	require.NotNil(t, central)

	window := make([]float64, len(central.Amplitude))
	for i, v := range central.Amplitude {
		window[i] = v * 0.4
	}

	c := m.Classify(window)
	assert.Equal(t, CategoryCentral, c.Category)
	assert.Equal(t, "central-classic", c.Pattern)
	assert.Greater(t, c.Confidence, 0.85)
	assert.True(t, c.IsApnea)
	assert.Equal(t, SeveritySevere, c.Severity)
}

func TestClassifyNoMatchIsDeterministic(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultLibrary(), 0.5)

	c := m.Classify([]float64{0, 0, 0, 0, 0})
	assert.Empty(t, c.Pattern)
	assert.Empty(t, c.Category)
	assert.InDelta(t, 0.1, c.Confidence, 1e-12)
	assert.False(t, c.IsApnea)
	assert.Equal(t, SeverityNone, c.Severity)
}

func TestClassifySteadyBreathingIsNotApnea(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultLibrary(), 0.5)

	window := []float64{0.85, 1.0, 0.9, 0.95, 1.0, 0.85, 0.95, 0.9, 1.0, 0.9}
	c := m.Classify(window)
	assert.Equal(t, CategoryNormal, c.Category)
	assert.False(t, c.IsApnea)
	assert.Equal(t, SeverityNone, c.Severity)
}

func TestClassifySeverityTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    Classification
		want Severity
	}{
		{"severe central", Classification{Category: CategoryCentral, Confidence: 0.90, IsApnea: true}, SeveritySevere},
		{"moderate central", Classification{Category: CategoryCentral, Confidence: 0.80, IsApnea: true}, SeverityModerate},
		{"moderate high obstructive", Classification{Category: CategoryObstructive, Confidence: 0.88, IsApnea: true}, SeverityModerate},
		{"mild obstructive", Classification{Category: CategoryObstructive, Confidence: 0.78, IsApnea: true}, SeverityMild},
		{"mild hypopnea without apnea", Classification{Category: CategoryHypopnea, Confidence: 0.75}, SeverityMild},
		{"none", Classification{Category: CategorySnoring, Confidence: 0.9}, SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySeverity(&tt.c))
		})
	}
}
