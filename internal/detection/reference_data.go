package detection

// builtinPatterns is the built-in reference catalog. Amplitude envelopes
// are relative breathing-energy sequences sampled at even intervals over
// the nominal duration; variability is the expected coefficient of
// variation (stddev/mean) of a window exhibiting the pattern.
var builtinPatterns = []ReferencePattern{
	// --- Central apnea: airflow and effort both cease ---
	{
		Name:        "central-classic",
		Description: "Breathing fades out completely, stays absent, then resumes abruptly",
		Category:    CategoryCentral,
		Amplitude:   []float64{1.0, 0.8, 0.5, 0.2, 0.05, 0.0, 0.0, 0.0, 0.0, 0.0, 0.05, 0.3, 0.7, 1.0},
		FrequencyLo: 20, FrequencyHi: 400,
		DurationSec: 16,
		Variability: 0.95,
	},
	{
		Name:        "central-prolonged",
		Description: "Extended cessation with a slow, weak recovery",
		Category:    CategoryCentral,
		Amplitude:   []float64{0.9, 0.6, 0.3, 0.1, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.1, 0.25, 0.45, 0.7},
		FrequencyLo: 20, FrequencyHi: 400,
		DurationSec: 24,
		Variability: 1.1,
	},
	{
		Name:        "central-periodic",
		Description: "Cheyne-Stokes style waxing and waning with a silent trough",
		Category:    CategoryCentral,
		Amplitude:   []float64{0.3, 0.7, 1.0, 0.7, 0.3, 0.05, 0.0, 0.0, 0.05, 0.3, 0.7, 1.0, 0.7, 0.3},
		FrequencyLo: 20, FrequencyHi: 450,
		DurationSec: 30,
		Variability: 0.8,
	},

	// --- Obstructive apnea: effort continues against a blocked airway ---
	{
		Name:        "obstructive-struggle",
		Description: "Diminishing airflow with residual effort spikes against the obstruction",
		Category:    CategoryObstructive,
		Amplitude:   []float64{1.0, 0.7, 0.4, 0.2, 0.3, 0.15, 0.25, 0.1, 0.2, 0.6, 1.0},
		FrequencyLo: 30, FrequencyHi: 500,
		DurationSec: 14,
		Variability: 0.85,
	},
	{
		Name:        "obstructive-gasp-recovery",
		Description: "Progressive obstruction terminated by a loud recovery gasp",
		Category:    CategoryObstructive,
		Amplitude:   []float64{0.9, 0.6, 0.35, 0.2, 0.1, 0.1, 0.05, 0.1, 0.05, 1.0, 0.8},
		FrequencyLo: 30, FrequencyHi: 600,
		DurationSec: 13,
		Variability: 0.9,
	},
	{
		Name:        "obstructive-flutter",
		Description: "Partial obstruction with fluttering low-amplitude effort",
		Category:    CategoryObstructive,
		Amplitude:   []float64{0.8, 0.4, 0.5, 0.25, 0.45, 0.2, 0.4, 0.25, 0.5, 0.75},
		FrequencyLo: 40, FrequencyHi: 500,
		DurationSec: 12,
		Variability: 0.6,
	},

	// --- Hypopnea: sustained partial reduction of airflow ---
	{
		Name:        "hypopnea-shallow",
		Description: "Airflow settles at roughly half depth, then recovers",
		Category:    CategoryHypopnea,
		Amplitude:   []float64{1.0, 0.8, 0.6, 0.5, 0.45, 0.4, 0.45, 0.5, 0.7, 0.9},
		FrequencyLo: 20, FrequencyHi: 400,
		DurationSec: 15,
		Variability: 0.35,
	},
	{
		Name:        "hypopnea-gradual",
		Description: "Slow decline to a 30-40% floor held across the window",
		Category:    CategoryHypopnea,
		Amplitude:   []float64{1.0, 0.9, 0.75, 0.6, 0.5, 0.4, 0.35, 0.35, 0.4, 0.5, 0.65},
		FrequencyLo: 20, FrequencyHi: 400,
		DurationSec: 18,
		Variability: 0.4,
	},

	// --- Snoring: rhythmic high-energy oscillation ---
	{
		Name:        "snore-rhythmic",
		Description: "Regular alternation between loud snore and quiet inhale",
		Category:    CategorySnoring,
		Amplitude:   []float64{1.0, 0.3, 0.9, 0.35, 1.0, 0.3, 0.95, 0.3, 1.0, 0.35},
		FrequencyLo: 30, FrequencyHi: 500,
		DurationSec: 10,
		Variability: 0.55,
	},
	{
		Name:        "snore-crescendo",
		Description: "Snoring that builds in intensity toward an arousal",
		Category:    CategorySnoring,
		Amplitude:   []float64{0.4, 0.2, 0.55, 0.25, 0.7, 0.3, 0.85, 0.35, 1.0, 0.4},
		FrequencyLo: 30, FrequencyHi: 500,
		DurationSec: 12,
		Variability: 0.5,
	},

	// --- Normal breathing ---
	{
		Name:        "normal-regular",
		Description: "Even, unlabored breathing at rest",
		Category:    CategoryNormal,
		Amplitude:   []float64{0.85, 1.0, 0.9, 0.95, 1.0, 0.85, 0.95, 0.9, 1.0, 0.9},
		FrequencyLo: 20, FrequencyHi: 300,
		DurationSec: 10,
		Variability: 0.08,
	},
	{
		Name:        "normal-deep",
		Description: "Slow deep breathing with mild cyclic variation",
		Category:    CategoryNormal,
		Amplitude:   []float64{0.7, 0.9, 1.0, 0.9, 0.7, 0.75, 0.9, 1.0, 0.9, 0.75},
		FrequencyLo: 20, FrequencyHi: 250,
		DurationSec: 12,
		Variability: 0.15,
	},
}
