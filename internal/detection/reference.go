package detection

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/somnetics/apnea-go/internal/errors"
	"gopkg.in/yaml.v3"
)

// Category partitions the reference catalog by breathing pattern class.
type Category string

const (
	CategoryCentral     Category = "central-apnea"
	CategoryObstructive Category = "obstructive-apnea"
	CategoryHypopnea    Category = "hypopnea"
	CategorySnoring     Category = "snoring"
	CategoryNormal      Category = "normal"
)

// categoryOrder is the evaluation order of Classify. Fixed so score ties
// resolve deterministically.
var categoryOrder = []Category{
	CategoryCentral,
	CategoryObstructive,
	CategoryHypopnea,
	CategorySnoring,
	CategoryNormal,
}

// categoryWeights are the fixed reliability weights applied to match
// similarity per category. Central apnea templates are the most clinically
// distinctive, snoring the least.
var categoryWeights = map[Category]float64{
	CategoryCentral:     1.0,
	CategoryObstructive: 0.9,
	CategoryNormal:      0.8,
	CategoryHypopnea:    0.7,
	CategorySnoring:     0.5,
}

// ReferencePattern is one immutable amplitude-envelope template derived
// from clinically observed breathing patterns.
type ReferencePattern struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Category    Category  `yaml:"category"`
	Amplitude   []float64 `yaml:"amplitude"`       // ordered relative amplitudes, 0..1
	FrequencyLo float64   `yaml:"frequency_lo_hz"` // characteristic band lower bound
	FrequencyHi float64   `yaml:"frequency_hi_hz"` // characteristic band upper bound
	DurationSec float64   `yaml:"duration_seconds"`
	Variability float64   `yaml:"variability"` // dispersion relative to mean
}

// Duration returns the nominal template duration.
func (p *ReferencePattern) Duration() time.Duration {
	return time.Duration(p.DurationSec * float64(time.Second))
}

// Library is the immutable catalog of reference patterns, grouped by
// category. Loaded once at startup and shared read-only by every detector
// instance; it is never mutated after construction.
type Library struct {
	byCategory map[Category][]ReferencePattern
}

var (
	defaultLibraryOnce sync.Once
	defaultLibrary     *Library
)

// DefaultLibrary returns the process-wide built-in catalog.
func DefaultLibrary() *Library {
	defaultLibraryOnce.Do(func() {
		lib, err := newLibrary(builtinPatterns)
		if err != nil {
			// builtinPatterns is compile-time data; a failure here is a bug.
			panic(err)
		}
		defaultLibrary = lib
	})
	return defaultLibrary
}

// LoadLibrary reads a reference catalog from a YAML file. The file fully
// replaces the built-in catalog; it is validated with the same rules.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read pattern catalog: %w", err)).
			Component("detection").
			Category(errors.CategoryCatalog).
			FileContext(path, 0).
			Build()
	}

	var patterns []ReferencePattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse pattern catalog: %w", err)).
			Component("detection").
			Category(errors.CategoryCatalog).
			FileContext(path, 0).
			Build()
	}

	lib, err := newLibrary(patterns)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryCatalog).
			FileContext(path, 0).
			Build()
	}
	return lib, nil
}

func newLibrary(patterns []ReferencePattern) (*Library, error) {
	byCategory := make(map[Category][]ReferencePattern)
	for i := range patterns {
		p := patterns[i]
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %d has no name", i)
		}
		if _, ok := categoryWeights[p.Category]; !ok {
			return nil, fmt.Errorf("pattern %q has unknown category %q", p.Name, p.Category)
		}
		if len(p.Amplitude) < 2 {
			return nil, fmt.Errorf("pattern %q needs at least 2 amplitude points, has %d", p.Name, len(p.Amplitude))
		}
		for _, a := range p.Amplitude {
			if a < 0 || a > 1 {
				return nil, fmt.Errorf("pattern %q has amplitude %g outside [0, 1]", p.Name, a)
			}
		}
		if p.Variability < 0 {
			return nil, fmt.Errorf("pattern %q has negative variability %g", p.Name, p.Variability)
		}
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	if len(byCategory) == 0 {
		return nil, fmt.Errorf("pattern catalog is empty")
	}
	return &Library{byCategory: byCategory}, nil
}

// Patterns returns the templates of one category. Callers must not modify
// the returned slice.
func (l *Library) Patterns(c Category) []ReferencePattern {
	return l.byCategory[c]
}

// Categories returns the categories present in the catalog, in evaluation
// order.
func (l *Library) Categories() []Category {
	out := make([]Category, 0, len(l.byCategory))
	for _, c := range categoryOrder {
		if len(l.byCategory[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the total number of templates.
func (l *Library) Len() int {
	n := 0
	for _, ps := range l.byCategory {
		n += len(ps)
	}
	return n
}
