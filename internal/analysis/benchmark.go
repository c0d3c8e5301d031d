package analysis

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/detection"
	"github.com/somnetics/apnea-go/internal/logging"
)

// BenchmarkResult reports matcher throughput on this machine. The matcher
// dominates the per-tick cost, so its latency bounds the tick rate the
// engine can sustain.
type BenchmarkResult struct {
	Iterations     int
	Total          time.Duration
	MeanLatency    time.Duration
	StdDevLatency  time.Duration
	P95Latency     time.Duration
	TicksPerSecond float64
}

// MatcherBenchmark classifies synthetic breathing windows against the
// configured reference catalog and reports latency statistics.
func MatcherBenchmark(settings *conf.Settings, iterations int) (*BenchmarkResult, error) {
	log := logging.ForService("analysis")

	library := detection.DefaultLibrary()
	if path := settings.Detection.CatalogPath; path != "" {
		var err error
		library, err = detection.LoadLibrary(path)
		if err != nil {
			return nil, err
		}
	}

	matcher := detection.NewMatcher(library, settings.Detection.Thresholds.MatchFloor)
	windows := syntheticWindows(iterations, settings.Detection.MatchWindow)

	latencies := make([]float64, iterations)
	start := time.Now()
	for i, window := range windows {
		t0 := time.Now()
		_ = matcher.Classify(window)
		latencies[i] = float64(time.Since(t0).Nanoseconds())
	}
	total := time.Since(start)

	sort.Float64s(latencies)
	meanNs := stat.Mean(latencies, nil)
	devNs := stat.StdDev(latencies, nil)
	p95Ns := stat.Quantile(0.95, stat.Empirical, latencies, nil)

	result := &BenchmarkResult{
		Iterations:     iterations,
		Total:          total,
		MeanLatency:    time.Duration(meanNs),
		StdDevLatency:  time.Duration(devNs),
		P95Latency:     time.Duration(p95Ns),
		TicksPerSecond: float64(iterations) / total.Seconds(),
	}

	log.Info("matcher benchmark complete",
		"iterations", result.Iterations,
		"mean", result.MeanLatency,
		"p95", result.P95Latency,
		"ticks_per_second", int(result.TicksPerSecond))
	return result, nil
}

// syntheticWindows generates breathing-like sample windows: a slow sine
// envelope with additive noise, occasionally flattened to mimic an apnea
// segment so both matcher paths get exercised.
func syntheticWindows(n, windowSize int) [][]float64 {
	rng := rand.New(rand.NewSource(42))
	windows := make([][]float64, n)
	for i := range windows {
		window := make([]float64, windowSize)
		flat := i%4 == 0
		for j := range window {
			if flat {
				window[j] = 0.05 + rng.Float64()*0.02
				continue
			}
			phase := 2 * math.Pi * float64(j) / float64(windowSize)
			window[j] = 0.5 + 0.4*math.Sin(phase) + (rng.Float64()-0.5)*0.1
		}
		windows[i] = window
	}
	return windows
}
