package detection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/somnetics/apnea-go/internal/classifier"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/errors"
	"github.com/somnetics/apnea-go/internal/logging"
	"github.com/somnetics/apnea-go/internal/myaudio"
	"github.com/somnetics/apnea-go/internal/observability"
)

// Clock abstracts time for the throttle logic so tests can drive ticks
// without real time passing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Detector owns one detection session: the capture source, the sample
// buffers, the scorer and the event history. All mutable state is confined
// to the instance, so independent sessions can coexist.
//
// The tick path is single-threaded by construction: Tick holds the
// detector lock for the whole pipeline pass, and the throttle guard doubles
// as a re-entrancy guard for bursty callers.
type Detector struct {
	settings *conf.Settings
	log      *slog.Logger

	source  myaudio.Source
	clf     classifier.Classifier
	clock   Clock
	metrics *observability.Metrics
	library *Library

	mu        sync.Mutex
	extractor *FeatureExtractor
	scorer    *Scorer
	patterns  *SampleBuffer
	snore     *SampleBuffer
	gasp      *SampleBuffer
	recent    []Event

	started     bool
	initialized bool
	lastTick    time.Time
	lastEvent   Event
	haveEvent   bool
	lastSample  float64
	haveSample  bool

	subMu     sync.Mutex
	subs      map[uint64]context.CancelFunc
	nextSubID uint64
	subWG     sync.WaitGroup
}

// Option configures a Detector.
type Option func(*Detector)

// WithSource injects the audio source. Defaults to the system capture
// device.
func WithSource(s myaudio.Source) Option {
	return func(d *Detector) { d.source = s }
}

// WithClassifier injects the auxiliary sound classifier, bypassing model
// loading in Init.
func WithClassifier(c classifier.Classifier) Option {
	return func(d *Detector) { d.clf = c }
}

// WithClock injects the clock used by the tick throttle.
func WithClock(c Clock) Option {
	return func(d *Detector) { d.clock = c }
}

// WithLibrary injects the reference pattern library, bypassing catalog
// loading in Init.
func WithLibrary(l *Library) Option {
	return func(d *Detector) { d.library = l }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// New creates a detector. No resources are acquired; call Init, then Start.
func New(settings *conf.Settings, opts ...Option) *Detector {
	d := &Detector{
		settings: settings,
		log:      logging.ForService("detection"),
		clock:    systemClock{},
		clf:      classifier.Null{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.source == nil {
		d.source = myaudio.NewDeviceSource(settings)
	}
	return d
}

// Init prepares the detector: loads the reference catalog and attempts to
// load the optional sound classifier. A classifier failure is non-fatal
// and logged once; the engine proceeds heuristic-only. A catalog failure
// is fatal since matching cannot work without templates.
//
// Device acquisition deliberately happens in Start, not here, keeping the
// slow path (permission prompts) out of construction.
func (d *Detector) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ds := &d.settings.Detection

	if d.library == nil {
		if ds.CatalogPath != "" {
			lib, err := LoadLibrary(ds.CatalogPath)
			if err != nil {
				return err
			}
			d.library = lib
		} else {
			d.library = DefaultLibrary()
		}
	}

	if _, isNull := d.clf.(classifier.Null); isNull && d.settings.Classifier.ModelPath != "" {
		clf, err := classifier.NewTFLite(d.settings.Classifier.ModelPath)
		if err != nil {
			// Heuristics carry the session; the model is a bonus.
			d.log.Warn("sound classifier unavailable, continuing heuristic-only", "error", err)
		} else {
			d.clf = clf
		}
	}

	matcher := NewMatcher(d.library, ds.Thresholds.MatchFloor)
	d.extractor = NewFeatureExtractor(ds)
	d.scorer = NewScorer(ds, matcher)
	d.patterns = NewSampleBuffer(ds.PatternBufferSize)
	d.snore = NewSampleBuffer(ds.SoundBufferSize)
	d.gasp = NewSampleBuffer(ds.SoundBufferSize)
	d.initialized = true

	d.log.Info("detector initialized",
		"templates", d.library.Len(),
		"sensitivity", ds.Sensitivity,
		"pattern_buffer", ds.PatternBufferSize)
	return nil
}

// Start acquires the capture device and begins a session. Idempotent:
// calling Start while running is a no-op returning nil.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return errors.Newf("detector not initialized").
			Component("detection").
			Category(errors.CategoryState).
			Build()
	}
	if d.started {
		return nil
	}

	if err := d.source.Start(ctx); err != nil {
		// Surfaced once; no automatic retry. The caller re-invokes Start
		// after resolving the underlying cause.
		return err
	}

	d.resetLocked()
	d.started = true
	d.log.Info("detection session started")
	return nil
}

// Stop halts the session, cancels subscriptions and releases the capture
// device. Idempotent and callable at any time; buffers are reset so a
// subsequent Start begins clean.
func (d *Detector) Stop() {
	d.subMu.Lock()
	for _, cancel := range d.subs {
		cancel()
	}
	d.subs = nil
	d.subMu.Unlock()
	d.subWG.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return
	}
	if err := d.source.Stop(); err != nil {
		d.log.Warn("capture source stop failed", "error", err)
	}
	d.resetLocked()
	d.started = false
	d.log.Info("detection session stopped")
}

// Close stops the session and releases the classifier. The detector cannot
// be reused afterwards.
func (d *Detector) Close() {
	d.Stop()
	d.clf.Close()
}

// resetLocked clears all per-session state. Caller holds d.mu.
func (d *Detector) resetLocked() {
	d.patterns.Reset()
	d.snore.Reset()
	d.gasp.Reset()
	d.scorer.Reset()
	d.haveEvent = false
	d.haveSample = false
	d.lastTick = time.Time{}
}

// SetSensitivity adjusts the detection sensitivity, 1 (least) to 10 (most).
func (d *Detector) SetSensitivity(level int) error {
	if level < 1 || level > 10 {
		return errors.Newf("sensitivity level must be between 1 and 10, got %d", level).
			Component("detection").
			Category(errors.CategoryValidation).
			Build()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings.Detection.Sensitivity = level
	if d.scorer != nil {
		d.scorer.SetSensitivity(level)
	}
	return nil
}

// CurrentBreathingSample returns the most recent breathing-energy sample
// for live visualization, bypassing the tick throttle. The second return
// is false when the detector is not listening or has no sample yet.
func (d *Detector) CurrentBreathingSample() (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started || !d.haveSample {
		return 0, false
	}
	return d.lastSample, true
}

// RecentEvents returns a copy of the retained event history, oldest first.
func (d *Detector) RecentEvents() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.recent))
	copy(out, d.recent)
	return out
}

// Tick runs one full analysis pass and returns the resulting event.
// Calls arriving faster than the configured minimum analysis interval
// return the previously cached event instead of recomputing, bounding CPU
// cost under bursty callers.
func (d *Detector) Tick() Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()

	if !d.started {
		return neutralEvent(now)
	}

	if d.haveEvent && now.Sub(d.lastTick) < d.settings.Detection.MinTickInterval {
		if d.metrics != nil {
			d.metrics.ThrottledTicks.Inc()
		}
		return d.lastEvent
	}

	event := d.analyze(now)

	d.lastTick = now
	d.lastEvent = event
	d.haveEvent = true
	d.recordEvent(event)
	return event
}

// analyze executes one capture->extract->score pipeline pass. Caller holds
// d.mu.
func (d *Detector) analyze(now time.Time) Event {
	if d.metrics != nil {
		d.metrics.TicksTotal.Inc()
	}

	frame, err := d.source.Frame()
	if err != nil {
		switch {
		case errors.Is(err, myaudio.ErrNoData):
			// Not enough audio buffered yet; report neutral.
		case errors.Is(err, io.EOF):
			// Source exhausted (file replay); report neutral.
		default:
			d.log.Error("failed to read spectral frame", "error", err)
		}
		return neutralEvent(now)
	}

	features := d.extractor.Extract(frame)

	if features.Suppressed {
		// Contaminated ticks would corrupt the breathing baseline, so the
		// buffers stay untouched and the event carries the noise flag.
		if d.metrics != nil {
			d.metrics.SuppressedTicks.Inc()
		}
	} else {
		d.patterns.Push(features.Breathing)
		d.snore.Push(features.Snoring)
		d.gasp.Push(features.Gasping)
		d.lastSample = features.Breathing
		d.haveSample = true
	}

	hints := d.classifierHints(frame.Samples)
	result := d.scorer.Score(features, d.patterns, d.snore, d.gasp, hints)

	event := Event{
		Timestamp:         now,
		IsApnea:           result.IsApnea,
		Confidence:        result.Confidence,
		Duration:          result.Duration,
		Pattern:           result.Pattern,
		Severity:          result.Classification.Severity,
		Sounds:            result.Sounds,
		NonBreathingNoise: features.Suppressed,
	}
	if result.Classification.Pattern != "" {
		event.MatchedPattern = result.Classification.Pattern
		event.MatchScore = result.Classification.Similarity
	}
	if event.IsApnea && event.Severity == SeverityNone {
		event.Severity = SeverityMild
	}

	if d.metrics != nil {
		d.metrics.Confidence.Set(event.Confidence)
		d.metrics.BreathingSample.Set(features.Breathing)
		d.metrics.AudioLevel.Set(float64(d.source.Level().Level))
		d.metrics.Detections.WithLabelValues(string(event.Pattern)).Inc()
	}
	return event
}

// classifierHints consults the optional sound classifier for corroborating
// snoring/gasping evidence. Classifier failures never affect the tick; the
// heuristics stand alone.
func (d *Detector) classifierHints(samples []float64) SoundFlags {
	predictions, err := d.clf.Classify(samples)
	if err != nil {
		d.log.Debug("sound classifier error ignored", "error", err)
		return SoundFlags{}
	}

	var hints SoundFlags
	for _, p := range predictions {
		if p.Score < d.settings.Classifier.Threshold {
			continue
		}
		label := strings.ToLower(p.Label)
		switch {
		case strings.Contains(label, "snor"):
			hints.Snoring = true
		case strings.Contains(label, "gasp"):
			hints.Gasping = true
		}
	}
	return hints
}

// recordEvent appends to the rolling event history, dropping the oldest
// beyond the configured capacity. Caller holds d.mu.
func (d *Detector) recordEvent(event Event) {
	d.recent = append(d.recent, event)
	if limit := d.settings.Detection.RecentEventsSize; len(d.recent) > limit {
		d.recent = d.recent[len(d.recent)-limit:]
	}
}

// Subscribe installs a periodic driver that invokes Tick and forwards the
// event to callback. The interval is clamped to the configured minimum.
// The returned cancel function stops this subscription; Stop cancels all
// of them.
func (d *Detector) Subscribe(callback func(Event), interval time.Duration) (cancel func()) {
	if minEvery := d.settings.Detection.MinSubscribeEvery; interval < minEvery {
		interval = minEvery
	}

	ctx, stop := context.WithCancel(context.Background())

	d.subMu.Lock()
	if d.subs == nil {
		d.subs = make(map[uint64]context.CancelFunc)
	}
	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = stop
	d.subMu.Unlock()

	d.subWG.Add(1)
	go func() {
		defer d.subWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				callback(d.Tick())
			}
		}
	}()

	// The returned cancel also drops this subscription's entry so a
	// long-lived detector cycling subscriptions does not accumulate them.
	return func() {
		stop()
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

// String implements fmt.Stringer for debug logging.
func (d *Detector) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("Detector(started=%v, buffered=%d, anomalies=%d)",
		d.started, d.patterns.Len(), d.scorer.ConsecutiveAnomalies())
}
