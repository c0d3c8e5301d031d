package detection

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somnetics/apnea-go/internal/classifier"
	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/logging"
	"github.com/somnetics/apnea-go/internal/myaudio"
	"github.com/somnetics/apnea-go/internal/observability"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

// fakeClock is a manually advanced clock for exercising the tick throttle.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeSource serves a fixed frame on every read, counting calls.
type fakeSource struct {
	frame      *myaudio.SpectralFrame
	frameErr   error
	level      myaudio.AudioLevelData
	active     bool
	startCalls int
	stopCalls  int
	frameCalls int
}

func (s *fakeSource) Start(ctx context.Context) error {
	s.startCalls++
	s.active = true
	return nil
}

func (s *fakeSource) Stop() error {
	s.stopCalls++
	s.active = false
	return nil
}

func (s *fakeSource) Active() bool { return s.active }

func (s *fakeSource) Level() myaudio.AudioLevelData { return s.level }

func (s *fakeSource) Frame() (*myaudio.SpectralFrame, error) {
	s.frameCalls++
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	return s.frame, nil
}

// fakeClassifier returns a fixed prediction set.
type fakeClassifier struct {
	predictions []classifier.Prediction
}

func (c *fakeClassifier) Classify(samples []float64) ([]classifier.Prediction, error) {
	return c.predictions, nil
}

func (c *fakeClassifier) Close() {}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Detection = *testDetectionSettings()
	settings.Classifier.Threshold = 0.5
	settings.Audio.Source = "test"
	return settings
}

// breathFrame builds a frame whose breathing-band average and time-domain
// amplitude are controllable. A fixed anchor bin outside every configured
// band pins the spectrum peak so band averages scale linearly.
func breathFrame(band, amplitude float64) *myaudio.SpectralFrame {
	spectrum := make([]float64, conf.FFTSize/2+1)
	spectrum[500] = 200 // anchor outside all bands (~3.9 kHz)
	for i := 3; i <= 76; i++ {
		spectrum[i] = 200 * band
	}
	samples := make([]float64, 64)
	for i := range samples {
		samples[i] = amplitude
	}
	return &myaudio.SpectralFrame{
		Spectrum:   spectrum,
		Samples:    samples,
		SampleRate: conf.SampleRate,
		Timestamp:  time.Now(),
	}
}

func newTestDetector(t *testing.T, source *fakeSource, clock *fakeClock, opts ...Option) *Detector {
	t.Helper()
	opts = append([]Option{
		WithSource(source),
		WithClock(clock),
		WithLibrary(DefaultLibrary()),
	}, opts...)
	d := New(testSettings(), opts...)
	require.NoError(t, d.Init(context.Background()))
	return d
}

func TestDetectorTickBeforeStartIsNeutral(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)

	event := d.Tick()
	assert.Equal(t, PatternNormal, event.Pattern)
	assert.Zero(t, event.Confidence)
	assert.Zero(t, source.frameCalls, "must not read frames while stopped")

	_, ok := d.CurrentBreathingSample()
	assert.False(t, ok)
}

func TestDetectorLifecycleIdempotent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)
	ctx := context.Background()

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Start(ctx))
	assert.Equal(t, 1, source.startCalls)

	d.Stop()
	d.Stop()
	assert.Equal(t, 1, source.stopCalls)

	// A stopped detector reports neutral again.
	event := d.Tick()
	assert.Zero(t, event.Confidence)

	// Restart begins a clean session.
	require.NoError(t, d.Start(ctx))
	assert.Equal(t, 2, source.startCalls)
}

func TestDetectorStartRequiresInit(t *testing.T) {
	t.Parallel()

	d := New(testSettings(), WithSource(&fakeSource{}), WithClock(&fakeClock{}))
	err := d.Start(context.Background())
	assert.Error(t, err)
}

func TestDetectorThrottleReturnsCachedEvent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	first := d.Tick()
	calls := source.frameCalls

	// Within the minimum interval the cached event comes back untouched and
	// no new frame is read.
	clock.Advance(10 * time.Millisecond)
	second := d.Tick()
	assert.Equal(t, first, second)
	assert.Equal(t, calls, source.frameCalls)

	// Past the interval a fresh analysis runs.
	clock.Advance(100 * time.Millisecond)
	third := d.Tick()
	assert.NotEqual(t, first.Timestamp, third.Timestamp)
	assert.Greater(t, source.frameCalls, calls)
}

func TestDetectorAccumulatesAndDetects(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.02, 0.01)}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	// Near-silent input must escalate to a missing-breathing detection once
	// the minimum window fills and hysteresis confirms.
	var event Event
	for i := 0; i < 10; i++ {
		clock.Advance(200 * time.Millisecond)
		event = d.Tick()
	}

	assert.Equal(t, PatternMissing, event.Pattern)
	assert.True(t, event.IsApnea)
	assert.NotEqual(t, SeverityNone, event.Severity)
	assert.Greater(t, event.Confidence, 0.6)

	sample, ok := d.CurrentBreathingSample()
	require.True(t, ok)
	assert.Less(t, sample, 0.1)
}

func TestDetectorRecentEventsCapped(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	for i := 0; i < 25; i++ {
		clock.Advance(200 * time.Millisecond)
		d.Tick()
	}

	events := d.RecentEvents()
	assert.Len(t, events, testSettings().Detection.RecentEventsSize)

	// Chronological order, oldest first.
	for i := 1; i < len(events); i++ {
		assert.True(t, events[i].Timestamp.After(events[i-1].Timestamp))
	}
}

func TestDetectorNoDataYieldsNeutral(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frameErr: myaudio.ErrNoData}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	event := d.Tick()
	assert.Zero(t, event.Confidence)
	assert.Equal(t, PatternNormal, event.Pattern)
}

func TestDetectorClassifierHints(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	clf := &fakeClassifier{predictions: []classifier.Prediction{
		{Label: "Snoring", Score: 0.9},
		{Label: "Gasping", Score: 0.2}, // below the classifier threshold
	}}
	d := newTestDetector(t, source, clock, WithClassifier(clf))
	require.NoError(t, d.Start(context.Background()))

	var event Event
	for i := 0; i < 8; i++ {
		clock.Advance(200 * time.Millisecond)
		event = d.Tick()
	}

	assert.True(t, event.Sounds.Snoring)
	assert.False(t, event.Sounds.Gasping)
	assert.GreaterOrEqual(t, event.Confidence, 0.70)
}

func TestDetectorSetSensitivity(t *testing.T) {
	t.Parallel()

	d := newTestDetector(t, &fakeSource{frame: breathFrame(0.4, 0.3)}, &fakeClock{})

	assert.Error(t, d.SetSensitivity(0))
	assert.Error(t, d.SetSensitivity(11))
	assert.NoError(t, d.SetSensitivity(1))
	assert.NoError(t, d.SetSensitivity(10))
}

func TestDetectorReportsAudioLevel(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{
		frame: breathFrame(0.4, 0.3),
		level: myaudio.AudioLevelData{Level: 42, Source: "test", Name: "test"},
	}
	metrics := observability.NewMetrics()
	d := newTestDetector(t, source, clock, WithMetrics(metrics))
	require.NoError(t, d.Start(context.Background()))

	d.Tick()
	assert.InDelta(t, 42, testutil.ToFloat64(metrics.AudioLevel), 0.001)
}

func TestDetectorSubscribeCancelReleasesEntry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	cancelFirst := d.Subscribe(func(Event) {}, time.Second)
	cancelSecond := d.Subscribe(func(Event) {}, time.Second)

	subCount := func() int {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		return len(d.subs)
	}

	assert.Equal(t, 2, subCount())

	cancelFirst()
	assert.Equal(t, 1, subCount())

	// Cancelling twice stays harmless.
	cancelFirst()
	assert.Equal(t, 1, subCount())

	d.Stop()
	assert.Zero(t, subCount())

	// Cancelling after Stop must not panic or resurrect anything.
	cancelSecond()
	assert.Zero(t, subCount())
}

func TestDetectorSubscribeDeliversEvents(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	source := &fakeSource{frame: breathFrame(0.4, 0.3)}
	d := newTestDetector(t, source, clock)
	require.NoError(t, d.Start(context.Background()))

	received := make(chan Event, 16)
	cancel := d.Subscribe(func(e Event) {
		clock.Advance(200 * time.Millisecond)
		received <- e
	}, time.Millisecond)
	defer cancel()

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	cancel()
	d.Stop()
}
