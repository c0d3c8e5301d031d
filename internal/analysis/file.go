package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/datastore"
	"github.com/somnetics/apnea-go/internal/detection"
	"github.com/somnetics/apnea-go/internal/logging"
	"github.com/somnetics/apnea-go/internal/myaudio"
)

// stepClock advances by a fixed step on every reading, letting offline
// analysis run as fast as the CPU allows without tripping the tick
// throttle meant for live callers.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// FileSummary aggregates the outcome of an offline analysis run.
type FileSummary struct {
	Ticks         int
	Anomalies     int
	ApneaEvents   int
	MaxConfidence float64
	Duration      time.Duration
}

// FileAnalysis replays a WAV recording through the detection pipeline and
// reports a summary. Events persist to the SQLite store when enabled, under
// a session whose source is the input path.
func FileAnalysis(ctx context.Context, settings *conf.Settings, inputPath string) (*FileSummary, error) {
	log := logging.ForService("analysis")

	source, err := myaudio.NewFileSource(inputPath)
	if err != nil {
		return nil, err
	}

	clock := newStepClock(time.Now(), settings.Detection.TickInterval)
	detector := detection.New(settings,
		detection.WithSource(source),
		detection.WithClock(clock),
	)
	if err := detector.Init(ctx); err != nil {
		return nil, err
	}
	defer detector.Close()

	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}

	var sessionID string
	if store != nil {
		if err := store.Open(); err != nil {
			return nil, err
		}
		defer store.Close()

		sessionID = uuid.New().String()
		if err := store.CreateSession(&datastore.Session{
			ID:        sessionID,
			Source:    inputPath,
			StartedAt: time.Now(),
		}); err != nil {
			return nil, err
		}
		defer func() {
			_ = store.CloseSession(sessionID, time.Now())
		}()
	}

	if err := detector.Start(ctx); err != nil {
		return nil, err
	}
	defer detector.Stop()

	log.Info("analyzing file", "path", inputPath, "duration", source.Duration())

	summary := &FileSummary{Duration: source.Duration()}
	for source.Active() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		event := detector.Tick()
		summary.Ticks++
		if event.Confidence > summary.MaxConfidence {
			summary.MaxConfidence = event.Confidence
		}
		if event.Pattern == detection.PatternNormal {
			continue
		}

		summary.Anomalies++
		if event.IsApnea {
			summary.ApneaEvents++
		}
		handleEvent(event, store, sessionID, log)
	}

	log.Info("file analysis complete",
		"ticks", summary.Ticks,
		"anomalies", summary.Anomalies,
		"apnea_events", summary.ApneaEvents,
		"max_confidence", fmt.Sprintf("%.2f", summary.MaxConfidence))
	return summary, nil
}
