// Package analysis wires the detection engine to its run modes: live
// monitoring, offline file analysis and the matcher benchmark.
package analysis

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/somnetics/apnea-go/internal/conf"
	"github.com/somnetics/apnea-go/internal/datastore"
	"github.com/somnetics/apnea-go/internal/detection"
	"github.com/somnetics/apnea-go/internal/logging"
	"github.com/somnetics/apnea-go/internal/observability"
)

// RealtimeAnalysis monitors the configured capture device until interrupted.
// Detection events stream to the log; anomalous events are persisted when
// the SQLite output is enabled.
func RealtimeAnalysis(settings *conf.Settings) error {
	log := logging.ForService("analysis")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	detector := detection.New(settings, detection.WithMetrics(metrics))

	if err := detector.Init(ctx); err != nil {
		return err
	}
	defer detector.Close()

	store, err := datastore.New(settings)
	if err != nil {
		return err
	}

	var sessionID string
	if store != nil {
		if err := store.Open(); err != nil {
			return err
		}
		defer store.Close()

		sessionID = uuid.New().String()
		session := &datastore.Session{
			ID:        sessionID,
			Source:    settings.Audio.Source,
			StartedAt: time.Now(),
		}
		if err := store.CreateSession(session); err != nil {
			return err
		}
		defer func() {
			if err := store.CloseSession(sessionID, time.Now()); err != nil {
				log.Error("failed to close session record", "error", err)
			}
		}()
	}

	if addr := settings.Realtime.MetricsAddr; addr != "" {
		serveMetrics(ctx, addr, metrics, log)
	}

	if err := detector.Start(ctx); err != nil {
		return err
	}
	defer detector.Stop()

	cancel := detector.Subscribe(func(event detection.Event) {
		handleEvent(event, store, sessionID, log)
	}, settings.Detection.TickInterval)
	defer cancel()

	log.Info("monitoring started",
		"source", settings.Audio.Source,
		"tick_interval", settings.Detection.TickInterval,
		"sensitivity", settings.Detection.Sensitivity)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// handleEvent logs and persists one detection event. Neutral normal events
// are skipped; they carry no information worth a row or a log line.
func handleEvent(event detection.Event, store datastore.Interface, sessionID string, log *slog.Logger) {
	if event.Pattern == detection.PatternNormal && !event.Sounds.Snoring && !event.Sounds.Gasping {
		return
	}

	attrs := []any{
		"pattern", event.Pattern,
		"confidence", event.Confidence,
		"duration", event.Duration,
		"severity", event.Severity,
		"snoring", event.Sounds.Snoring,
		"gasping", event.Sounds.Gasping,
	}
	if event.MatchedPattern != "" {
		attrs = append(attrs, "matched_pattern", event.MatchedPattern, "match_score", event.MatchScore)
	}

	if event.IsApnea {
		log.Warn("apnea detected", attrs...)
	} else {
		log.Info("breathing anomaly", attrs...)
	}

	if store != nil {
		if err := store.SaveEvent(datastore.NewRecord(sessionID, &event)); err != nil {
			log.Error("failed to persist event", "error", err)
		}
	}
}

// serveMetrics exposes the Prometheus registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, metrics *observability.Metrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
