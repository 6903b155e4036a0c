// Package metrics exposes Prometheus counters for capture and recognition.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "hyprscribe"

type Metrics struct {
	FramesCaptured     prometheus.Counter
	FramesDropped      prometheus.Counter
	CaptureErrors      prometheus.Counter
	PartialEvents      prometheus.Counter
	FinalEvents        prometheus.Counter
	EngineStopTimeouts prometheus.Counter
	SessionsStarted    prometheus.Counter
	Exports            *prometheus.CounterVec
}

// DefaultMetrics is registered with the default Prometheus registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_captured_total",
			Help:      "Audio frames read from the capture device",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_dropped_total",
			Help:      "Audio frames dropped because the frame queue was full",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_capture_errors_total",
			Help:      "Errors reported by the capture loop",
		}),
		PartialEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_partial_events_total",
			Help:      "Partial results emitted by the recognition engine",
		}),
		FinalEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_final_events_total",
			Help:      "Final results emitted by the recognition engine",
		}),
		EngineStopTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_stop_timeouts_total",
			Help:      "Times the recognition worker did not exit within the stop timeout",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Transcription sessions started",
		}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Session exports by result",
		}, []string{"result"}),
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("component", "metrics").Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
