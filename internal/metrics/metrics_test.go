package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.FramesDropped.Inc()
	m.FramesDropped.Inc()
	m.Exports.WithLabelValues("ok").Inc()

	if got := testutil.ToFloat64(m.FramesDropped); got != 2 {
		t.Errorf("frames dropped = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Exports.WithLabelValues("ok")); got != 1 {
		t.Errorf("exports ok = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "hyprscribe_audio_frames_dropped_total" {
			found = true
		}
	}
	if !found {
		t.Error("dropped frames counter not registered")
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// registering twice on fresh registries must not panic
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
