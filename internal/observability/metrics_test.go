package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if m.AdvisoriesLoaded == nil {
		t.Error("AdvisoriesLoaded metric not initialized")
	}
	if m.AdvisoriesPersisted == nil {
		t.Error("AdvisoriesPersisted metric not initialized")
	}
	if m.PersistDuration == nil {
		t.Error("PersistDuration metric not initialized")
	}

	m.AdvisoriesPersisted.Inc()
	if testutil.ToFloat64(m.AdvisoriesPersisted) != 1 {
		t.Errorf("expected AdvisoriesPersisted to be 1, got %f", testutil.ToFloat64(m.AdvisoriesPersisted))
	}

	m.AdvisoriesNormalized.WithLabelValues("rhel-7-server-rpms").Inc()
	m.AdvisoriesNormalized.WithLabelValues("rhel-7-workstation-rpms").Add(3)

	server := testutil.ToFloat64(m.AdvisoriesNormalized.WithLabelValues("rhel-7-server-rpms"))
	if server != 1 {
		t.Errorf("expected 1 normalized advisory for the server repo, got %f", server)
	}

	workstation := testutil.ToFloat64(m.AdvisoriesNormalized.WithLabelValues("rhel-7-workstation-rpms"))
	if workstation != 3 {
		t.Errorf("expected 3 normalized advisories for the workstation repo, got %f", workstation)
	}
}

func TestNewMetricsSeparateRegistries(t *testing.T) {
	first := NewMetrics(prometheus.NewRegistry())
	second := NewMetrics(prometheus.NewRegistry())

	first.AdvisoriesMerged.Inc()
	if testutil.ToFloat64(second.AdvisoriesMerged) != 0 {
		t.Error("expected registries to hold independent counters")
	}
}
