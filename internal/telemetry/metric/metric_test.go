package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// family returns the gathered family with the given name.
func family(t *testing.T, r *Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.ReloadsTotal == nil || r.CommitsTotal == nil || r.ReloadDuration == nil {
		t.Error("metrics not initialized")
	}

	// Registries are independent.
	NewRegistry()
}

func TestRegisterer(t *testing.T) {
	r := NewRegistry()
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "herdsman_test_value",
		Help: "Test gauge.",
	}, func() float64 { return 7 })
	if err := r.Registerer().Register(g); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	mf := family(t, r, "herdsman_test_value")
	if mf == nil {
		t.Fatal("registered gauge not gathered")
	}
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("value = %v, want 7", got)
	}
}

func TestReloadsTotal(t *testing.T) {
	r := NewRegistry()
	r.ReloadsTotal.WithLabelValues("sighup", ResultOK).Inc()
	r.ReloadsTotal.WithLabelValues("sighup", ResultOK).Inc()
	r.ReloadsTotal.WithLabelValues("watch", ResultError).Inc()

	mf := family(t, r, "herdsman_config_reloads_total")
	if mf == nil {
		t.Fatal("reloads_total not gathered")
	}
	if mf.GetType() != dto.MetricType_COUNTER {
		t.Errorf("type = %v, want COUNTER", mf.GetType())
	}

	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "trigger")+"/"+labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	if got["sighup/ok"] != 2 || got["watch/error"] != 1 {
		t.Errorf("reloads = %v", got)
	}
}

func TestGauges(t *testing.T) {
	r := NewRegistry()
	r.SettingsConfigured.Set(7)
	r.LastReloadTimestamp.Set(1700000000)
	r.ReloadDuration.Observe(0.002)

	if mf := family(t, r, "herdsman_config_settings_configured"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Errorf("settings_configured = %v", mf)
	}
	mf := family(t, r, "herdsman_config_reload_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Errorf("reload_duration_seconds = %v", mf)
	}
}

func TestCollector_BuildInfo(t *testing.T) {
	r := NewRegistry()

	mf := family(t, r, "herdsman_build_info")
	if mf == nil {
		t.Fatal("build_info not gathered")
	}
	m := mf.GetMetric()[0]
	if m.GetGauge().GetValue() != 1 {
		t.Errorf("build_info = %v, want 1", m.GetGauge().GetValue())
	}
	if labelValue(m, "version") == "" || labelValue(m, "go_version") == "" {
		t.Errorf("labels = %v", m.GetLabel())
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.CommitsTotal.WithLabelValues(ResultOK).Inc()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `herdsman_config_commits_total{result="ok"} 1`) {
		t.Errorf("metrics output missing commits counter:\n%s", body)
	}
}
