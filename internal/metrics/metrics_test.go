package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordOperation_CountsByOperationAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("companies.create", OutcomeOK)
	c.RecordOperation("companies.create", OutcomeOK)
	c.RecordOperation("companies.create", OutcomeDenied)

	ok := findMetric(t, reg, "railgallery_operations_total", map[string]string{"operation": "companies.create", "outcome": "ok"})
	if ok == nil {
		t.Fatal("railgallery_operations_total{outcome=ok} not found")
	}
	if v := ok.GetCounter().GetValue(); v != 2 {
		t.Errorf("ok = %v, want 2", v)
	}

	denied := findMetric(t, reg, "railgallery_operations_total", map[string]string{"operation": "companies.create", "outcome": "denied"})
	if denied == nil || denied.GetCounter().GetValue() != 1 {
		t.Errorf("denied = %v, want 1", denied)
	}
}

func TestRecordAccessDenied_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAccessDenied("photos.delete")

	m := findMetric(t, reg, "railgallery_access_denied_total", map[string]string{"operation": "photos.delete"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("access_denied_total = %v, want 1", m)
	}
}

func TestRecordStoreUnavailable_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordStoreUnavailable("companies.list")
	c.RecordStoreUnavailable("companies.list")

	m := findMetric(t, reg, "railgallery_store_unavailable_total", map[string]string{"operation": "companies.list"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("store_unavailable_total = %v, want 2", m)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別に集計されることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(403)

	if m := findMetric(t, reg, "railgallery_http_status_total", map[string]string{"status_code": "200"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("status 200 = %v, want 2", m)
	}
	if m := findMetric(t, reg, "railgallery_http_status_total", map[string]string{"status_code": "403"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("status 403 = %v, want 1", m)
	}
}

func TestRecordUploadBytes_AddsBytes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadBytes(1024)
	c.RecordUploadBytes(512)

	m := findMetric(t, reg, "railgallery_upload_bytes_total", nil)
	if m == nil || m.GetCounter().GetValue() != 1536 {
		t.Errorf("upload_bytes_total = %v, want 1536", m)
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリのCollectorが干渉しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordAccessDenied("companies.create")

	if m := findMetric(t, reg2, "railgallery_access_denied_total", map[string]string{"operation": "companies.create"}); m != nil {
		t.Error("reg2 に reg1 のメトリクスが記録されている")
	}
}

func TestNop_DoesNothing(t *testing.T) {
	var c MetricsCollector = Nop{}
	c.RecordOperation("x", OutcomeOK)
	c.RecordAccessDenied("x")
	c.RecordStoreUnavailable("x")
	c.RecordHTTPStatus(500)
	c.RecordUploadBytes(1)
}
