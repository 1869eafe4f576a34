package metrics_test

import (
	"testing"

	"github.com/Houeta/crm-dispatch-bot/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics(_ *testing.T) {
	reg := prometheus.NewRegistry()

	_ = metrics.NewMetrics(reg)
}

func TestNewMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.CommandReceived.WithLabelValues("/info").Inc()
	m.MessagesParsed.WithLabelValues("ok").Inc()
	m.RecordsSaved.WithLabelValues("support").Inc()
	m.DuplicatePrompts.Inc()
	m.DBQueryDuration.WithLabelValues("add_record").Observe(0.01)
	m.CRMRequestDuration.WithLabelValues("task_add").Observe(0.2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 6 {
		t.Errorf("expected 6 metric families, got %d", len(families))
	}
}
