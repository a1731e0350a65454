package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Monitor) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestMonitorExposesCounters(t *testing.T) {
	m := NewMonitor()
	m.OrderAction("insert")
	m.OrderAction("insert")
	m.OrderAction("amend")
	m.HedgeOrder("NVDA", "ask")
	m.SetAggregateDelta("NVDA", 41.5)
	m.SetQuotedCredit("NVDA-C100", 0.3)
	m.CycleSkip("SAN")
	m.Error("hedge")
	m.ObserveCycle(120 * time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`maker_order_actions_total{action="insert"} 2`,
		`maker_order_actions_total{action="amend"} 1`,
		`maker_hedge_orders_total{side="ask",underlying="NVDA"} 1`,
		`maker_aggregate_delta{underlying="NVDA"} 41.5`,
		`maker_quoted_credit{instrument="NVDA-C100"} 0.3`,
		`maker_cycle_skips_total{underlying="SAN"} 1`,
		`maker_errors_total{stage="hedge"} 1`,
		`maker_cycle_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

// Two monitors must not collide: each carries its own registry.
func TestMonitorsAreIndependent(t *testing.T) {
	a := NewMonitor()
	b := NewMonitor()
	a.OrderAction("insert")

	if body := scrape(t, b); strings.Contains(body, `action="insert"`) {
		t.Fatalf("registries are shared between monitors")
	}
}
