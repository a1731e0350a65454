package order

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-maker-go/infrastructure/logger"
	"options-maker-go/metrics"
	"options-maker-go/venue"
)

func TestExecuteDeletesBeforeInsert(t *testing.T) {
	sim := venue.NewSim()
	stale, err := sim.InsertOrder("OPT", 11.7, 20, venue.SideBid, venue.OrderLimit)
	require.NoError(t, err)

	s := NewSubmitter(sim, logger.Nop(), metrics.NewMonitor())
	s.Execute(Plan{
		InstrumentID: "OPT",
		Bid: SideAction{
			Kind:         ActionInsert,
			Side:         venue.SideBid,
			Price:        11.6,
			Volume:       20,
			CancelID:     stale,
			CancelPrice:  11.7,
			CancelVolume: 20,
		},
	})

	orders, err := sim.OutstandingOrders("OPT")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	for id, o := range orders {
		assert.NotEqual(t, stale, id)
		assert.Equal(t, 11.6, o.Price)
	}

	inserts, amends, deletes := sim.Counts()
	assert.Equal(t, 2, inserts) // the stale order's own insert plus the replacement
	assert.Zero(t, amends)
	assert.Equal(t, 1, deletes)
}

func TestExecuteCountsSubmitFailures(t *testing.T) {
	sim := venue.NewSim()
	m := metrics.NewMonitor()
	s := NewSubmitter(sim, logger.Nop(), m)

	// Amending an order the venue no longer tracks fails at the venue.
	s.Execute(Plan{
		InstrumentID: "OPT",
		Bid: SideAction{
			Kind:    ActionAmend,
			Side:    venue.SideBid,
			Price:   11.7,
			Volume:  10,
			AmendID: 99,
		},
	})

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `maker_errors_total{stage="submit"} 1`),
		"expected a submit-stage error in the exposition")
}
