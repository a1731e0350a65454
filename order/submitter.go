package order

import (
	"options-maker-go/infrastructure/logger"
	"options-maker-go/metrics"
	"options-maker-go/venue"
)

// Submitter executes a reconciliation plan against the venue. Every call is
// fire-and-forget: failures are logged and the next cycle's fresh snapshot is
// the recovery path, never an in-cycle retry.
type Submitter struct {
	venue   venue.Venue
	log     *logger.Logger
	monitor *metrics.Monitor
}

// NewSubmitter wires a submitter to the venue.
func NewSubmitter(v venue.Venue, log *logger.Logger, monitor *metrics.Monitor) *Submitter {
	return &Submitter{venue: v, log: log, monitor: monitor}
}

// Execute applies both sides of the plan: deletes of stale-priced orders
// first, then inserts and amends.
func (s *Submitter) Execute(plan Plan) {
	s.executeSide(plan.InstrumentID, plan.Bid)
	s.executeSide(plan.InstrumentID, plan.Ask)
}

func (s *Submitter) executeSide(instrumentID string, act SideAction) {
	if act.CancelID != 0 {
		if err := s.venue.DeleteOrder(instrumentID, act.CancelID); err != nil {
			s.log.LogError(err, instrumentID)
			s.monitor.Error("submit")
		} else {
			// The delete line reports the order being pulled, not the
			// replacement quote.
			s.log.LogOrder("delete", instrumentID, string(act.Side), act.CancelPrice, act.CancelVolume, act.CancelID)
			s.monitor.OrderAction("delete")
		}
	}

	switch act.Kind {
	case ActionInsert:
		id, err := s.venue.InsertOrder(instrumentID, act.Price, act.Volume, act.Side, venue.OrderLimit)
		if err != nil {
			s.log.LogError(err, instrumentID)
			s.monitor.Error("submit")
			return
		}
		s.log.LogOrder("insert", instrumentID, string(act.Side), act.Price, act.Volume, id)
		s.monitor.OrderAction("insert")

	case ActionAmend:
		if err := s.venue.AmendOrder(instrumentID, act.AmendID, act.Volume); err != nil {
			s.log.LogError(err, instrumentID)
			s.monitor.Error("submit")
			return
		}
		s.log.LogOrder("amend", instrumentID, string(act.Side), act.Price, act.Volume, act.AmendID)
		s.monitor.OrderAction("amend")

	case ActionKeep:
		s.monitor.OrderAction("keep")
	}
}
