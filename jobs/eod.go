package jobs

import (
	"time"

	"github.com/sirupsen/logrus"

	"cashcage/engine"
)

// StartEndOfDaySweep flags sessions that stayed open past their business date
// and credit requests that have been waiting too long. The sweep never closes
// anything itself: closing requires a physical count, so it only warns and
// notifies.
func StartEndOfDaySweep(eng *engine.Engine) {
	staleSessions := time.NewTicker(15 * time.Minute)
	go func() {
		for range staleSessions.C {
			cutoff := time.Now().Truncate(24 * time.Hour)
			sessions, err := eng.Store().OpenSessionsBefore(cutoff)
			if err != nil {
				logrus.WithError(err).Error("end-of-day sweep failed")
				continue
			}
			for i := range sessions {
				logrus.WithFields(logrus.Fields{
					"session_id":   sessions[i].SessionID,
					"cashier_code": sessions[i].CashierCode,
					"date":         sessions[i].Date,
				}).Warn("session still open past its business date")
			}
		}
	}()

	staleRequests := time.NewTicker(5 * time.Minute)
	go func() {
		for range staleRequests.C {
			cutoff := time.Now().Add(-30 * time.Minute)
			requests, err := eng.Store().PendingCreditRequestsBefore(cutoff)
			if err != nil {
				logrus.WithError(err).Error("pending credit sweep failed")
				continue
			}
			for i := range requests {
				logrus.WithFields(logrus.Fields{
					"request_id":  requests[i].RequestID,
					"session_id":  requests[i].SessionID,
					"player_code": requests[i].PlayerCode,
					"amount":      requests[i].Amount,
				}).Warn("credit request awaiting approval")
			}
		}
	}()
}
