package http

import (
	"context"
	"net/http"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/app"
	"go.uber.org/zap"
)

const sweepDispatchTimeout = 60 * time.Second

// SweepRunner is the minimal interface needed to dispatch a sweep.
type SweepRunner interface {
	Sweep(ctx context.Context) (app.SweepReport, error)
}

// HandleExpireHolds dispatches one expiry sweep asynchronously. The 202
// acknowledges dispatch only; the sweep outcome is reported through logs.
func HandleExpireHolds(runner SweepRunner, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepDispatchTimeout)
			defer cancel()

			report, err := runner.Sweep(ctx)
			if err != nil {
				logger.Error("dispatched sweep failed", zap.Error(err))
				return
			}
			logger.Info("dispatched sweep completed",
				zap.Int("scanned", report.Scanned),
				zap.Int("holds_expired", report.HoldsExpired),
				zap.Int("orders_expired", report.OrdersExpired),
				zap.Int("failed", report.Failed),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "hold expiry sweep dispatched",
		})
	}
}
