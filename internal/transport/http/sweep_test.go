package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MohamedH1000/GetPayIn/internal/app"
)

func TestHandleExpireHolds(t *testing.T) {
	t.Parallel()

	t.Run("dispatches the sweep and returns 202", func(t *testing.T) {
		t.Parallel()
		runner := &stubSweepRunner{started: make(chan struct{})}

		req := httptest.NewRequest(http.MethodPost, "/admin/expire-holds", nil)
		rec := httptest.NewRecorder()

		HandleExpireHolds(runner, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "hold expiry sweep dispatched") {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}

		select {
		case <-runner.started:
		case <-time.After(time.Second):
			t.Fatalf("sweep was never dispatched")
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()
		runner := &stubSweepRunner{started: make(chan struct{}, 1)}

		req := httptest.NewRequest(http.MethodGet, "/admin/expire-holds", nil)
		rec := httptest.NewRecorder()

		HandleExpireHolds(runner, nil).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		select {
		case <-runner.started:
			t.Fatalf("sweep must not run on a rejected request")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

type stubSweepRunner struct {
	started chan struct{}
}

func (s *stubSweepRunner) Sweep(_ context.Context) (app.SweepReport, error) {
	close(s.started)
	return app.SweepReport{}, nil
}
