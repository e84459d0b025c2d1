package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandlerLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/applications/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/applications/{id}", "418"))
	req := httptest.NewRequest(http.MethodGet, "/applications/0b7c7f0e-1111-4a6b-9c55-2f1d2a3b4c5d", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/applications/{id}", "418"))
	if after-before != 1 {
		t.Fatalf("expected one request counted under route pattern, got delta %v", after-before)
	}
}

func TestRecordDonationOnlyAddsRecordedAmounts(t *testing.T) {
	before := testutil.ToFloat64(donatedAmount)
	RecordDonation("declined", 500)
	RecordDonation("recorded", 1200)
	if delta := testutil.ToFloat64(donatedAmount) - before; delta != 1200 {
		t.Fatalf("expected amount delta 1200, got %v", delta)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	SetLedgerDrift(2)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "adoption_ledger_drifted_listings 2") {
		t.Fatalf("expected drift gauge in exposition output")
	}
}
