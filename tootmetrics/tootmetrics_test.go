package tootmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSinkRegistersAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := New(reg, "toot")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sink.ObserveRequest("GET", "/foo", 200, 15*time.Millisecond)
	sink.ObserveRequest("GET", "/foo", 404, 5*time.Millisecond)
	sink.SetServerUp(true)

	if got := testutil.ToFloat64(sink.requests.WithLabelValues("GET", "/foo", "2xx")); got != 1 {
		t.Errorf("2xx count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.requests.WithLabelValues("GET", "/foo", "4xx")); got != 1 {
		t.Errorf("4xx count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.up); got != 1 {
		t.Errorf("up = %v, want 1", got)
	}

	sink.SetServerUp(false)
	if got := testutil.ToFloat64(sink.up); got != 0 {
		t.Errorf("up = %v, want 0", got)
	}
}

func TestNewDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "toot"); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg, "toot"); err == nil {
		t.Fatal("expected duplicate registration error on second New with same namespace")
	}
}

func TestStatusBucket(t *testing.T) {
	cases := map[int]string{
		100: "1xx",
		200: "2xx",
		204: "2xx",
		301: "3xx",
		404: "4xx",
		500: "5xx",
	}
	for status, want := range cases {
		if got := statusBucket(status); got != want {
			t.Errorf("statusBucket(%d) = %q, want %q", status, got, want)
		}
	}
}
