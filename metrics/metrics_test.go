package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHashURL(t *testing.T) {
	if HashURL("") != "upload" {
		t.Error("expected uploads to share a label")
	}
	if len(HashURL("https://example.com/a.png")) != 16 {
		t.Error("expected 8 byte hex hash")
	}
	long := "https://example.com/" + string(make([]byte, 200))
	if HashURL(long) != HashURL(long[:100]) {
		t.Error("expected hash of truncated url")
	}
}

func TestCleanHostname(t *testing.T) {
	cases := map[string]string{
		"":                 "unknown",
		"example.com:8080": "example.com",
		"example.com":      "example.com",
	}
	for in, want := range cases {
		if got := CleanHostname(in); got != want {
			t.Errorf("CleanHostname(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimeFunction(t *testing.T) {
	registry := prometheus.NewRegistry()
	perf := InitializePerformanceMetrics(registry, prometheus.Labels{"service": "test"})

	got, err := TimeFunction(func() (int, error) { return 7, nil }, "cubic", perf)
	if err != nil || got != 7 {
		t.Fatalf("unexpected result %d, %v", got, err)
	}
	_, err = TimeFunction(func() (int, error) { return 0, errors.New("boom") }, "cubic", perf)
	if err == nil {
		t.Fatal("expected error to pass through")
	}

	if n := testutil.CollectAndCount(perf.ResampleTime); n != 1 {
		t.Errorf("expected one observed series, got %d", n)
	}
}
