package metrics

import (
	"strings"
	"testing"
)

func TestCounter_SameKeyReturnsSameCounter(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", "")
	b := c.Counter("x_total", "help", "")
	a.Inc()
	b.Add(2)
	if a.Value() != 3 {
		t.Fatalf("expected shared counter value 3, got %d", a.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "latency", "", []float64{1, 0.5})
	h.Observe(0.2)
	h.Observe(0.7)
	h.Observe(3)

	var sb strings.Builder
	if err := c.WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		`lat_seconds_bucket{le="0.5"} 1`,
		`lat_seconds_bucket{le="1"} 2`,
		"lat_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestWriteText_LabelledCounters(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("tokens_total", "tokens", `direction="in"`).Add(10)
	c.Counter("tokens_total", "tokens", `direction="out"`).Add(4)

	var sb strings.Builder
	if err := c.WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if strings.Count(out, "# TYPE tokens_total counter") != 1 {
		t.Fatalf("help/type should be written once per metric name:\n%s", out)
	}
	if !strings.Contains(out, `tokens_total{direction="in"} 10`) || !strings.Contains(out, `tokens_total{direction="out"} 4`) {
		t.Fatalf("missing labelled samples:\n%s", out)
	}
}
