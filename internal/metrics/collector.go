// Package metrics keeps in-process counters and histograms for model calls,
// tool invocations and loop outcomes. Output uses the Prometheus text
// exposition format so it can be scraped or printed as-is.
package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide metrics collector.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates counters and histograms.
type MetricsCollector struct {
	counters   sync.Map // name{labels} -> *Counter
	histograms sync.Map // name{labels} -> *Histogram
	startTime  time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Histogram tracks the distribution of values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Counter returns or creates a counter with the given name and label set.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	actual, _ := c.counters.LoadOrStore(key, &Counter{name: name, help: help, labels: labels})
	return actual.(*Counter)
}

// Histogram returns or creates a histogram with the given name and label set.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := name + "{" + labels + "}"
	if v, ok := c.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	hb := make([]histBucket, len(sorted))
	for i, b := range sorted {
		hb[i] = histBucket{le: b}
	}
	actual, _ := c.histograms.LoadOrStore(key, &Histogram{name: name, help: help, labels: labels, buckets: hb})
	return actual.(*Histogram)
}

// WriteText renders all metrics in Prometheus text format, sorted by key.
func (c *MetricsCollector) WriteText(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP funcagent_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE funcagent_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "funcagent_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	helpWritten := make(map[string]bool)
	for _, ctr := range sortedCounters(&c.counters) {
		if !helpWritten[ctr.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
			fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
			helpWritten[ctr.name] = true
		}
		if ctr.labels != "" {
			fmt.Fprintf(&sb, "%s{%s} %d\n", ctr.name, ctr.labels, ctr.Value())
		} else {
			fmt.Fprintf(&sb, "%s %d\n", ctr.name, ctr.Value())
		}
	}

	for _, h := range sortedHistograms(&c.histograms) {
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
		fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
		prefix := h.name + "_bucket{"
		if h.labels != "" {
			prefix += h.labels + ","
		}
		for _, b := range h.buckets {
			le := fmt.Sprintf("%g", b.le)
			if math.IsInf(b.le, 1) {
				le = "+Inf"
			}
			fmt.Fprintf(&sb, "%sle=\"%s\"} %d\n", prefix, le, b.count)
		}
		fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count)
		fmt.Fprintf(&sb, "%s_sum %f\n", h.name, h.sum)
		h.mu.Unlock()
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func sortedCounters(m *sync.Map) []*Counter {
	var keys []string
	byKey := make(map[string]*Counter)
	m.Range(func(k, v any) bool {
		keys = append(keys, k.(string))
		byKey[k.(string)] = v.(*Counter)
		return true
	})
	sort.Strings(keys)
	out := make([]*Counter, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

func sortedHistograms(m *sync.Map) []*Histogram {
	var keys []string
	byKey := make(map[string]*Histogram)
	m.Range(func(k, v any) bool {
		keys = append(keys, k.(string))
		byKey[k.(string)] = v.(*Histogram)
		return true
	})
	sort.Strings(keys)
	out := make([]*Histogram, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

// --- Pre-defined metrics used across the application ---

var (
	LLMRequestsTotal = Collector.Counter("funcagent_llm_requests_total", "Total model gateway requests", "")
	LLMErrorsTotal   = Collector.Counter("funcagent_llm_errors_total", "Model gateway requests that failed or returned no content", "")
	TokensIn         = Collector.Counter("funcagent_tokens_total", "Model tokens consumed", `direction="in"`)
	TokensOut        = Collector.Counter("funcagent_tokens_total", "Model tokens consumed", `direction="out"`)
	ToolExecutions   = Collector.Counter("funcagent_tool_executions_total", "Total tool executions", "")
	ToolFailures     = Collector.Counter("funcagent_tool_failures_total", "Tool executions that returned a failed outcome", "")
	IterationsTotal  = Collector.Counter("funcagent_loop_iterations_total", "Agent loop iterations consumed", "")
	PlanStepsTotal   = Collector.Counter("funcagent_plan_steps_total", "Plan steps executed", "")
	JournalErrors    = Collector.Counter("funcagent_journal_errors_total", "Run records that could not be journaled", "")

	LLMLatency = Collector.Histogram("funcagent_llm_latency_seconds", "Model request latency in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
	ToolLatency = Collector.Histogram("funcagent_tool_latency_seconds", "Tool execution latency in seconds", "",
		[]float64{0.01, 0.1, 0.5, 1, 5, 10, 30})
)

// LoopOutcome returns the counter for loop runs ending in state.
func LoopOutcome(state string) *Counter {
	return Collector.Counter("funcagent_loop_outcomes_total", "Agent loop runs by final state", `state="`+state+`"`)
}

// PlanOutcome returns the counter for plan executions ending in state.
func PlanOutcome(state string) *Counter {
	return Collector.Counter("funcagent_plan_outcomes_total", "Plan executions by final state", `state="`+state+`"`)
}
