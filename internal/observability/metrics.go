package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	startedAt    time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:    time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(route, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	key := route + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// CounterSample is one counter in a Snapshot.
type CounterSample struct {
	Key       string  `json:"key"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms,omitempty"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	Requests      []CounterSample `json:"requests"`
	Errors        []CounterSample `json:"errors"`
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Requests:      make([]CounterSample, 0, len(m.requestCount)),
		Errors:        make([]CounterSample, 0, len(m.errorCount)),
	}
	for k, v := range m.requestCount {
		avg := float64(m.latencyTotal[k].Microseconds()) / 1000 / float64(v)
		snap.Requests = append(snap.Requests, CounterSample{Key: k, Count: v, AvgMillis: avg})
	}
	for k, v := range m.errorCount {
		snap.Errors = append(snap.Errors, CounterSample{Key: k, Count: v})
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	sort.Slice(snap.Errors, func(i, j int) bool { return snap.Errors[i].Key < snap.Errors[j].Key })
	return snap
}

func pathKey(route, method string, status int) string {
	return route + "|" + method + "|" + strconv.Itoa(status)
}
