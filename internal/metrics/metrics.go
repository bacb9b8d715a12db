package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	failures      int64
	methods       map[string]int64
	statusCodes   map[int]int64
	responseTimes []time.Duration
	healthy       *bool
	startTime     time.Time
}

type Snapshot struct {
	Binding       string           `json:"binding"`
	Uptime        time.Duration    `json:"uptime"`
	TotalRequests int64            `json:"total_requests"`
	Failures      int64            `json:"failures"`
	Methods       map[string]int64 `json:"methods"`
	StatusCodes   map[int]int64    `json:"status_codes"`
	AvgResponse   time.Duration    `json:"avg_response"`
	P50Response   time.Duration    `json:"p50_response"`
	P95Response   time.Duration    `json:"p95_response"`
	P99Response   time.Duration    `json:"p99_response"`
	OriginHealthy *bool            `json:"origin_healthy,omitempty"`
}

func (m *Metrics) IncrementRequests(method string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
	m.methods[method]++
}

func (m *Metrics) RecordResponse(duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.addSample(duration)
	m.statusCodes[statusCode]++
}

func (m *Metrics) RecordFailure(duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.addSample(duration)
	m.failures++
}

func (m *Metrics) UpdateHealthStatus(healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthy = &healthy
}

// addSample keeps the most recent maxSamples durations. Caller holds the lock.
func (m *Metrics) addSample(d time.Duration) {
	m.responseTimes = append(m.responseTimes, d)
	if len(m.responseTimes) > maxSamples {
		m.responseTimes = m.responseTimes[1:]
	}
}

func (m *Metrics) Snapshot(binding string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Binding:       binding,
		Uptime:        time.Since(m.startTime),
		TotalRequests: m.requests,
		Failures:      m.failures,
		Methods:       make(map[string]int64, len(m.methods)),
		StatusCodes:   make(map[int]int64, len(m.statusCodes)),
	}

	for method, n := range m.methods {
		snap.Methods[method] = n
	}
	for code, n := range m.statusCodes {
		snap.StatusCodes[code] = n
	}
	if m.healthy != nil {
		healthy := *m.healthy
		snap.OriginHealthy = &healthy
	}

	if len(m.responseTimes) > 0 {
		sorted := make([]time.Duration, len(m.responseTimes))
		copy(sorted, m.responseTimes)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		snap.AvgResponse = average(sorted)
		snap.P50Response = percentile(sorted, 0.50)
		snap.P95Response = percentile(sorted, 0.95)
		snap.P99Response = percentile(sorted, 0.99)
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		methods:     make(map[string]int64),
		statusCodes: make(map[int]int64),
		startTime:   time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
