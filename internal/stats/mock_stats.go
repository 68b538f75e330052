package stats

import "github.com/stretchr/testify/mock"

// MockStatsUpdater stands in for the expvar-backed updater in transport,
// call and chatlist tests, where counters like MetricReconnects or
// MetricActiveCalls are asserted on instead of published.
type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}
func (m *MockStatsUpdater) Run() {
	m.Called()
}
