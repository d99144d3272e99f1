package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/trackguard/base/rng"
	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/monitor"
)

type testInstance struct {
	monitor *monitor.Monitor
}

func (i *testInstance) Monitor() *monitor.Monitor {
	return i.monitor
}

func (i *testInstance) MonitorEvents() *mgr.EventMgr[events.Event] {
	return i.monitor.EventFeed
}

var (
	testAPI  *API
	setupAPI sync.Once
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	setupAPI.Do(func() {
		r, err := rng.New(struct{}{})
		if err != nil {
			panic(err)
		}
		if err := r.Start(mgr.New("rng test")); err != nil {
			panic(err)
		}

		mon, err := monitor.New(struct{}{}, monitor.Config{})
		if err != nil {
			panic(err)
		}
		if err := mon.Start(mgr.New("test monitor")); err != nil {
			panic(err)
		}

		testAPI = &API{
			mgr:      mgr.New("test api"),
			instance: &testInstance{monitor: mon},
		}
	})

	server := httptest.NewServer(testAPI.router())
	t.Cleanup(server.Close)
	return server
}

func TestStatusEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/v1/status")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status monitor.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
}

func TestConfigEndpoints(t *testing.T) {
	server := testServer(t)

	// Valid level.
	resp, err := http.Post(
		server.URL+"/v1/config/protection-level",
		"application/json",
		strings.NewReader(`{"level": "high"}`),
	)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Invalid level is rejected.
	resp, err = http.Post(
		server.URL+"/v1/config/protection-level",
		"application/json",
		strings.NewReader(`{"level": "extreme"}`),
	)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Valid mode.
	resp, err = http.Post(
		server.URL+"/v1/config/detection-mode",
		"application/json",
		strings.NewReader(`{"mode": "aggressive"}`),
	)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Invalid mode is rejected.
	resp, err = http.Post(
		server.URL+"/v1/config/detection-mode",
		"application/json",
		strings.NewReader(`{"mode": "turbo"}`),
	)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMonitoringEndpointsAreIdempotent(t *testing.T) {
	server := testServer(t)

	for _, path := range []string{
		"/v1/monitoring/start",
		"/v1/monitoring/start",
		"/v1/monitoring/stop",
		"/v1/monitoring/stop",
	} {
		resp, err := http.Post(server.URL+path, "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equalf(t, http.StatusOK, resp.StatusCode, "POST %s", path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/v1/metrics")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
