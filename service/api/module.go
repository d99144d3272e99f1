package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/monitor"
)

// API exposes the status, configuration and event feed over HTTP.
type API struct {
	mgr *mgr.Manager

	server *http.Server

	instance instance
}

// Start starts the api module.
func (a *API) Start(m *mgr.Manager) error {
	a.mgr = m

	if a.server.Addr == "" {
		m.Info("api disabled")
		return nil
	}

	a.server.Handler = a.router()

	m.Go("http server manager", a.serverManager)
	return nil
}

func (a *API) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/status", a.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/v1/config/protection-level", a.handleSetProtectionLevel).Methods(http.MethodPost)
	router.HandleFunc("/v1/config/detection-mode", a.handleSetDetectionMode).Methods(http.MethodPost)
	router.HandleFunc("/v1/monitoring/start", a.handleStartMonitoring).Methods(http.MethodPost)
	router.HandleFunc("/v1/monitoring/stop", a.handleStopMonitoring).Methods(http.MethodPost)
	router.HandleFunc("/v1/reset", a.handleReset).Methods(http.MethodPost)
	router.HandleFunc("/v1/events", a.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/v1/metrics", a.handleMetrics).Methods(http.MethodGet)
	return router
}

// Stop stops the api module.
func (a *API) Stop(m *mgr.Manager) error {
	if a.server.Addr == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// serverManager keeps the http server listening.
func (a *API) serverManager(ctx *mgr.WorkerCtx) error {
	backoffDuration := 10 * time.Second
	for {
		err := a.mgr.Do("http server", func(_ *mgr.WorkerCtx) error {
			ctx.Info("starting to listen", "addr", a.server.Addr)
			err := a.server.ListenAndServe()
			// Return on shutdown.
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		if err == nil {
			return nil
		}

		// Log error and restart.
		ctx.Error("http endpoint failed", "err", err, "restartIn", backoffDuration)
		select {
		case <-time.After(backoffDuration):
		case <-ctx.Done():
			return nil
		}
	}
}

var (
	module     *API
	shimLoaded atomic.Bool
)

// New returns a new api module listening on the given address.
// An empty address disables the server.
func New(instance instance, listenAddr string) (*API, error) {
	if !shimLoaded.CompareAndSwap(false, true) {
		return nil, errors.New("only one instance allowed")
	}

	module = &API{
		server: &http.Server{
			Addr:              listenAddr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		instance: instance,
	}
	return module, nil
}

type instance interface {
	Monitor() *monitor.Monitor
	MonitorEvents() *mgr.EventMgr[events.Event]
}
