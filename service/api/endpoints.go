package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/websocket"

	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/monitor"
	"github.com/safing/trackguard/service/threat"
)

// handleStatus answers with a snapshot of the monitoring state.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

type configRequest struct {
	Level string `json:"level,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

func (a *API) handleSetProtectionLevel(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.instance.Monitor().SetProtectionLevel(req.Level); err != nil {
		writeError(w, configErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

func (a *API) handleSetDetectionMode(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.instance.Monitor().SetDetectionMode(req.Mode); err != nil {
		writeError(w, configErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

func (a *API) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	err := a.instance.Monitor().StartMonitoring()
	if err != nil && !errors.Is(err, monitor.ErrAlreadyRunning) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

func (a *API) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	err := a.instance.Monitor().StopMonitoring()
	if err != nil && !errors.Is(err, monitor.ErrAlreadyStopped) {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	a.instance.Monitor().Reset()
	writeJSON(w, http.StatusOK, a.instance.Monitor().Status())
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	metrics.WritePrometheus(w, true)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleEvents streams the live event feed over a websocket.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		a.mgr.Warn("websocket upgrade failed", "err", err)
		return
	}

	sub := a.instance.MonitorEvents().Subscribe("api client "+r.RemoteAddr, 64)

	a.mgr.Go("event feed client", func(ctx *mgr.WorkerCtx) error {
		defer sub.Cancel()
		defer func() {
			_ = conn.Close()
		}()

		for {
			select {
			case event := <-sub.Events():
				if err := conn.WriteJSON(event); err != nil {
					ctx.Debug("event feed client gone", "err", err)
					return nil
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func configErrStatus(err error) int {
	if errors.Is(err, threat.ErrInvalidConfig) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
