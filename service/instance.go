package service

import (
	"fmt"

	"github.com/safing/trackguard/base/rng"
	"github.com/safing/trackguard/service/api"
	"github.com/safing/trackguard/service/events"
	"github.com/safing/trackguard/service/mgr"
	"github.com/safing/trackguard/service/monitor"
)

// Instance is an instance of a trackguard service.
type Instance struct {
	*mgr.Group

	version string

	rng         *rng.Rng
	monitor     *monitor.Monitor
	activityLog *events.ActivityLog
	api         *api.API
}

// New returns a new trackguard service instance.
func New(version string, svcCfg *ServiceConfig) (*Instance, error) {
	// Create instance to pass it to modules.
	instance := &Instance{
		version: version,
	}

	var err error
	instance.rng, err = rng.New(instance)
	if err != nil {
		return nil, fmt.Errorf("create rng module: %w", err)
	}
	instance.monitor, err = monitor.New(instance, svcCfg.monitorConfig())
	if err != nil {
		return nil, fmt.Errorf("create monitor module: %w", err)
	}
	instance.activityLog, err = events.NewActivityLog(instance, svcCfg.ActivityLogPath)
	if err != nil {
		return nil, fmt.Errorf("create activity log module: %w", err)
	}
	instance.api, err = api.New(instance, svcCfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("create api module: %w", err)
	}

	// Add all modules to instance group.
	// The rng must come up before anything draws from it, the monitor before
	// anything subscribes to its event feed.
	instance.Group = mgr.NewGroup(
		instance.rng,
		instance.monitor,
		instance.activityLog,
		instance.api,
	)

	return instance, nil
}

// Version returns the version.
func (i *Instance) Version() string {
	return i.version
}

// Monitor returns the monitor module.
func (i *Instance) Monitor() *monitor.Monitor {
	return i.monitor
}

// MonitorEvents returns the monitor's event feed.
func (i *Instance) MonitorEvents() *mgr.EventMgr[events.Event] {
	return i.monitor.EventFeed
}

// API returns the api module.
func (i *Instance) API() *api.API {
	return i.api
}
