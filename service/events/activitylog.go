package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/safing/trackguard/service/mgr"
)

const flushInterval = 10 * time.Second

// ActivityLog persists the event feed as one JSON object per line.
type ActivityLog struct {
	mgr *mgr.Manager

	path string

	fileLock sync.Mutex
	file     *os.File
	writer   *bufio.Writer

	instance instance
}

// Start starts the activity log module.
func (al *ActivityLog) Start(m *mgr.Manager) error {
	al.mgr = m

	if al.path == "" {
		m.Info("activity log disabled")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(al.path), 0o755); err != nil {
		return fmt.Errorf("create activity log dir: %w", err)
	}
	file, err := os.OpenFile(al.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	al.file = file
	al.writer = bufio.NewWriter(file)

	sub := al.instance.MonitorEvents().Subscribe("activity log", 64)
	m.Go("activity log writer", func(w *mgr.WorkerCtx) error {
		for {
			select {
			case event := <-sub.Events():
				if err := al.write(event); err != nil {
					w.Warn("failed to write event", "err", err)
				}
			case <-w.Done():
				sub.Cancel()
				return nil
			}
		}
	})

	// Flush buffered lines regularly, so tailing the file stays useful.
	m.Repeat("activity log flush", flushInterval, func(_ *mgr.WorkerCtx) error {
		return al.Flush()
	})

	return nil
}

// Stop stops the activity log module and closes the log file.
func (al *ActivityLog) Stop(m *mgr.Manager) error {
	al.fileLock.Lock()
	defer al.fileLock.Unlock()

	if al.file == nil {
		return nil
	}
	if err := al.writer.Flush(); err != nil {
		return err
	}
	err := al.file.Close()
	al.file = nil
	al.writer = nil
	return err
}

func (al *ActivityLog) write(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	al.fileLock.Lock()
	defer al.fileLock.Unlock()

	if al.writer == nil {
		return errors.New("activity log is closed")
	}
	if _, err := al.writer.Write(data); err != nil {
		return err
	}
	return al.writer.WriteByte('\n')
}

// Flush writes all buffered events to disk.
func (al *ActivityLog) Flush() error {
	al.fileLock.Lock()
	defer al.fileLock.Unlock()

	if al.writer == nil {
		return nil
	}
	return al.writer.Flush()
}

var (
	module     *ActivityLog
	shimLoaded atomic.Bool
)

// NewActivityLog returns a new activity log module writing to the given path.
// An empty path disables persistence.
func NewActivityLog(instance instance, path string) (*ActivityLog, error) {
	if !shimLoaded.CompareAndSwap(false, true) {
		return nil, errors.New("only one instance allowed")
	}

	module = &ActivityLog{
		path:     path,
		instance: instance,
	}
	return module, nil
}

type instance interface {
	MonitorEvents() *mgr.EventMgr[Event]
}
