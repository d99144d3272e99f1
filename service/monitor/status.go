package monitor

import (
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/safing/trackguard/service/defense"
	"github.com/safing/trackguard/service/threat"
)

// Status is a snapshot of the monitoring state.
type Status struct {
	Running            bool                       `json:"running"`
	ProtectionLevel    defense.Level              `json:"protection_level"`
	DetectionMode      threat.Mode                `json:"detection_mode"`
	ActiveMethods      []defense.Method           `json:"active_methods"`
	SignalsDetected    uint64                     `json:"signals_detected"`
	CurrentThreatLevel threat.Level               `json:"current_threat_level"`
	LastEffectiveness  map[defense.Method]float64 `json:"last_effectiveness"`
	JammingActive      bool                       `json:"jamming_active"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// Status returns a snapshot of the current monitoring state.
// It is safe to call at any time, including mid-cycle: the returned copy is
// fully detached from the state the monitoring loop is writing to.
func (m *Monitor) Status() Status {
	snap := m.snapshot.Load()
	if snap == nil {
		return Status{}
	}

	copied, err := copystructure.Copy(*snap)
	if err != nil {
		// Deep copies of Status cannot fail, it only holds plain data.
		m.mgr.Error("failed to copy status snapshot", "err", err)
		return Status{}
	}
	return copied.(Status)
}

// publishSnapshot derives a fresh snapshot from the current state.
// Callers must hold the state lock.
func (m *Monitor) publishSnapshot() {
	effectiveness := make(map[defense.Method]float64, len(m.lastEffectiveness))
	for method, value := range m.lastEffectiveness {
		effectiveness[method] = value
	}

	m.snapshot.Store(&Status{
		Running:            m.running.IsSet(),
		ProtectionLevel:    m.level,
		DetectionMode:      m.mode,
		ActiveMethods:      defense.Methods(m.level),
		SignalsDetected:    m.signalsDetected,
		CurrentThreatLevel: m.currentThreat,
		LastEffectiveness:  effectiveness,
		JammingActive:      m.jammingActive,
		UpdatedAt:          time.Now().UTC(),
	})
}
