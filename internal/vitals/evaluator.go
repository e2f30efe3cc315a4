package vitals

import (
	"time"

	"beacon-alerts/internal/config"
	"beacon-alerts/internal/models"
)

// HeartbeatOutcome is the transition the heartbeat hysteresis machine
// should make for one device on one sweep.
type HeartbeatOutcome int

const (
	HeartbeatNoChange HeartbeatOutcome = iota
	HeartbeatDisconnected
	HeartbeatDisconnectedReminder
	HeartbeatReconnected
)

// BatteryOutcome is the transition the low-battery hysteresis machine
// should make.
type BatteryOutcome int

const (
	BatteryNoChange BatteryOutcome = iota
	BatteryLow
	BatteryLowReminder
	BatteryRecovered
)

// Evaluator holds the pure hysteresis decisions. It reads state and
// samples and returns outcomes; applying them (flag writes,
// notifications) is the sweeper's job.
type Evaluator struct {
	cfg *config.Config
}

// NewEvaluator creates the evaluator.
func NewEvaluator(cfg *config.Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// EvaluateHeartbeat decides the connectivity transition from the age of
// the most recent sample. A device that has never reported makes no
// transition in either direction.
func (e *Evaluator) EvaluateHeartbeat(state models.AlertFlagState, lastAlertAt *time.Time, sample *models.VitalsSample, now time.Time, threshold time.Duration) HeartbeatOutcome {
	if sample == nil {
		return HeartbeatNoChange
	}

	delay := now.Sub(sample.CreatedAt)
	if delay > threshold {
		if state != models.FlagAlerted {
			return HeartbeatDisconnected
		}
		if lastAlertAt != nil && now.Sub(*lastAlertAt) > e.cfg.Vitals.SubsequentAlertThreshold {
			return HeartbeatDisconnectedReminder
		}
		return HeartbeatNoChange
	}

	if state == models.FlagAlerted {
		return HeartbeatReconnected
	}
	return HeartbeatNoChange
}

// EvaluateBattery decides the low-battery transition. The alert raises
// below the low threshold but only clears above the recovery threshold;
// the gap between the two stops a level oscillating near one boundary
// from flapping. A nil reading is no information and never transitions.
func (e *Evaluator) EvaluateBattery(state models.AlertFlagState, lastAlertAt *time.Time, batteryLevel *int, now time.Time) BatteryOutcome {
	if batteryLevel == nil {
		return BatteryNoChange
	}
	level := *batteryLevel

	if state == models.FlagAlerted {
		if level > e.cfg.Vitals.RecoveryBatteryThreshold {
			return BatteryRecovered
		}
		if level < e.cfg.Vitals.LowBatteryThreshold &&
			lastAlertAt != nil && now.Sub(*lastAlertAt) > e.cfg.Vitals.SubsequentAlertThreshold {
			return BatteryLowReminder
		}
		return BatteryNoChange
	}

	if level < e.cfg.Vitals.LowBatteryThreshold {
		return BatteryLow
	}
	return BatteryNoChange
}

// HubInternalTransition records one operator-facing metric flip.
type HubInternalTransition struct {
	Metric   string
	Exceeded bool
	Delay    time.Duration
}

// EvaluateHubInternal updates the hub's three internal flags in place
// and returns the flips made, so the sweeper can log and persist them.
// Internal alerts never notify the tenant.
func (e *Evaluator) EvaluateHubInternal(hub *models.Hub, now time.Time) []HubInternalTransition {
	var transitions []HubInternalTransition

	flicDelay := now.Sub(hub.FlicLastSeenAt)
	pingDelay := now.Sub(hub.FlicLastPingAt)
	heartbeatDelay := now.Sub(hub.HeartbeatLastSeenAt)

	flicExceeded := flicDelay > e.cfg.Vitals.Hub.FlicThreshold
	if flicExceeded != hub.SentInternalFlicAlert {
		hub.SentInternalFlicAlert = flicExceeded
		transitions = append(transitions, HubInternalTransition{Metric: "flic", Exceeded: flicExceeded, Delay: flicDelay})
	}

	pingExceeded := pingDelay > e.cfg.Vitals.Hub.PingThreshold
	if pingExceeded != hub.SentInternalPingAlert {
		hub.SentInternalPingAlert = pingExceeded
		transitions = append(transitions, HubInternalTransition{Metric: "ping", Exceeded: pingExceeded, Delay: pingDelay})
	}

	heartbeatExceeded := heartbeatDelay > e.cfg.Vitals.Hub.HeartbeatThreshold
	if heartbeatExceeded != hub.SentInternalHeartbeatAlert {
		hub.SentInternalHeartbeatAlert = heartbeatExceeded
		transitions = append(transitions, HubInternalTransition{Metric: "heartbeat", Exceeded: heartbeatExceeded, Delay: heartbeatDelay})
	}

	return transitions
}

// EvaluateHubExternal decides the tenant-facing transition. The external
// alert fires only once all three internal flags are set and the coarser
// external threshold is exceeded as well; it clears as soon as the hub
// reports again, independent of the internal flags.
func (e *Evaluator) EvaluateHubExternal(hub *models.Hub, now time.Time) HeartbeatOutcome {
	flicDelay := now.Sub(hub.FlicLastSeenAt)
	pingDelay := now.Sub(hub.FlicLastPingAt)
	heartbeatDelay := now.Sub(hub.HeartbeatLastSeenAt)

	externalThreshold := e.cfg.Vitals.Hub.ExternalThreshold
	allInternal := hub.SentInternalFlicAlert && hub.SentInternalPingAlert && hub.SentInternalHeartbeatAlert
	externalExceeded := allInternal &&
		(flicDelay > externalThreshold || pingDelay > externalThreshold || heartbeatDelay > externalThreshold)

	if externalExceeded {
		if hub.VitalsAlertState != models.FlagAlerted {
			return HeartbeatDisconnected
		}
		if hub.VitalsAlertAt != nil && now.Sub(*hub.VitalsAlertAt) > e.cfg.Vitals.SubsequentAlertThreshold {
			return HeartbeatDisconnectedReminder
		}
		return HeartbeatNoChange
	}

	if hub.VitalsAlertState == models.FlagAlerted {
		return HeartbeatReconnected
	}
	return HeartbeatNoChange
}
