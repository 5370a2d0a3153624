// Package intent turns the continuous control signal into discrete
// start/restart intents. It is an edge-triggered debounce, not a gesture
// recognizer: one threshold, one cooldown, no per-direction hysteresis.
package intent

import "math"

const (
	// DefaultThreshold is the signal delta that qualifies as deliberate movement.
	DefaultThreshold = 0.05
	// DefaultCooldownTicks suppresses refiring while a single sustained
	// movement plays out. Counted in ticks, so callers must observe at a
	// stable tick rate.
	DefaultCooldownTicks = 30
)

type Detector struct {
	threshold     float64
	cooldownTicks int

	last     float64
	primed   bool
	cooldown int
}

func NewDetector(threshold float64, cooldownTicks int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if cooldownTicks <= 0 {
		cooldownTicks = DefaultCooldownTicks
	}
	return &Detector{threshold: threshold, cooldownTicks: cooldownTicks}
}

// Observe consumes one signal sample and reports whether an intent fired.
// The last seen value is always updated, fired or not, so a slow drift never
// accumulates into a false trigger. The very first sample only seeds the
// baseline: wherever the player happens to stand when tracking kicks in is
// not a movement.
func (d *Detector) Observe(signal float64) bool {
	if !d.primed {
		d.primed = true
		d.last = signal
		return false
	}
	if d.cooldown > 0 {
		d.cooldown--
		d.last = signal
		return false
	}
	fired := math.Abs(signal-d.last) > d.threshold
	d.last = signal
	if fired {
		d.cooldown = d.cooldownTicks
	}
	return fired
}
