// Package control tracks the six continuous instrument controls and
// decides, once per cycle, which of them must be forwarded to the
// synthesis backend.
package control

import "math"

// Param identifies one continuous control, in port order.
type Param int

const (
	Cutoff Param = iota
	Resonance
	Attack
	Decay
	Sustain
	Release
	NumParams
)

// ResetValue is the controller value written for every control when a
// program switch resets the backend parameter state. It is a fixed
// constant so the post-switch state never depends on automation history.
const ResetValue = 0

var defs = [NumParams]struct {
	name     string
	cc       int
	inverted bool
}{
	Cutoff:    {"cutoff", 21, true},
	Resonance: {"resonance", 22, false},
	Attack:    {"attack", 23, false},
	Decay:     {"decay", 24, false},
	Sustain:   {"sustain", 25, false},
	Release:   {"release", 26, false},
}

func (p Param) String() string { return defs[p].name }

// CC returns the MIDI controller number the control is forwarded on.
func (p Param) CC() int { return defs[p].cc }

// Quantize maps a port value in [0,1] onto the 0..127 controller range,
// truncating. Cutoff maps inverted, (1-v)*127, because the backend
// parameter's perceptual direction is reversed relative to the port.
func (p Param) Quantize(v float32) int {
	if defs[p].inverted {
		v = 1 - v
	}
	return int(v * 127)
}

// Set holds the edge-detection state for all six controls: the last value
// forwarded to the backend and a touched flag per control. Use NewSet;
// the zero value has zeroed baselines, not the first-cycle behavior.
type Set struct {
	last    [NumParams]float32
	touched [NumParams]bool
}

// NewSet returns a Set whose baselines are NaN. NaN compares unequal to
// every port value, so the first Update after construction always
// forwards, giving the backend a deterministic initial controller state.
func NewSet() *Set {
	s := &Set{}
	for i := range s.last {
		s.last[i] = float32(math.NaN())
	}
	return s
}

// Update compares v against the last value forwarded for p, using exact
// equality. When they differ it records v as forwarded, marks p touched,
// and returns the controller message to send. Equal values return
// ok=false and cause no backend traffic.
//
// The value is recorded before the caller talks to the backend; a
// rejected set call is not retried on later cycles.
func (s *Set) Update(p Param, v float32) (cc, value int, ok bool) {
	if v == s.last[p] {
		return 0, 0, false
	}
	s.last[p] = v
	s.touched[p] = true
	return defs[p].cc, p.Quantize(v), true
}

// Rebase overwrites p's baseline with the current port value and clears
// its touched flag, so the discontinuity of a program switch is not
// reported as a control change on the next cycle.
func (s *Set) Rebase(p Param, v float32) {
	s.last[p] = v
	s.touched[p] = false
}

// ClearTouched clears p's touched flag without moving the baseline. Used
// on a program switch for controls whose port is not bound.
func (s *Set) ClearTouched(p Param) { s.touched[p] = false }

// Touched reports whether p has been driven since the last rebase.
func (s *Set) Touched(p Param) bool { return s.touched[p] }
