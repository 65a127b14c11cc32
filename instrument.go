package sf2synth

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/cbegin/sf2synth-go/internal/control"
	"github.com/cbegin/sf2synth-go/preset"
)

// Instance is the lifecycle contract between a host and one instrument
// unit: bind ports, activate, run cycles, deactivate, destroy. Instrument
// is the implementation; the interface lets hosts hold any conforming unit.
type Instance interface {
	BindPort(port Port, data any) error
	Activate()
	Run(frames int)
	Deactivate()
	Close() error
}

// ErrNoPresets is returned by New when the loaded bank contains no
// presets. An instrument without programs is unusable, so construction
// fails rather than returning a silent instance.
var ErrNoPresets = errors.New("sound bank contains no presets")

// noProgram is the selection sentinel before the first program switch.
const noProgram = -1

// Instrument is one instance of the SoundFont instrument runtime. It owns
// its backend and preset table exclusively. All methods must be called
// from a single goroutine at a time; Run is designed for a real-time audio
// callback and does not allocate.
type Instrument struct {
	info      Info
	blockSize int
	debug     *log.Logger

	backend  Backend
	presets  *preset.Table
	controls *control.Set
	current  int

	scratchL []float32
	scratchR []float32

	// Host port bindings. Borrowed memory, never owned: valid from the
	// bind call until the next rebind or Close.
	events  *EventSequence
	outL    []float32
	outR    []float32
	level   *float32
	program *float32
	params  [control.NumParams]*float32
}

var _ Instance = (*Instrument)(nil)

// New builds an instrument around an already-loaded backend. The preset
// table is enumerated here, once, outside the audio path; a bank with zero
// presets fails with ErrNoPresets and no instance is returned. On success
// the instrument owns backend until Close.
func New(backend Backend, opts ...Option) (*Instrument, error) {
	if backend == nil {
		return nil, errors.New("nil backend")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	table := preset.Build(backend)
	if table.Len() == 0 {
		return nil, ErrNoPresets
	}
	return &Instrument{
		info:      cfg.info,
		blockSize: cfg.blockSize,
		debug:     cfg.debug,
		backend:   backend,
		presets:   table,
		controls:  control.NewSet(),
		current:   noProgram,
		scratchL:  make([]float32, cfg.blockSize),
		scratchR:  make([]float32, cfg.blockSize),
	}, nil
}

// BindPort connects a host memory location to one port slot. Expected
// types: *EventSequence for PortEvents, []float32 for the two audio
// outputs, *float32 for every control scalar. Binding a nil value detaches
// the port. Bindings are borrowed; the host may rebind between cycles but
// never during Run.
func (in *Instrument) BindPort(port Port, data any) error {
	switch port {
	case PortEvents:
		seq, ok := data.(*EventSequence)
		if !ok {
			return fmt.Errorf("port %d: want *EventSequence, got %T", port, data)
		}
		in.events = seq
	case PortAudioOutL, PortAudioOutR:
		buf, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("port %d: want []float32, got %T", port, data)
		}
		if port == PortAudioOutL {
			in.outL = buf
		} else {
			in.outR = buf
		}
	case PortLevel:
		v, ok := data.(*float32)
		if !ok {
			return fmt.Errorf("port %d: want *float32, got %T", port, data)
		}
		in.level = v
	case PortProgram:
		v, ok := data.(*float32)
		if !ok {
			return fmt.Errorf("port %d: want *float32, got %T", port, data)
		}
		in.program = v
	case PortCutoff, PortResonance, PortAttack, PortDecay, PortSustain, PortRelease:
		v, ok := data.(*float32)
		if !ok {
			return fmt.Errorf("port %d: want *float32, got %T", port, data)
		}
		in.params[port-PortCutoff] = v
	default:
		return fmt.Errorf("unknown port %d", port)
	}
	return nil
}

// Activate prepares the instrument for processing. Voices left sounding
// from before a suspension are silenced, so no stale notes survive an
// activation boundary.
func (in *Instrument) Activate() { in.backend.SilenceAll() }

// Deactivate suspends processing and silences all voices.
func (in *Instrument) Deactivate() { in.backend.SilenceAll() }

// Run executes one processing cycle: program switch, control edge
// detection, master gain, event dispatch, then chunked rendering of frames
// stereo frames into the bound output buffers. Frame counts beyond the
// bound buffer lengths are clamped; zero frames is a valid cycle that
// still processes controls and events.
func (in *Instrument) Run(frames int) {
	in.updateProgram()
	in.updateControls()
	if in.level != nil {
		// Level is not edge detected; it is forwarded every cycle.
		in.backend.SetGain(*in.level)
	}
	in.dispatchEvents()
	in.render(frames)
}

// updateProgram reads the program port and performs at most one preset
// switch per cycle.
func (in *Instrument) updateProgram() {
	if in.program == nil {
		return
	}
	// Round half up. Negative inputs stay negative and fail the domain
	// check instead of landing on program zero.
	want := int(math.Floor(float64(*in.program) + 0.5))
	if want == in.current {
		return
	}
	if want < 0 || want >= in.presets.Len() {
		if in.debug != nil {
			in.debug.Printf("program %d out of range 0..%d, ignored", want, in.presets.Len()-1)
		}
		return
	}
	in.switchProgram(want)
}

// switchProgram performs the preset transition: hard-silence the engine,
// select bank then program (program resolves relative to the bank, so the
// order matters), rewrite every control to its fixed default, and rebase
// the detector baselines so the discontinuity is not echoed as a control
// change next cycle.
func (in *Instrument) switchProgram(index int) {
	entry := in.presets.At(index)
	in.backend.SilenceAll()
	if err := in.backend.SelectBank(0, entry.Bank); err != nil && in.debug != nil {
		in.debug.Printf("bank select %d: %v", entry.Bank, err)
	}
	if err := in.backend.SelectProgram(0, entry.Program); err != nil && in.debug != nil {
		// The engine stays on the prior audible program; the index is
		// still recorded below so future comparisons match the request.
		in.debug.Printf("program change bank %d program %d: %v", entry.Bank, entry.Program, err)
	}
	for p := control.Param(0); p < control.NumParams; p++ {
		if err := in.backend.SetController(0, p.CC(), control.ResetValue); err != nil && in.debug != nil {
			in.debug.Printf("reset %v: %v", p, err)
		}
	}
	for p := control.Param(0); p < control.NumParams; p++ {
		if ptr := in.params[p]; ptr != nil {
			in.controls.Rebase(p, *ptr)
		} else {
			in.controls.ClearTouched(p)
		}
	}
	in.current = index
}

// updateControls forwards each bound control whose port value changed
// since it was last forwarded.
func (in *Instrument) updateControls() {
	for p := control.Param(0); p < control.NumParams; p++ {
		ptr := in.params[p]
		if ptr == nil {
			continue
		}
		cc, value, changed := in.controls.Update(p, *ptr)
		if !changed {
			continue
		}
		if err := in.backend.SetController(0, cc, value); err != nil && in.debug != nil {
			// The value stays recorded as forwarded; a failed set is not
			// retried on later cycles.
			in.debug.Printf("controller %d: %v", cc, err)
		}
	}
}

// dispatchEvents drains the bound event sequence in order.
func (in *Instrument) dispatchEvents() {
	if in.events == nil {
		return
	}
	for _, ev := range in.events.Events {
		if ev.Type != EventMIDI || len(ev.Data) == 0 {
			continue
		}
		in.dispatchMIDI(ev.Data)
	}
}

func (in *Instrument) dispatchMIDI(msg []byte) {
	var err error
	switch msg[0] & 0xF0 {
	case 0x90: // note on; velocity zero is a note off
		if len(msg) < 3 {
			return
		}
		if msg[2] > 0 {
			err = in.backend.NoteOn(0, int(msg[1]), int(msg[2]))
		} else {
			err = in.backend.NoteOff(0, int(msg[1]))
		}
	case 0x80: // note off
		if len(msg) < 2 {
			return
		}
		err = in.backend.NoteOff(0, int(msg[1]))
	case 0xB0: // control change, forwarded raw
		if len(msg) < 3 {
			return
		}
		err = in.backend.SetController(0, int(msg[1]), int(msg[2]))
	case 0xE0: // pitch bend, raw 14-bit value
		if len(msg) < 3 {
			return
		}
		err = in.backend.SetPitchBend(0, int(msg[2])<<7|int(msg[1]))
	default:
		return
	}
	if err != nil && in.debug != nil {
		in.debug.Printf("midi %#02x: %v", msg[0], err)
	}
}

// render produces frames stereo frames through the fixed-size scratch
// buffers. Chunking keeps the backend's render length bounded while
// writing each output frame exactly once, for any frame count.
func (in *Instrument) render(frames int) {
	if in.outL == nil || in.outR == nil {
		return
	}
	if frames > len(in.outL) {
		frames = len(in.outL)
	}
	if frames > len(in.outR) {
		frames = len(in.outR)
	}
	remaining, offset := frames, 0
	for remaining > 0 {
		chunk := remaining
		if chunk > in.blockSize {
			chunk = in.blockSize
		}
		in.backend.Render(in.scratchL[:chunk], in.scratchR[:chunk])
		copy(in.outL[offset:offset+chunk], in.scratchL[:chunk])
		copy(in.outR[offset:offset+chunk], in.scratchR[:chunk])
		remaining -= chunk
		offset += chunk
	}
}

// Close silences the engine and releases the instrument's resources in
// reverse acquisition order, the backend last. The instrument must not be
// used afterwards.
func (in *Instrument) Close() error {
	if in.backend == nil {
		return nil
	}
	in.backend.SilenceAll()
	in.scratchL, in.scratchR = nil, nil
	in.presets = nil
	var err error
	if c, ok := in.backend.(io.Closer); ok {
		err = c.Close()
	}
	in.backend = nil
	return err
}

// Info returns the identity the instrument was configured with.
func (in *Instrument) Info() Info { return in.info }

// Presets returns the program table built at construction.
func (in *Instrument) Presets() *preset.Table { return in.presets }

// PresetCount returns the number of programs in the loaded bank.
func (in *Instrument) PresetCount() int { return in.presets.Len() }

// BlockSize returns the render chunk size in frames.
func (in *Instrument) BlockSize() int { return in.blockSize }

// CurrentProgram returns the selected program index; ok is false before
// the first switch.
func (in *Instrument) CurrentProgram() (index int, ok bool) {
	if in.current == noProgram {
		return 0, false
	}
	return in.current, true
}
