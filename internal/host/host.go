package host

import (
	"fmt"
	"sync"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/audio"
	"github.com/cbegin/sf2synth-go/internal/control"
	"github.com/cbegin/sf2synth-go/internal/seq"
)

const DefaultCycleFrames = 512

type Options struct {
	// CycleFrames caps how many frames reach the instrument per Run call.
	// The render callback is split into cycles of at most this size.
	CycleFrames int
	// StreamFrames is the frame just past the last scheduled event. Zero
	// or negative means the stream never ends, which is what live input
	// wants.
	StreamFrames int64
	// ReleaseTailFrames keeps rendering past the end of the stream so
	// release envelopes can ring out. Zero means half a second.
	ReleaseTailFrames int
}

// Driver owns the port bindings of one instrument and feeds it cycles
// from a render callback. It implements audio.FinishingSource, so it can
// sit behind a device stream or be drained directly into a buffer for
// offline rendering.
type Driver struct {
	mu    sync.Mutex
	inst  sf2synth.Instance
	queue *seq.Queue

	events   sf2synth.EventSequence
	outL     []float32
	outR     []float32
	level    float32
	program  float32
	controls [control.NumParams]float32

	cycle     int
	pos       int64
	streamEnd int64
	tail      int
	finished  bool
}

var _ audio.FinishingSource = (*Driver)(nil)

func New(inst sf2synth.Instance, queue *seq.Queue, sampleRate int) (*Driver, error) {
	return NewWithOptions(inst, queue, sampleRate, Options{})
}

func NewWithOptions(inst sf2synth.Instance, queue *seq.Queue, sampleRate int, opts Options) (*Driver, error) {
	cycle := opts.CycleFrames
	if cycle <= 0 {
		cycle = DefaultCycleFrames
	}
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 2
	}
	streamEnd := opts.StreamFrames
	if streamEnd <= 0 {
		streamEnd = -1
	}
	if queue == nil {
		queue = seq.NewQueue()
	}
	d := &Driver{
		inst:      inst,
		queue:     queue,
		outL:      make([]float32, cycle),
		outR:      make([]float32, cycle),
		level:     1,
		cycle:     cycle,
		streamEnd: streamEnd,
		tail:      tail,
	}
	d.controls[control.Cutoff] = 1

	if err := d.inst.BindPort(sf2synth.PortEvents, &d.events); err != nil {
		return nil, fmt.Errorf("bind events: %w", err)
	}
	if err := d.inst.BindPort(sf2synth.PortAudioOutL, d.outL); err != nil {
		return nil, fmt.Errorf("bind left output: %w", err)
	}
	if err := d.inst.BindPort(sf2synth.PortAudioOutR, d.outR); err != nil {
		return nil, fmt.Errorf("bind right output: %w", err)
	}
	if err := d.inst.BindPort(sf2synth.PortLevel, &d.level); err != nil {
		return nil, fmt.Errorf("bind level: %w", err)
	}
	if err := d.inst.BindPort(sf2synth.PortProgram, &d.program); err != nil {
		return nil, fmt.Errorf("bind program: %w", err)
	}
	for p := sf2synth.PortCutoff; p <= sf2synth.PortRelease; p++ {
		if err := d.inst.BindPort(p, &d.controls[p-sf2synth.PortCutoff]); err != nil {
			return nil, fmt.Errorf("bind control port %d: %w", p, err)
		}
	}
	d.inst.Activate()
	return d, nil
}

// Process renders interleaved stereo frames into dst, running the
// instrument cycle by cycle and handing it the events that fall due.
func (d *Driver) Process(dst []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frames := len(dst) / 2
	done := 0
	for done < frames {
		n := frames - done
		if n > d.cycle {
			n = d.cycle
		}
		d.runCycle(n)
		for i := 0; i < n; i++ {
			dst[(done+i)*2] = d.outL[i]
			dst[(done+i)*2+1] = d.outR[i]
		}
		done += n
	}
}

func (d *Driver) runCycle(frames int) {
	d.events.Clear()
	start := d.pos
	end := start + int64(frames)
	d.queue.PopUntil(end, func(ev seq.Event) {
		off := int(ev.Frame - start)
		if off < 0 {
			// Late events play at the top of the cycle.
			off = 0
		}
		d.events.AppendMIDI(off, ev.Data...)
	})
	d.inst.Run(frames)
	d.pos = end
	if d.streamEnd >= 0 && d.pos >= d.streamEnd && d.queue.Len() == 0 && !d.finished {
		d.tail -= frames
		if d.tail <= 0 {
			d.finished = true
		}
	}
}

// Finished reports whether the scheduled stream and its release tail have
// both been rendered. Endless streams never finish.
func (d *Driver) Finished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finished
}

// Position returns the number of frames rendered so far. Live input uses
// it to stamp incoming events.
func (d *Driver) Position() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// SetLevel adjusts the master level port, clamped to its range.
func (d *Driver) SetLevel(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 2 {
		v = 2
	}
	d.mu.Lock()
	d.level = v
	d.mu.Unlock()
}

// SetProgram requests a program change, picked up on the next cycle.
func (d *Driver) SetProgram(index int) {
	d.mu.Lock()
	d.program = float32(index)
	d.mu.Unlock()
}

// SetControl sets one of the six synth control ports, clamped to 0..1.
func (d *Driver) SetControl(port sf2synth.Port, v float32) error {
	if port < sf2synth.PortCutoff || port > sf2synth.PortRelease {
		return fmt.Errorf("port %d is not a synth control", port)
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	d.mu.Lock()
	d.controls[port-sf2synth.PortCutoff] = v
	d.mu.Unlock()
	return nil
}

// Close deactivates the instrument. The instrument itself stays open and
// is closed by whoever created it.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inst.Deactivate()
}
