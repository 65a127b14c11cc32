package sf2synth

import (
	"errors"
	"testing"
)

// fakeBackend counts and records every call the runtime makes, and can be
// told to reject selection or controller calls.
type fakeBackend struct {
	presets map[[2]int]bool

	bankCalls []int
	progCalls []int
	noteOns   [][2]int // key, velocity
	noteOffs  []int
	ccLog     [][2]int // controller, value
	bends     []int
	gains     []float32
	rendered  []int // chunk lengths per Render call
	silences  int

	ccAttempts    int
	rejectProgram bool
	rejectCC      bool

	next float32 // running sample counter written by Render
}

func defaultFake() *fakeBackend {
	return &fakeBackend{presets: map[[2]int]bool{
		{0, 0}: true, {0, 5}: true, {2, 10}: true,
	}}
}

func (b *fakeBackend) PresetExists(bank, program int) bool {
	return b.presets[[2]int{bank, program}]
}

func (b *fakeBackend) SelectBank(channel, bank int) error {
	b.bankCalls = append(b.bankCalls, bank)
	return nil
}

func (b *fakeBackend) SelectProgram(channel, program int) error {
	if b.rejectProgram {
		return errors.New("rejected")
	}
	b.progCalls = append(b.progCalls, program)
	return nil
}

func (b *fakeBackend) NoteOn(channel, key, velocity int) error {
	b.noteOns = append(b.noteOns, [2]int{key, velocity})
	return nil
}

func (b *fakeBackend) NoteOff(channel, key int) error {
	b.noteOffs = append(b.noteOffs, key)
	return nil
}

func (b *fakeBackend) SetController(channel, controller, value int) error {
	b.ccAttempts++
	if b.rejectCC {
		return errors.New("rejected")
	}
	b.ccLog = append(b.ccLog, [2]int{controller, value})
	return nil
}

func (b *fakeBackend) SetPitchBend(channel, value int) error {
	b.bends = append(b.bends, value)
	return nil
}

func (b *fakeBackend) SetGain(gain float32) { b.gains = append(b.gains, gain) }

func (b *fakeBackend) Render(left, right []float32) {
	b.rendered = append(b.rendered, len(left))
	for i := range left {
		left[i] = b.next
		right[i] = -b.next
		b.next++
	}
}

func (b *fakeBackend) SilenceAll() { b.silences++ }

type closableBackend struct {
	*fakeBackend
	closed bool
}

func (b *closableBackend) Close() error {
	b.closed = true
	return nil
}

// rig is a fully bound instrument over a fakeBackend, the way a host
// would wire it.
type rig struct {
	in      *Instrument
	backend *fakeBackend
	events  EventSequence
	outL    []float32
	outR    []float32
	level   float32
	program float32
	params  [6]float32 // cutoff, resonance, attack, decay, sustain, release
}

func newRig(t *testing.T, frames int) *rig {
	t.Helper()
	backend := defaultFake()
	in, err := New(backend)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	r := &rig{
		in:      in,
		backend: backend,
		outL:    make([]float32, frames),
		outR:    make([]float32, frames),
		level:   1,
	}
	bind := func(p Port, v any) {
		t.Helper()
		if err := in.BindPort(p, v); err != nil {
			t.Fatalf("bind port %d: %v", p, err)
		}
	}
	bind(PortEvents, &r.events)
	bind(PortAudioOutL, r.outL)
	bind(PortAudioOutR, r.outR)
	bind(PortLevel, &r.level)
	bind(PortProgram, &r.program)
	for i := range r.params {
		bind(PortCutoff+Port(i), &r.params[i])
	}
	return r
}

func TestNewRequiresPresets(t *testing.T) {
	_, err := New(&fakeBackend{presets: map[[2]int]bool{}})
	if !errors.Is(err, ErrNoPresets) {
		t.Fatalf("err = %v, want ErrNoPresets", err)
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("nil backend accepted")
	}
}

func TestBindPortRejectsWrongTypes(t *testing.T) {
	in, err := New(defaultFake())
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	if err := in.BindPort(PortLevel, []float32{1}); err == nil {
		t.Fatalf("slice accepted on a scalar port")
	}
	if err := in.BindPort(PortAudioOutL, new(float32)); err == nil {
		t.Fatalf("pointer accepted on an audio port")
	}
	if err := in.BindPort(PortEvents, new(float32)); err == nil {
		t.Fatalf("pointer accepted on the event port")
	}
	if err := in.BindPort(Port(99), new(float32)); err == nil {
		t.Fatalf("unknown port accepted")
	}
}

func TestProgramSwitchSelectsTableEntries(t *testing.T) {
	r := newRig(t, 0)
	want := []struct{ bank, prog int }{{0, 0}, {0, 5}, {2, 10}}
	for i := len(want) - 1; i >= 0; i-- {
		r.program = float32(i)
		r.in.Run(0)
		if got := r.backend.bankCalls[len(r.backend.bankCalls)-1]; got != want[i].bank {
			t.Fatalf("index %d: bank = %d, want %d", i, got, want[i].bank)
		}
		if got := r.backend.progCalls[len(r.backend.progCalls)-1]; got != want[i].prog {
			t.Fatalf("index %d: program = %d, want %d", i, got, want[i].prog)
		}
		if idx, ok := r.in.CurrentProgram(); !ok || idx != i {
			t.Fatalf("current program = %d (ok=%v), want %d", idx, ok, i)
		}
	}
	if r.backend.silences != len(want) {
		t.Fatalf("silences = %d, want one per switch (%d)", r.backend.silences, len(want))
	}
}

func TestProgramOutOfDomainIgnored(t *testing.T) {
	r := newRig(t, 0)
	for _, v := range []float32{-1, 3, 8} {
		r.program = v
		r.in.Run(0)
		if _, ok := r.in.CurrentProgram(); ok {
			t.Fatalf("program %v selected something", v)
		}
	}
	if len(r.backend.progCalls) != 0 || r.backend.silences != 0 {
		t.Fatalf("backend touched by out-of-domain requests: %d program changes, %d silences",
			len(r.backend.progCalls), r.backend.silences)
	}

	r.program = 1
	r.in.Run(0)
	r.program = -1
	r.in.Run(0)
	if idx, ok := r.in.CurrentProgram(); !ok || idx != 1 {
		t.Fatalf("current program = %d (ok=%v), want 1 retained", idx, ok)
	}
	if got := len(r.backend.progCalls); got != 1 {
		t.Fatalf("program changes = %d, want 1", got)
	}
}

func TestProgramRounding(t *testing.T) {
	backend := &fakeBackend{presets: map[[2]int]bool{
		{0, 0}: true, {0, 1}: true, {0, 2}: true, {0, 3}: true, {0, 4}: true,
	}}
	in, err := New(backend)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	var program float32
	if err := in.BindPort(PortProgram, &program); err != nil {
		t.Fatalf("bind program: %v", err)
	}

	steps := []struct {
		input float32
		index int
	}{
		{3.4, 3},
		{3.5, 4},
		{3.49999, 3},
	}
	for _, s := range steps {
		program = s.input
		in.Run(0)
		if idx, ok := in.CurrentProgram(); !ok || idx != s.index {
			t.Fatalf("input %v: current program = %d (ok=%v), want %d", s.input, idx, ok, s.index)
		}
	}
	wantProgs := []int{3, 4, 3}
	if len(backend.progCalls) != len(wantProgs) {
		t.Fatalf("program changes = %v, want %v", backend.progCalls, wantProgs)
	}
	for i, p := range wantProgs {
		if backend.progCalls[i] != p {
			t.Fatalf("program change %d = %d, want %d", i, backend.progCalls[i], p)
		}
	}
}

func TestFirstCycleForwardsEveryBoundControlOnce(t *testing.T) {
	backend := defaultFake()
	in, err := New(backend)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	var params [6]float32
	for i := range params {
		if err := in.BindPort(PortCutoff+Port(i), &params[i]); err != nil {
			t.Fatalf("bind control %d: %v", i, err)
		}
	}

	in.Run(0)
	want := [][2]int{{21, 127}, {22, 0}, {23, 0}, {24, 0}, {25, 0}, {26, 0}}
	if len(backend.ccLog) != len(want) {
		t.Fatalf("controller calls = %v, want %v", backend.ccLog, want)
	}
	for i, w := range want {
		if backend.ccLog[i] != w {
			t.Fatalf("controller call %d = %v, want %v", i, backend.ccLog[i], w)
		}
	}

	in.Run(0)
	if len(backend.ccLog) != len(want) {
		t.Fatalf("second cycle re-forwarded unchanged controls: %v", backend.ccLog)
	}
}

func TestChangeDetectorForwardsOnce(t *testing.T) {
	r := newRig(t, 0)
	r.in.Run(0) // settles the program switch and the initial control sync
	base := len(r.backend.ccLog)

	r.params[0] = 0.5 // cutoff
	for i := 0; i < 6; i++ {
		r.in.Run(0)
	}
	if got := len(r.backend.ccLog) - base; got != 1 {
		t.Fatalf("forwarded %d controller calls for one change, want 1", got)
	}
	if last := r.backend.ccLog[len(r.backend.ccLog)-1]; last != [2]int{21, 63} {
		t.Fatalf("forwarded %v, want [21 63]", last)
	}
}

func TestPresetSwitchRebasesBaselines(t *testing.T) {
	r := newRig(t, 0)
	r.in.Run(0)

	r.params[0] = 0.7
	r.in.Run(0)
	base := len(r.backend.ccLog)

	r.program = 1
	r.in.Run(0)
	resets := r.backend.ccLog[base:]
	want := [][2]int{{21, 0}, {22, 0}, {23, 0}, {24, 0}, {25, 0}, {26, 0}}
	if len(resets) != len(want) {
		t.Fatalf("switch wrote %v, want the six controller resets %v", resets, want)
	}
	for i, w := range want {
		if resets[i] != w {
			t.Fatalf("reset %d = %v, want %v", i, resets[i], w)
		}
	}

	// The port still reads 0.7; the rebased baseline must swallow it.
	r.in.Run(0)
	if got := len(r.backend.ccLog); got != base+len(want) {
		t.Fatalf("cycle after switch forwarded %d extra calls", got-base-len(want))
	}
}

func TestControllerRejectionNotRetried(t *testing.T) {
	backend := defaultFake()
	backend.rejectCC = true
	in, err := New(backend)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	var cutoff float32
	if err := in.BindPort(PortCutoff, &cutoff); err != nil {
		t.Fatalf("bind cutoff: %v", err)
	}

	cutoff = 0.4
	in.Run(0)
	in.Run(0)
	if backend.ccAttempts != 1 {
		t.Fatalf("controller attempts = %d, want 1 (no retry)", backend.ccAttempts)
	}
}

func TestProgramChangeRejectionRecordsIndex(t *testing.T) {
	r := newRig(t, 0)
	r.backend.rejectProgram = true

	r.program = 1
	r.in.Run(0)
	if idx, ok := r.in.CurrentProgram(); !ok || idx != 1 {
		t.Fatalf("current program = %d (ok=%v), want 1 recorded despite rejection", idx, ok)
	}
	silences := r.backend.silences

	r.in.Run(0)
	if r.backend.silences != silences {
		t.Fatalf("rejected switch retried on the next cycle")
	}
}

func TestMasterGainForwardedEveryCycle(t *testing.T) {
	r := newRig(t, 0)
	r.level = 1.5
	for i := 0; i < 3; i++ {
		r.in.Run(0)
	}
	if len(r.backend.gains) != 3 {
		t.Fatalf("gain calls = %d, want one per cycle (3)", len(r.backend.gains))
	}
	for _, g := range r.backend.gains {
		if g != 1.5 {
			t.Fatalf("gain = %v, want 1.5", g)
		}
	}

	if err := r.in.BindPort(PortLevel, (*float32)(nil)); err != nil {
		t.Fatalf("detach level: %v", err)
	}
	r.in.Run(0)
	if len(r.backend.gains) != 3 {
		t.Fatalf("gain forwarded with the level port detached")
	}
}

func TestRenderChunkAccounting(t *testing.T) {
	for _, frames := range []int{1, 63, 64, 65, 200} {
		r := newRig(t, frames)
		r.in.Run(frames)

		total := 0
		for _, chunk := range r.backend.rendered {
			if chunk <= 0 || chunk > DefaultBlockSize {
				t.Fatalf("frames %d: chunk %d outside (0,%d]", frames, chunk, DefaultBlockSize)
			}
			total += chunk
		}
		if total != frames {
			t.Fatalf("frames %d: chunks sum to %d", frames, total)
		}
		// The backend writes a running counter, so any gap, overlap, or
		// reorder shows up as a wrong sample value.
		for i := 0; i < frames; i++ {
			if r.outL[i] != float32(i) || r.outR[i] != -float32(i) {
				t.Fatalf("frames %d: sample %d = (%v, %v), want (%v, %v)",
					frames, i, r.outL[i], r.outR[i], float32(i), -float32(i))
			}
		}
	}
}

func TestRenderClampsToBoundBuffers(t *testing.T) {
	r := newRig(t, 10)
	r.in.Run(25)
	total := 0
	for _, chunk := range r.backend.rendered {
		total += chunk
	}
	if total != 10 {
		t.Fatalf("rendered %d frames into 10-frame buffers", total)
	}
}

func TestZeroFrameCycleStillProcessesInputs(t *testing.T) {
	r := newRig(t, 0)
	r.events.AppendMIDI(0, 0x90, 60, 100)
	r.in.Run(0)
	if len(r.backend.rendered) != 0 {
		t.Fatalf("zero-frame cycle rendered audio")
	}
	if len(r.backend.noteOns) != 1 {
		t.Fatalf("zero-frame cycle dropped events")
	}
}

func TestVelocityZeroNoteOnIsNoteOff(t *testing.T) {
	r := newRig(t, 0)
	r.events.AppendMIDI(0, 0x90, 60, 0)
	r.in.Run(0)
	if len(r.backend.noteOns) != 0 {
		t.Fatalf("velocity-zero note-on reached NoteOn: %v", r.backend.noteOns)
	}
	if len(r.backend.noteOffs) != 1 || r.backend.noteOffs[0] != 60 {
		t.Fatalf("note offs = %v, want [60]", r.backend.noteOffs)
	}
}

func TestDispatcherRoutesChannelVoiceMessages(t *testing.T) {
	r := newRig(t, 0)
	r.events.AppendMIDI(0, 0x90, 60, 100)
	r.events.AppendMIDI(4, 0x80, 60, 0)
	r.events.AppendMIDI(8, 0xB0, 7, 99)
	r.events.AppendMIDI(12, 0xE0, 0x01, 0x40)
	r.events.AppendMIDI(16, 0xD0, 42)       // channel pressure, ignored
	r.events.AppendMIDI(20, 0x90, 61)       // truncated, ignored
	r.events.Events = append(r.events.Events, Event{Frame: 24, Type: EventType(7), Data: []byte{0x90, 62, 100}})

	r.in.Run(0)

	if len(r.backend.noteOns) != 1 || r.backend.noteOns[0] != [2]int{60, 100} {
		t.Fatalf("note ons = %v, want [[60 100]]", r.backend.noteOns)
	}
	if len(r.backend.noteOffs) != 1 || r.backend.noteOffs[0] != 60 {
		t.Fatalf("note offs = %v, want [60]", r.backend.noteOffs)
	}
	if len(r.backend.ccLog) == 0 || r.backend.ccLog[len(r.backend.ccLog)-1] != [2]int{7, 99} {
		t.Fatalf("cc log = %v, want raw (7, 99) passthrough", r.backend.ccLog)
	}
	if len(r.backend.bends) != 1 || r.backend.bends[0] != (0x40<<7)|0x01 {
		t.Fatalf("bends = %v, want [%d]", r.backend.bends, (0x40<<7)|0x01)
	}
}

func TestEventsProcessedInOrder(t *testing.T) {
	r := newRig(t, 0)
	r.events.AppendMIDI(0, 0x90, 60, 100)
	r.events.AppendMIDI(0, 0x90, 60, 0)
	r.events.AppendMIDI(1, 0x90, 64, 90)
	r.in.Run(0)
	if len(r.backend.noteOns) != 2 || len(r.backend.noteOffs) != 1 {
		t.Fatalf("note ons %v, note offs %v", r.backend.noteOns, r.backend.noteOffs)
	}
	if r.backend.noteOns[0] != [2]int{60, 100} || r.backend.noteOns[1] != [2]int{64, 90} {
		t.Fatalf("note-on order = %v", r.backend.noteOns)
	}
}

func TestLifecycleSilencesAndCloses(t *testing.T) {
	backend := &closableBackend{fakeBackend: defaultFake()}
	in, err := New(backend)
	if err != nil {
		t.Fatalf("new instrument: %v", err)
	}
	in.Activate()
	in.Deactivate()
	if backend.silences != 2 {
		t.Fatalf("silences = %d, want 2 (activate + deactivate)", backend.silences)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !backend.closed {
		t.Fatalf("backend not closed")
	}
	if backend.silences != 3 {
		t.Fatalf("silences = %d, want a final silence on close", backend.silences)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
