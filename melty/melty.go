// Package melty adapts the go-meltysynth SoundFont synthesizer to the
// sf2synth Backend contract.
package melty

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/preset"
)

type coord struct {
	bank    int
	program int
}

// Synth wraps a meltysynth synthesizer and the sound bank it loaded. It
// implements sf2synth.Backend, preset.Namer, and io.Closer.
type Synth struct {
	synth      *meltysynth.Synthesizer
	font       *meltysynth.SoundFont
	names      map[coord]string
	bank       int // pending bank for the next program change
	sampleRate int
}

var (
	_ sf2synth.Backend = (*Synth)(nil)
	_ preset.Namer     = (*Synth)(nil)
	_ io.Closer        = (*Synth)(nil)
)

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	sampleRate int
	polyphony  int
	effects    bool
}

func defaultOpenConfig() openConfig {
	return openConfig{sampleRate: 44100, polyphony: 64}
}

// WithSampleRate sets the render rate in Hz. The default is 44100.
func WithSampleRate(hz int) OpenOption {
	return func(cfg *openConfig) {
		if hz > 0 {
			cfg.sampleRate = hz
		}
	}
}

// WithPolyphony caps the number of simultaneous voices. The default is 64.
func WithPolyphony(voices int) OpenOption {
	return func(cfg *openConfig) {
		if voices > 0 {
			cfg.polyphony = voices
		}
	}
}

// WithReverbAndChorus enables the synthesizer's built-in send effects.
// They are off by default.
func WithReverbAndChorus(enabled bool) OpenOption {
	return func(cfg *openConfig) { cfg.effects = enabled }
}

// Open reads and parses a SoundFont file and builds a synthesizer around
// it. The returned Synth is ready to hand to sf2synth.New.
func Open(path string, opts ...OpenOption) (*Synth, error) {
	cfg := defaultOpenConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sound bank: %w", err)
	}
	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse sound bank %s: %w", path, err)
	}

	settings := meltysynth.NewSynthesizerSettings(int32(cfg.sampleRate))
	settings.MaximumPolyphony = int32(cfg.polyphony)
	settings.EnableReverbAndChorus = cfg.effects
	synth, err := meltysynth.NewSynthesizer(font, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	return &Synth{
		synth:      synth,
		font:       font,
		names:      presetNames(font.Presets),
		sampleRate: cfg.sampleRate,
	}, nil
}

func presetNames(presets []*meltysynth.Preset) map[coord]string {
	names := make(map[coord]string, len(presets))
	for _, p := range presets {
		names[coord{int(p.BankNumber), int(p.PatchNumber)}] = p.Name
	}
	return names
}

// SampleRate returns the rate the synthesizer renders at, in Hz.
func (s *Synth) SampleRate() int { return s.sampleRate }

// PresetExists reports whether the loaded bank holds a preset at the
// bank/program coordinate.
func (s *Synth) PresetExists(bank, program int) bool {
	_, ok := s.names[coord{bank, program}]
	return ok
}

// PresetName returns the display name stored in the bank for a preset.
func (s *Synth) PresetName(bank, program int) (string, bool) {
	name, ok := s.names[coord{bank, program}]
	return name, ok
}

// SelectBank records the pending bank and forwards a bank-select
// controller message.
func (s *Synth) SelectBank(channel, bank int) error {
	s.bank = bank
	s.synth.ProcessMidiMessage(int32(channel), 0xB0, 0x00, int32(bank))
	return nil
}

// SelectProgram issues a program change within the pending bank. Unknown
// coordinates are rejected without touching the synthesizer.
func (s *Synth) SelectProgram(channel, program int) error {
	if !s.PresetExists(s.bank, program) {
		return fmt.Errorf("no preset at bank %d program %d", s.bank, program)
	}
	s.synth.ProcessMidiMessage(int32(channel), 0xC0, int32(program), 0)
	return nil
}

func (s *Synth) NoteOn(channel, key, velocity int) error {
	s.synth.NoteOn(int32(channel), int32(key), int32(velocity))
	return nil
}

func (s *Synth) NoteOff(channel, key int) error {
	s.synth.NoteOff(int32(channel), int32(key))
	return nil
}

func (s *Synth) SetController(channel, controller, value int) error {
	s.synth.ProcessMidiMessage(int32(channel), 0xB0, int32(controller), int32(value))
	return nil
}

// SetPitchBend splits the raw 14-bit value back into its two data bytes.
// The synthesizer applies the center bias itself.
func (s *Synth) SetPitchBend(channel, value int) error {
	lo, hi := bendBytes(value)
	s.synth.ProcessMidiMessage(int32(channel), 0xE0, lo, hi)
	return nil
}

func bendBytes(value int) (lo, hi int32) {
	return int32(value & 0x7F), int32(value >> 7 & 0x7F)
}

// SetGain scales the synthesizer's master output.
func (s *Synth) SetGain(gain float32) { s.synth.MasterVolume = gain }

// Render writes len(left) frames into the two channel buffers.
func (s *Synth) Render(left, right []float32) { s.synth.Render(left, right) }

// SilenceAll kills every voice immediately instead of letting releases
// ring out.
func (s *Synth) SilenceAll() { s.synth.NoteOffAll(true) }

// Close drops the synthesizer and bank references. The Synth must not be
// used afterwards.
func (s *Synth) Close() error {
	s.synth = nil
	s.font = nil
	s.names = nil
	return nil
}
