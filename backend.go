package sf2synth

// Backend is the synthesis engine an Instrument drives. The runtime
// consumes it as an opaque service: preset lookup at construction time,
// then bank/program selection, note and controller traffic, and block
// rendering on the audio path. The melty package provides the bundled
// implementation; any engine with these operations can stand in.
//
// The runtime always passes channel 0; the parameter exists because the
// underlying MIDI convention is channelized.
//
// Selection, note, and controller calls may return an error when the
// engine rejects a request. The runtime treats such errors as recoverable:
// it logs them when debug logging is enabled and carries on. SetGain,
// Render, and SilenceAll are unconditional.
//
// A Backend that also implements io.Closer is closed by Instrument.Close.
// One that implements preset.Namer supplies labels to the bundle generator.
type Backend interface {
	// PresetExists reports whether the loaded bank holds a preset at the
	// bank/program coordinate. Called only during construction, never on
	// the audio path.
	PresetExists(bank, program int) bool

	// SelectBank chooses the bank that later program changes resolve
	// against.
	SelectBank(channel, bank int) error
	// SelectProgram switches the channel to a program within the
	// currently selected bank.
	SelectProgram(channel, program int) error

	NoteOn(channel, key, velocity int) error
	NoteOff(channel, key int) error
	SetController(channel, controller, value int) error

	// SetPitchBend receives the raw 14-bit bend value, 0..16383 with 8192
	// at center. Engines that want a signed offset re-center it themselves.
	SetPitchBend(channel, value int) error

	// SetGain scales the engine's master output.
	SetGain(gain float32)
	// Render writes len(left) frames into both channel buffers. The two
	// slices always have equal length, at most the instrument block size.
	Render(left, right []float32)
	// SilenceAll stops every sounding voice immediately, release tails
	// included.
	SilenceAll()
}
