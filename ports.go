package sf2synth

// Port identifies one slot in the instrument's fixed port layout. The
// indices are the host-facing contract and never change.
type Port int

const (
	PortEvents    Port = 0  // per-cycle MIDI event sequence
	PortAudioOutL Port = 1  // left channel output buffer
	PortAudioOutR Port = 2  // right channel output buffer
	PortLevel     Port = 3  // master level, 0.0 to 2.0, default 1.0
	PortProgram   Port = 4  // program index selector
	PortCutoff    Port = 5  // filter cutoff, 0.0 to 1.0
	PortResonance Port = 6  // filter resonance, 0.0 to 1.0
	PortAttack    Port = 7  // envelope attack, 0.0 to 1.0
	PortDecay     Port = 8  // envelope decay, 0.0 to 1.0
	PortSustain   Port = 9  // envelope sustain, 0.0 to 1.0
	PortRelease   Port = 10 // envelope release, 0.0 to 1.0
)

// NumPorts is the size of the port layout.
const NumPorts = 11

// EventType tags an Event payload.
type EventType uint8

// EventMIDI marks a raw MIDI channel-voice byte stream. The dispatcher
// skips events carrying any other tag.
const EventMIDI EventType = 0

// Event is one timestamped record in a cycle's input sequence.
type Event struct {
	Frame int // frame offset within the cycle
	Type  EventType
	Data  []byte
}

// EventSequence is the event input bound to PortEvents. The host owns it
// and refills it before each Run; the instrument only reads it, in order,
// and treats the event payloads as valid for the current cycle only.
type EventSequence struct {
	Events []Event
}

// Clear empties the sequence, keeping capacity for reuse.
func (s *EventSequence) Clear() { s.Events = s.Events[:0] }

// AppendMIDI adds one MIDI message at the given frame offset. The bytes
// are referenced, not copied, and must stay valid through the cycle.
func (s *EventSequence) AppendMIDI(frame int, data ...byte) {
	s.Events = append(s.Events, Event{Frame: frame, Type: EventMIDI, Data: data})
}
