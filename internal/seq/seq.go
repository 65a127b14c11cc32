package seq

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Event is a raw MIDI message scheduled at an absolute sample frame.
type Event struct {
	Frame int64
	Data  []byte
}

// Queue holds pending events ordered by frame. It is safe for one
// producer and one consumer to use concurrently, which is how live
// input feeds the render callback.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func NewQueue() *Queue {
	return &Queue{}
}

// Add inserts ev keeping the queue sorted by frame. Events that share a
// frame keep their insertion order.
func (q *Queue) Add(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].Frame > ev.Frame
	})
	q.events = append(q.events, Event{})
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = ev
}

func (q *Queue) AddAll(evs []Event) {
	for _, ev := range evs {
		q.Add(ev)
	}
}

// PopUntil removes every event scheduled before the end frame and hands
// each one to fn in order. fn must not call back into the queue.
func (q *Queue) PopUntil(end int64, fn func(Event)) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for n < len(q.events) && q.events[n].Frame < end {
		fn(q.events[n])
		n++
	}
	q.events = q.events[n:]
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = nil
}

// LoadSMF reads a standard MIDI file and returns its channel voice
// messages stamped with sample frames at the given rate, along with the
// frame of the last event.
func LoadSMF(path string, sampleRate int) ([]Event, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()
	return LoadSMFFrom(f, sampleRate)
}

// LoadSMFFrom is LoadSMF over an arbitrary reader. Meta and system
// messages are dropped; only channel voice messages reach the synth.
func LoadSMFFrom(r io.Reader, sampleRate int) ([]Event, int64, error) {
	var events []Event
	var last int64
	tracks := smf.ReadTracksFrom(r)
	tracks.Do(func(te smf.TrackEvent) {
		b := te.Message.Bytes()
		if len(b) == 0 || b[0] < 0x80 || b[0] >= 0xF0 {
			return
		}
		frame := te.AbsMicroSeconds * int64(sampleRate) / 1_000_000
		events = append(events, Event{Frame: frame, Data: b})
		if frame > last {
			last = frame
		}
	})
	if err := tracks.Error(); err != nil {
		return nil, 0, fmt.Errorf("read midi file: %w", err)
	}
	// Tracks are read one after another, so interleave them by time.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Frame < events[j].Frame
	})
	return events, last, nil
}
