package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/audio"
	"github.com/cbegin/sf2synth-go/internal/host"
	"github.com/cbegin/sf2synth-go/internal/seq"
	"github.com/cbegin/sf2synth-go/melty"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	var (
		sf2Path    = flag.String("sf2", "", "path to a SoundFont (.sf2) file")
		midPath    = flag.String("mid", "", "standard MIDI file to play")
		inPort     = flag.String("in", "", "live MIDI input port name")
		wavPath    = flag.String("wav", "", "render -mid to a WAV file instead of the audio device")
		listSet    = flag.Bool("list", false, "list the soundfont presets and exit")
		listPorts  = flag.Bool("ports", false, "list MIDI input ports and exit")
		program    = flag.Int("program", 0, "initial program index")
		level      = flag.Float64("level", 1.0, "master level (0..2)")
		sampleRate = flag.Int("rate", 44100, "sample rate")
		polyphony  = flag.Int("poly", 64, "maximum polyphony")
		effects    = flag.Bool("fx", false, "enable reverb and chorus")
		debug      = flag.Bool("debug", false, "log rejected program and controller changes")
	)
	flag.Parse()
	defer midi.CloseDriver()

	if *listPorts {
		fmt.Print(midi.GetInPorts().String())
		return
	}
	if *sf2Path == "" {
		log.Fatal("missing -sf2 <soundfont.sf2>")
	}
	if *wavPath != "" && *midPath == "" {
		log.Fatal("-wav requires -mid")
	}

	synth, err := melty.Open(*sf2Path,
		melty.WithSampleRate(*sampleRate),
		melty.WithPolyphony(*polyphony),
		melty.WithReverbAndChorus(*effects),
	)
	if err != nil {
		log.Fatal(err)
	}

	var opts []sf2synth.Option
	if *debug {
		opts = append(opts, sf2synth.WithDebugLog(log.New(os.Stderr, "sf2synth: ", log.LstdFlags)))
	}
	inst, err := sf2synth.New(synth, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer inst.Close()

	switch {
	case *listSet:
		printPresets(inst, synth)
	case *midPath != "" && *wavPath != "":
		if err := renderWAV(inst, *midPath, *wavPath, *sampleRate, *program, *level); err != nil {
			log.Fatal(err)
		}
	case *midPath != "":
		if err := playFile(inst, *midPath, *sampleRate, *program, *level); err != nil {
			log.Fatal(err)
		}
	case *inPort != "":
		if err := playLive(inst, *inPort, *sampleRate, *program, *level); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("nothing to do: pass -mid, -in, -list or -ports")
	}
}

func printPresets(inst *sf2synth.Instrument, synth *melty.Synth) {
	for i, e := range inst.Presets().Entries() {
		name, _ := synth.PresetName(e.Bank, e.Program)
		fmt.Printf("%4d  bank %3d  program %3d  %s\n", i, e.Bank, e.Program, name)
	}
}

func newDriver(inst *sf2synth.Instrument, midPath string, sampleRate, program int, level float64) (*host.Driver, *seq.Queue, error) {
	q := seq.NewQueue()
	opts := host.Options{}
	if midPath != "" {
		events, last, err := seq.LoadSMF(midPath, sampleRate)
		if err != nil {
			return nil, nil, err
		}
		q.AddAll(events)
		opts.StreamFrames = last + 1
	}
	drv, err := host.NewWithOptions(inst, q, sampleRate, opts)
	if err != nil {
		return nil, nil, err
	}
	drv.SetProgram(program)
	drv.SetLevel(float32(level))
	return drv, q, nil
}

func renderWAV(inst *sf2synth.Instrument, midPath, wavPath string, sampleRate, program int, level float64) error {
	drv, _, err := newDriver(inst, midPath, sampleRate, program, level)
	if err != nil {
		return err
	}
	defer drv.Close()

	var out []float32
	buf := make([]float32, 4096*2)
	for !drv.Finished() {
		drv.Process(buf)
		out = append(out, buf...)
	}
	if err := os.WriteFile(wavPath, audio.EncodeWAVFloat32LE(out, sampleRate, 2), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.1f seconds)\n", wavPath, float64(len(out)/2)/float64(sampleRate))
	return nil
}

func playFile(inst *sf2synth.Instrument, midPath string, sampleRate, program int, level float64) error {
	drv, _, err := newDriver(inst, midPath, sampleRate, program, level)
	if err != nil {
		return err
	}
	defer drv.Close()

	pl, err := audio.NewPlayer(sampleRate, drv)
	if err != nil {
		return err
	}
	pl.Play()
	for pl.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Println("playback completed")
	return pl.Stop()
}

func playLive(inst *sf2synth.Instrument, portName string, sampleRate, program int, level float64) error {
	drv, q, err := newDriver(inst, "", sampleRate, program, level)
	if err != nil {
		return err
	}
	defer drv.Close()

	in, err := midi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("no MIDI input matching %q (try -ports)", portName)
	}
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		data := append([]byte(nil), msg.Bytes()...)
		q.Add(seq.Event{Frame: drv.Position(), Data: data})
	})
	if err != nil {
		return err
	}
	defer stop()

	pl, err := audio.NewPlayer(sampleRate, drv)
	if err != nil {
		return err
	}
	pl.Play()
	fmt.Printf("listening on %s, press enter to quit\n", in.String())
	bufio.NewReader(os.Stdin).ReadString('\n')
	return pl.Stop()
}
