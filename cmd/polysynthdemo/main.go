package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	polysynth "github.com/nexlab/polysynth-go"
	"github.com/nexlab/polysynth-go/internal/liveaudio"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		engineName = flag.String("engine", "subtractive", "synth engine: subtractive|resonator|macroosc")
		notes      = flag.String("notes", "60,64,67,72", "comma-separated MIDI pitches to arpeggiate")
		noteMs     = flag.Int("note-ms", 350, "duration each note is held, in milliseconds")
		gapMs      = flag.Int("gap-ms", 40, "silence between notes, in milliseconds")
		volume     = flag.Float64("volume", 0.8, "master gain, 0-1.5")
	)
	flag.Parse()

	pitches, err := parsePitches(*notes)
	if err != nil {
		log.Fatal(err)
	}
	kind, err := parseEngineKind(*engineName)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := polysynth.New(*sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	eng.SelectEngine(kind)
	if err := eng.SetParameter(polysynth.MasterGain, *volume); err != nil {
		log.Fatal(err)
	}

	player, err := liveaudio.NewPlayer(*sampleRate, eng)
	if err != nil {
		log.Fatal(err)
	}
	player.Play()

	noteDur := time.Duration(*noteMs) * time.Millisecond
	gapDur := time.Duration(*gapMs) * time.Millisecond

	for i, pitch := range pitches {
		voiceID := i
		if err := eng.NoteOn(voiceID, pitch, 0.9, false, false, false, 0); err != nil {
			fmt.Printf("note-on dropped: %v\n", err)
			continue
		}
		time.Sleep(noteDur)
		if err := eng.NoteOff(voiceID, 0); err != nil {
			fmt.Printf("note-off dropped: %v\n", err)
		}
		time.Sleep(gapDur)
	}

	time.Sleep(500 * time.Millisecond) // let release tails finish
	eng.AllNotesOff()
	player.Stop()

	if dropped := eng.DroppedEvents(); dropped > 0 {
		fmt.Printf("%d events dropped during playback\n", dropped)
	}
}

func parsePitches(csv string) ([]int, error) {
	fields := strings.Split(csv, ",")
	pitches := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		var p int
		if _, err := fmt.Sscanf(f, "%d", &p); err != nil {
			return nil, fmt.Errorf("invalid pitch %q: %w", f, err)
		}
		pitches = append(pitches, p)
	}
	if len(pitches) == 0 {
		return nil, fmt.Errorf("no pitches given")
	}
	return pitches, nil
}

func parseEngineKind(name string) (polysynth.EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "subtractive":
		return polysynth.Subtractive, nil
	case "resonator":
		return polysynth.Resonator, nil
	case "macroosc":
		return polysynth.MacroOsc, nil
	default:
		return 0, fmt.Errorf("invalid -engine %q (expected subtractive|resonator|macroosc)", name)
	}
}
