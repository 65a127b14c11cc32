// Package manifest renders the Turtle descriptions an LV2 host reads to
// discover a SoundFont instrument bundle: the plugin file and manifest.ttl.
package manifest

import (
	"fmt"
	"strings"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/control"
	"github.com/cbegin/sf2synth-go/preset"
)

// Sanitize makes a soundfont name safe for file names and URIs.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.':
			return '_'
		}
		return r
	}, name)
}

const prefixes = `@prefix atom: <http://lv2plug.in/ns/ext/atom#> .
@prefix doap: <http://usefulinc.com/ns/doap#> .
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix lv2: <http://lv2plug.in/ns/lv2core#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

`

const fixedPorts = `    a lv2:InstrumentPlugin, lv2:Plugin ;
    lv2:requiredFeature <http://lv2plug.in/ns/ext/urid#map> ;
    lv2:port [
        a lv2:InputPort, atom:AtomPort ;
        atom:bufferType atom:Sequence ;
        atom:supports <http://lv2plug.in/ns/ext/midi#MidiEvent> ;
        lv2:designation lv2:control ;
        lv2:index 0 ;
        lv2:symbol "events" ;
        lv2:name "Events" ;
    ] , [
        a lv2:OutputPort, lv2:AudioPort ;
        lv2:index 1 ;
        lv2:symbol "audio_out_l" ;
        lv2:name "Audio Output Left" ;
    ] , [
        a lv2:OutputPort, lv2:AudioPort ;
        lv2:index 2 ;
        lv2:symbol "audio_out_r" ;
        lv2:name "Audio Output Right" ;
    ] , [
        a lv2:InputPort, lv2:ControlPort ;
        lv2:index 3 ;
        lv2:symbol "level" ;
        lv2:name "Level" ;
        lv2:default 1.0 ;
        lv2:minimum 0.0 ;
        lv2:maximum 2.0 ;
    ] , [
        a lv2:InputPort, lv2:ControlPort ;
        lv2:index 4 ;
        lv2:symbol "program" ;
        lv2:name "Program" ;
        lv2:portProperty lv2:enumeration, lv2:integer ;
        lv2:default 0 ;
        lv2:minimum 0 ;
`

// Plugin renders the full plugin description: the fixed port layout, one
// scale point per preset on the program port, and the six synth control
// ports. The scale point order is the program index order, so a host that
// writes a scale point value selects exactly that preset.
func Plugin(info sf2synth.Info, display string, table *preset.Table, names preset.Namer) string {
	var b strings.Builder
	b.WriteString(prefixes)
	fmt.Fprintf(&b, "<%s>\n", info.URI)
	b.WriteString(fixedPorts)
	fmt.Fprintf(&b, "        lv2:maximum %d ;\n        lv2:scalePoint [\n", table.Len()-1)

	for i, e := range table.Entries() {
		label := ""
		if names != nil {
			label, _ = names.PresetName(e.Bank, e.Program)
		}
		if label == "" {
			label = fmt.Sprintf("Bank %d Program %d", e.Bank, e.Program)
		}
		fmt.Fprintf(&b, "            rdfs:label \"%s\" ;\n            rdf:value %d\n", escape(label), i)
		if i < table.Len()-1 {
			b.WriteString("        ] , [\n")
		}
	}
	b.WriteString("        ]\n    ] , [\n")

	for p := control.Cutoff; p < control.NumParams; p++ {
		def := 0.0
		if p == control.Cutoff {
			def = 1.0
		}
		sym := p.String()
		fmt.Fprintf(&b,
			"        a lv2:InputPort, lv2:ControlPort ;\n"+
				"        lv2:index %d ;\n"+
				"        lv2:symbol \"%s\" ;\n"+
				"        lv2:name \"%s\" ;\n"+
				"        lv2:default %.1f ;\n"+
				"        lv2:minimum 0.0 ;\n"+
				"        lv2:maximum 1.0 ;\n",
			int(sf2synth.PortCutoff)+int(p), sym, title(sym), def)
		if p == control.NumParams-1 {
			b.WriteString("    ] ;\n")
		} else {
			b.WriteString("    ] , [\n")
		}
	}

	fmt.Fprintf(&b,
		"    doap:name \"%s\" ;\n"+
			"    doap:license \"LGPL\" ;\n"+
			"    doap:maintainer [\n"+
			"        foaf:name \"Clinton Begin\" ;\n"+
			"        foaf:homepage <https://github.com/cbegin> ;\n"+
			"    ] ;\n"+
			"    rdfs:comment \"This plugin provides the %s soundset as an LV2 instrument.\\nBuilt using meltysynth for sample playback.\" ;\n"+
			"    lv2:minorVersion 2 ;\n"+
			"    lv2:microVersion 0 .\n",
		escape(display), escape(display))
	return b.String()
}

// Manifest renders manifest.ttl, the discovery file pointing at the
// binary and the full description.
func Manifest(uri, name string) string {
	return fmt.Sprintf(
		"@prefix lv2: <http://lv2plug.in/ns/lv2core#> .\n"+
			"@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .\n\n"+
			"<%s>\n"+
			"    a lv2:Plugin ;\n"+
			"    lv2:binary <%s.so> ;\n"+
			"    rdfs:seeAlso <%s.ttl> .\n",
		uri, name, name)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
