package manifest

import (
	"strings"
	"testing"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/preset"
)

type tableSource map[[2]int]bool

func (m tableSource) PresetExists(bank, program int) bool {
	return m[[2]int{bank, program}]
}

type tableNamer map[[2]int]string

func (m tableNamer) PresetName(bank, program int) (string, bool) {
	s, ok := m[[2]int{bank, program}]
	return s, ok
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("Nice Keys-v1.0"); got != "Nice_Keys_v1_0" {
		t.Fatalf("expected Nice_Keys_v1_0, got %s", got)
	}
	if got := Sanitize("plain"); got != "plain" {
		t.Fatalf("expected plain, got %s", got)
	}
}

func TestPluginDescribesEveryPort(t *testing.T) {
	src := tableSource{{0, 0}: true, {0, 5}: true, {2, 10}: true}
	names := tableNamer{{0, 0}: "Grand Piano", {0, 5}: "E.Piano", {2, 10}: "Strings"}
	table := preset.Build(src)
	info := sf2synth.Info{Name: "Nice_Keys", URI: "https://github.com/cbegin/sf2synth-go/Nice_Keys"}

	ttl := Plugin(info, "Nice Keys", table, names)

	if !strings.HasPrefix(ttl, "@prefix atom:") {
		t.Fatalf("missing prefix block")
	}
	if !strings.Contains(ttl, "<https://github.com/cbegin/sf2synth-go/Nice_Keys>\n    a lv2:InstrumentPlugin, lv2:Plugin ;") {
		t.Fatalf("missing plugin subject")
	}
	for _, want := range []string{
		"lv2:index 0 ;",
		"lv2:index 4 ;",
		"lv2:index 10 ;",
		"lv2:symbol \"cutoff\" ;",
		"lv2:symbol \"release\" ;",
		"lv2:name \"Resonance\" ;",
	} {
		if !strings.Contains(ttl, want) {
			t.Fatalf("missing %q in plugin ttl", want)
		}
	}

	// Three presets make the program range 0..2.
	if !strings.Contains(ttl, "lv2:maximum 2 ;\n        lv2:scalePoint [") {
		t.Fatalf("missing program range")
	}
	piano := strings.Index(ttl, "rdfs:label \"Grand Piano\" ;\n            rdf:value 0")
	strings2 := strings.Index(ttl, "rdfs:label \"Strings\" ;\n            rdf:value 2")
	if piano < 0 || strings2 < 0 || strings2 < piano {
		t.Fatalf("scale points missing or out of order")
	}

	// Eleven ports joined by ten separators, three scale points by two.
	if got := strings.Count(ttl, "] , ["); got != 12 {
		t.Fatalf("expected 12 block separators, got %d", got)
	}
	if !strings.Contains(ttl, "doap:name \"Nice Keys\" ;") {
		t.Fatalf("missing display name")
	}
	if !strings.HasSuffix(ttl, "lv2:microVersion 0 .\n") {
		t.Fatalf("description should end with the version statement")
	}
}

func TestPluginFallsBackToBankProgramLabels(t *testing.T) {
	src := tableSource{{0, 3}: true}
	table := preset.Build(src)
	ttl := Plugin(sf2synth.Info{URI: "urn:x"}, "x", table, nil)
	if !strings.Contains(ttl, "rdfs:label \"Bank 0 Program 3\" ;") {
		t.Fatalf("expected fallback label, got:\n%s", ttl)
	}
}

func TestPluginEscapesLabels(t *testing.T) {
	src := tableSource{{0, 0}: true}
	names := tableNamer{{0, 0}: `12" Strings`}
	table := preset.Build(src)
	ttl := Plugin(sf2synth.Info{URI: "urn:x"}, `a "quoted" set`, table, names)
	if !strings.Contains(ttl, `rdfs:label "12\" Strings" ;`) {
		t.Fatalf("label not escaped")
	}
	if !strings.Contains(ttl, `doap:name "a \"quoted\" set" ;`) {
		t.Fatalf("display name not escaped")
	}
}

func TestManifestPointsAtBinaryAndDescription(t *testing.T) {
	got := Manifest("https://github.com/cbegin/sf2synth-go/Nice_Keys", "Nice_Keys")
	if !strings.Contains(got, "<https://github.com/cbegin/sf2synth-go/Nice_Keys>\n    a lv2:Plugin ;") {
		t.Fatalf("missing plugin statement")
	}
	if !strings.Contains(got, "lv2:binary <Nice_Keys.so> ;") {
		t.Fatalf("missing binary reference")
	}
	if !strings.Contains(got, "rdfs:seeAlso <Nice_Keys.ttl> .") {
		t.Fatalf("missing seeAlso reference")
	}
}
