package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	sf2synth "github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/manifest"
	"github.com/cbegin/sf2synth-go/melty"
	"github.com/cbegin/sf2synth-go/preset"
)

func main() {
	var (
		outDir  = flag.String("out", "builds", "directory the bundle is written under")
		uriBase = flag.String("uri", "https://github.com/cbegin/sf2synth-go", "base URI for the plugin identifier")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <soundfont.sf2>", filepath.Base(os.Args[0]))
	}
	sf2 := flag.Arg(0)

	display := strings.TrimSuffix(filepath.Base(sf2), filepath.Ext(sf2))
	name := manifest.Sanitize(display)
	uri := *uriBase + "/" + name

	synth, err := melty.Open(sf2)
	if err != nil {
		log.Fatal(err)
	}
	defer synth.Close()

	table := preset.Build(synth)
	if table.Len() == 0 {
		log.Fatal("no presets found in soundfont")
	}

	bundle := filepath.Join(*outDir, name+".lv2")
	if err := os.MkdirAll(bundle, 0o755); err != nil {
		log.Fatal(err)
	}
	if err := copyFile(sf2, filepath.Join(bundle, filepath.Base(sf2))); err != nil {
		log.Fatal(err)
	}

	info := sf2synth.Info{Name: name, URI: uri}
	plugin := manifest.Plugin(info, display, table, synth)
	if err := os.WriteFile(filepath.Join(bundle, name+".ttl"), []byte(plugin), 0o644); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bundle, "manifest.ttl"), []byte(manifest.Manifest(uri, name)), 0o644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("generated %s\n", bundle)
	fmt.Printf("total presets: %d\n", table.Len())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
