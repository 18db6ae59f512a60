// Command pianoledctl drives a running pianoled server from the command
// line: regenerate the mapping, inspect quality, and manage per-key offset
// and trim adjustments without touching the HTTP API by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/agwosdz/pianoled/internal/httputil"
)

var server = flag.String("server", "http://localhost:8080", "pianoled server base URL")

func usage() {
	fmt.Fprintf(os.Stderr, `usage: pianoledctl [-server URL] <command> [args]

commands:
  mapping              regenerate and print the key mapping
  quality              print the quality report for the current config
  adjustments          list stored offsets and trims
  offset <key> <n>     set a key's LED offset (0 clears it)
  trim <key> <l> <r>   set a key's left/right trim (0 0 clears it)
  clear                clear all offsets and trims
  test                 run the wiring test pattern
`)
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	c := newClient(*server, httputil.NewStandardClient(http.DefaultClient))

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "mapping":
		err = c.generateMapping(os.Stdout)
	case "quality":
		err = c.quality(os.Stdout)
	case "adjustments":
		err = c.adjustments(os.Stdout)
	case "offset":
		if flag.NArg() != 3 {
			usage()
		}
		err = c.setOffset(os.Stdout, flag.Arg(1), flag.Arg(2))
	case "trim":
		if flag.NArg() != 4 {
			usage()
		}
		err = c.setTrim(os.Stdout, flag.Arg(1), flag.Arg(2), flag.Arg(3))
	case "clear":
		err = c.clearAdjustments(os.Stdout)
	case "test":
		err = c.testPattern(os.Stdout)
	default:
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}
