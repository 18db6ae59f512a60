package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agwosdz/pianoled/internal/allocator"
	"github.com/agwosdz/pianoled/internal/api"
	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/db"
	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/leddriver"
	"github.com/agwosdz/pianoled/internal/midiin"
	"github.com/agwosdz/pianoled/internal/version"
)

var (
	configPath = flag.String("config", config.DefaultConfigPath, "Path to lighting config JSON")
	dbPath     = flag.String("db", "pianoled.db", "Path to settings database")
	listen     = flag.String("listen", ":8080", "Listen address")
	midiPort   = flag.String("midi", "", "MIDI input port name (empty: first available)")
	noHardware = flag.Bool("no-hardware", false, "Run without serial LED hardware")
	noMIDI     = flag.Bool("no-midi", false, "Run without a MIDI listener")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("failed to load config %s: %v", *configPath, err)
		}
		log.Printf("config %s not found, using defaults", *configPath)
		cfg = config.Empty()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	layout, err := keylayout.New(keylayout.Params{
		KeyCount:     cfg.GetKeyCount(),
		WhiteWidthMM: cfg.GetWhiteWidthMM(),
		BlackWidthMM: cfg.GetBlackWidthMM(),
		GapMM:        cfg.GetKeyGapMM(),
		LowestNote:   keylayout.NoteNumber(cfg.GetLowestNote()),
	})
	if err != nil {
		log.Fatalf("failed to build key layout: %v", err)
	}

	var driver leddriver.Driver
	if *noHardware {
		driver = leddriver.NewNullDriver(cfg.GetLEDCount())
	} else {
		driver, err = leddriver.OpenSerial(cfg.GetSerialPort(), cfg.GetBaudRate(), cfg.GetLEDCount())
		if err != nil {
			log.Fatalf("failed to open LED serial port %s: %v", cfg.GetSerialPort(), err)
		}
	}
	defer driver.Close()

	painter := leddriver.NewPainter(driver, initialMapping(database))
	defer painter.Clear()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MIDI listener goroutine: lights keys live as they are played.
	if !*noMIDI {
		port, err := midiin.FindInPort(cfg.GetMIDIPort())
		if err != nil {
			log.Printf("no MIDI input available, continuing without: %v", err)
		} else {
			listener, err := midiin.Listen(port, layout, painter)
			if err != nil {
				log.Fatalf("failed to listen on MIDI port: %v", err)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-ctx.Done()
				listener.Stop()
				log.Print("MIDI listener terminated")
			}()
		}
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(cfg, database, painter).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Printf("pianoled %s listening on %s (%d keys, %d LEDs, %s mode)",
		version.String(), *listen, cfg.GetKeyCount(), cfg.GetLEDCount(), cfg.GetMode())
	wg.Wait()
}

// initialMapping replays the last stored mapping snapshot so a restart
// comes back up with the key mapping it had, without waiting for an API
// call. A missing or unreadable snapshot just means an empty mapping.
func initialMapping(database *db.DB) allocator.Mapping {
	snap, err := database.LatestMappingSnapshot()
	if err != nil || snap == nil {
		return nil
	}
	var m allocator.Mapping
	if err := json.Unmarshal([]byte(snap.MappingJSON), &m); err != nil {
		log.Printf("ignoring stored mapping snapshot: %v", err)
		return nil
	}
	return m
}
