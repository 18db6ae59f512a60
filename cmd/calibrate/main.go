// Command calibrate runs the key-to-LED allocation for a configuration and
// prints a per-key report: assigned LEDs, coverage, symmetry and overhang,
// plus the pitch calibration summary. With -chart it also writes an HTML
// chart of LEDs per key for eyeballing distribution problems.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/agwosdz/pianoled/internal/allocator"
	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/keylayout"
	"github.com/agwosdz/pianoled/internal/ledstrip"
)

var (
	configPath = flag.String("config", config.DefaultConfigPath, "Path to lighting config JSON")
	mode       = flag.String("mode", "", "Override allocation mode (sharing|exclusive|physical)")
	chartPath  = flag.String("chart", "", "Write an HTML chart of LEDs per key to this path")
	verbose    = flag.Bool("v", false, "Print every key, not just problem keys")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config %s not loaded (%v), using defaults", *configPath, err)
		cfg = config.Empty()
	}
	if *mode != "" {
		cfg.Mode = mode
	}

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
	strip, err := ledstrip.FromDensity(cfg.GetLEDsPerMeter(), cfg.GetLEDCount())
	if err != nil {
		log.Fatalf("failed to build strip: %v", err)
	}

	res, err := allocator.Allocate(allocator.Request{
		Layout:              layout,
		Strip:               strip,
		Range:               ledstrip.CalibrationRange{StartLED: cfg.GetStartLED(), EndLED: cfg.GetEndLED()},
		Mode:                allocator.Mode(cfg.GetMode()),
		OverhangThresholdMM: cfg.GetOverhangThresholdMM(),
	})
	if err != nil {
		log.Fatalf("allocation failed: %v", err)
	}

	printCalibration(res.Calibration, res.EffectivePitchMM)
	printKeyTable(layout, res, *verbose)
	printSummary(res.Quality)

	if *chartPath != "" {
		if err := writeChart(*chartPath, layout, res); err != nil {
			log.Fatalf("failed to write chart: %v", err)
		}
		fmt.Printf("\nchart written to %s\n", *chartPath)
	}
}

func printCalibration(c allocator.PitchCalibration, effective float64) {
	fmt.Printf("pitch: theoretical %.4f mm, calibrated %.4f mm (effective %.4f mm)\n",
		c.TheoreticalPitchMM, c.CalibratedPitchMM, effective)
	if c.WasAdjusted {
		fmt.Printf("  adjusted by %+.4f mm (%+.1f%%): %s\n",
			c.DifferenceMM, c.DifferencePercent, c.Reason)
	} else {
		fmt.Printf("  no adjustment needed: %s\n", c.Reason)
	}
}

func printKeyTable(layout *keylayout.Layout, res *allocator.Result, verbose bool) {
	byKey := make(map[keylayout.KeyIndex]allocator.KeyQuality, len(res.Quality.Keys))
	for _, kq := range res.Quality.Keys {
		byKey[kq.Key] = kq
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nkey\tnote\tkind\tleds\tcoverage\tsymmetry\toverhang L/R\tbucket")
	for _, key := range res.Mapping.SortedKeys() {
		kq := byKey[key]
		bucket := kq.Bucket()
		if !verbose && bucket != "fair" && bucket != "poor" && kq.LEDCount > 0 {
			continue
		}
		note, _ := layout.NoteForKey(key)
		kind := "white"
		if layout.Keys()[key].Kind == keylayout.KindBlack {
			kind = "black"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%v\t%.1fmm\t%.2f\t%.1f/%.1f\t%s\n",
			key, note, kind, res.Mapping[key],
			kq.CoverageMM, kq.Symmetry, kq.OverhangLeftMM, kq.OverhangRightMM, bucket)
	}
	w.Flush()
}

func printSummary(q allocator.QualityReport) {
	fmt.Printf("\nquality: mean symmetry %.3f, mean consistency %.3f, buckets %v",
		q.MeanSymmetry, q.MeanConsistency, q.Buckets)
	if q.EmptyKeys > 0 {
		fmt.Printf(", %d empty keys", q.EmptyKeys)
	}
	fmt.Println()
	for _, warning := range q.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
}

func writeChart(path string, layout *keylayout.Layout, res *allocator.Result) error {
	keys := res.Mapping.SortedKeys()
	labels := make([]string, 0, len(keys))
	counts := make([]opts.BarData, 0, len(keys))
	for _, key := range keys {
		note, _ := layout.NoteForKey(key)
		labels = append(labels, fmt.Sprintf("%d", note))
		color := "#31688e"
		if layout.Keys()[key].Kind == keylayout.KindBlack {
			color = "#440154"
		}
		counts = append(counts, opts.BarData{
			Value:     len(res.Mapping[key]),
			ItemStyle: &opts.ItemStyle{Color: color},
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "LEDs per key", Width: "1400px", Height: "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "LEDs per key",
			Subtitle: fmt.Sprintf("%d keys, pitch %.4f mm, mean symmetry %.3f",
				len(keys), res.EffectivePitchMM, res.Quality.MeanSymmetry),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "MIDI note"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "LED count"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("leds", counts)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bar.Render(f)
}
