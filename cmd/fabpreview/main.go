// fabpreview - Offline preview generator for design files
// Renders STL/OBJ/glTF/3MF meshes, DXF drawings, G-code toolpaths and
// raster images into deterministic PNG previews without a GPU.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psykeus/fabpreview/pkg/preview"
)

var (
	output    = flag.String("o", "preview.png", "Output image path")
	views     = flag.Int("views", 4, "View count for mesh previews (4 or 6)")
	panelSize = flag.Int("size", 0, "Per-panel resolution override")
	timeout   = flag.Duration("timeout", preview.DefaultTimeout, "Render budget")
	metrics   = flag.Bool("metrics", false, "Print geometry metrics instead of rendering")
	verbose   = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fabpreview - Offline preview generator for design files\n\n")
		fmt.Fprintf(os.Stderr, "Usage: fabpreview [options] <file.stl|obj|gltf|glb|3mf|dxf|gcode|svg|png|jpg>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fileType := strings.TrimPrefix(filepath.Ext(path), ".")

	gen := preview.New(
		preview.WithLogger(log),
		preview.WithTimeout(*timeout),
		preview.WithPanelSize(*panelSize),
	)

	if *metrics {
		m, err := gen.AnalyzeMesh(data, fileType)
		if err != nil {
			return err
		}
		fmt.Println(m.Describe())
		return nil
	}

	start := time.Now()
	var result preview.Result
	if *views == 6 {
		result = gen.GenerateMultiView(context.Background(), data, fileType, filepath.Base(path))
	} else {
		result = gen.Generate(context.Background(), data, fileType, filepath.Base(path))
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Err)
	}

	if err := os.WriteFile(*output, result.Image, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Printf("Wrote %s (%d bytes) in %s\n", *output, len(result.Image), time.Since(start).Round(time.Millisecond))
	if result.PHash != "" {
		fmt.Printf("Perceptual hash: %s\n", result.PHash)
	}
	return nil
}
