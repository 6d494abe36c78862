package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"holoquilt/internal/batch"
	"holoquilt/internal/config"
	"holoquilt/internal/imageio"
	"holoquilt/internal/injector"
	"holoquilt/internal/preview"
	"holoquilt/internal/quilt"
	"holoquilt/internal/settings"
	"holoquilt/internal/viewset"
	"holoquilt/internal/watch"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to holoquilt.json or holoquilt.toml")
	settingsPath := flag.String("settings", "", "Path to the display calibration file")
	viewsDir := flag.String("views", "", "Directory of rendered view images")
	output := flag.String("out", "", "Output image (.png, .jpg, .webp, .tga)")
	quiltOut := flag.String("quilt-out", "", "Also write the composited quilt")
	previewOut := flag.String("preview", "", "Also write a thumbnail of the output")
	manifest := flag.String("manifest", "", "Also write a JSON manifest of the view set")
	mode := flag.String("mode", "", "Render mode: holo or quilt (default: holo)")
	filter := flag.String("filter", "", "Quilt sampling: linear or nearest (default: linear)")
	width := flag.Int("width", 0, "Output width (default: quilt width)")
	height := flag.Int("height", 0, "Output height (default: quilt height)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	grid := flag.Bool("grid", false, "Draw cell boundaries on the -quilt-out image")
	allowPartial := flag.Bool("allow-partial", false, "Render even when views are missing")
	watchViews := flag.Bool("watch", false, "Re-render whenever the views directory changes")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	injector.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	err := cfg.Resolve(config.Flags{
		SettingsPath:  *settingsPath,
		ViewsDir:      *viewsDir,
		Output:        *output,
		QuiltOutput:   *quiltOut,
		PreviewOutput: *previewOut,
		Manifest:      *manifest,
		Mode:          *mode,
		Filter:        *filter,
		OutputWidth:   *width,
		OutputHeight:  *height,
		Workers:       *workers,
		Grid:          *grid,
		AllowPartial:  *allowPartial,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Output == "" && cfg.QuiltOutput == "" {
		cfg.Output = "holoquilt.png"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := viewset.NewCache()
	if err := renderOnce(ctx, cfg, cache); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !*watchViews {
			os.Exit(1)
		}
	}
	if !*watchViews {
		return
	}

	w, err := watch.New(cfg.ViewsDir, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer w.Close()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cfg.ViewsDir)
	err = w.Run(ctx, func(changed []string) error {
		for _, p := range changed {
			cache.Invalidate(p)
		}
		fmt.Printf("%d file(s) changed, re-rendering\n", len(changed))
		if err := renderOnce(ctx, cfg, cache); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// renderOnce composites the current view set and writes every configured output.
func renderOnce(ctx context.Context, cfg config.Config, cache *viewset.Cache) error {
	s, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return err
	}
	renderMode, err := injector.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	sampling, err := quilt.ParseFilter(cfg.Filter)
	if err != nil {
		return err
	}

	views, err := viewset.Scan(cfg.ViewsDir)
	if err != nil {
		return err
	}
	if cfg.AllowPartial {
		views = inRange(views, s.ViewCount())
	} else if err := viewset.Contiguous(views, s.ViewCount()); err != nil {
		return err
	}
	if len(views) == 0 {
		return fmt.Errorf("no views in %s", cfg.ViewsDir)
	}

	// The first view fixes the cell size.
	first, err := cache.Load(views[0].Path)
	if err != nil {
		return fmt.Errorf("view %d: %w", views[0].Index, err)
	}
	vw, vh := first.Bounds().Dx(), first.Bounds().Dy()

	opts := []injector.Option{injector.WithWorkers(cfg.Workers), injector.WithFilter(sampling)}
	if cfg.AllowPartial {
		opts = append(opts, injector.AllowPartialFrames())
	}
	inj, err := injector.NewWithSettings(vw, vh, s, opts...)
	if err != nil {
		return err
	}
	defer inj.Close()

	fmt.Printf("Views: %d (%dx%d), Grid: %dx%d, Workers: %d\n", len(views), vw, vh, s.Cols, s.Rows, cfg.Workers)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	results, failed, err := batch.Run(ctx, batch.Config{
		Cache:    cache,
		Workers:  cfg.Workers,
		Progress: os.Stdout,
	}, views, inj)
	if err != nil {
		return err
	}
	if failed > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		shown := 0
		for _, r := range results {
			if r.Success {
				continue
			}
			if shown == 20 {
				fmt.Printf("  ... and %d more\n", failed-shown)
				break
			}
			fmt.Printf("  view %d (%s): %s\n", r.Index, r.Path, r.Error)
			shown++
		}
		if !cfg.AllowPartial {
			return fmt.Errorf("%d of %d views failed", failed, len(views))
		}
	}

	ow, oh := cfg.OutputWidth, cfg.OutputHeight
	if ow == 0 {
		ow, oh = inj.Quilt().Width(), inj.Quilt().Height()
	}
	frame := image.NewNRGBA(image.Rect(0, 0, ow, oh))
	if err := inj.Render(ctx, renderMode, frame); err != nil {
		return err
	}

	enc := imageio.EncodeOptions{JPEGQuality: cfg.JPEGQuality}
	if cfg.Output != "" {
		if err := imageio.Save(cfg.Output, frame, enc); err != nil {
			return err
		}
		fmt.Printf("Output: %s (%dx%d, %s)\n", cfg.Output, ow, oh, renderMode)
	}

	if cfg.QuiltOutput != "" {
		var q image.Image = inj.Quilt().Image()
		if cfg.Grid {
			q, err = preview.Grid(q, s.Cols, s.Rows, preview.DefaultGridStyle)
			if err != nil {
				return err
			}
		}
		if err := imageio.Save(cfg.QuiltOutput, q, enc); err != nil {
			return err
		}
		fmt.Printf("Quilt: %s\n", cfg.QuiltOutput)
	}

	if cfg.PreviewOutput != "" {
		if err := imageio.Save(cfg.PreviewOutput, preview.Thumbnail(frame, cfg.PreviewSize), enc); err != nil {
			return err
		}
		fmt.Printf("Preview: %s\n", cfg.PreviewOutput)
	}

	if cfg.Manifest != "" {
		m := batch.Manifest{
			Cols:       s.Cols,
			Rows:       s.Rows,
			ViewWidth:  vw,
			ViewHeight: vh,
			Mode:       renderMode.String(),
			Output:     cfg.Output,
			Views:      batch.Entries(inj.Rig().Plan(), views),
		}
		if err := batch.WriteManifest(cfg.Manifest, m); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
		} else {
			fmt.Printf("Manifest: %s\n", cfg.Manifest)
		}
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())
	return nil
}

func inRange(views []viewset.View, n int) []viewset.View {
	var out []viewset.View
	for _, v := range views {
		if v.Index < n {
			out = append(out, v)
		}
	}
	return out
}
