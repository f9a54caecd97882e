package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/woozymasta/farpoint/internal/config"
	"github.com/woozymasta/farpoint/internal/landmask"
	"github.com/woozymasta/farpoint/internal/landmass"
	"github.com/woozymasta/farpoint/internal/logger"
	"github.com/woozymasta/farpoint/internal/render"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string  `short:"c" long:"config"    env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Dataset    string  `short:"d" long:"dataset"   env:"DATASET"     description:"Land polygons (.shp, .geojson); overrides config"`
	Step       float64 `short:"s" long:"step"                        description:"Grid step in degrees" required:"true"`
	Workers    int     `short:"p" long:"workers"   env:"WORKERS"     description:"Rows classified in parallel (0 = one per CPU); overrides config"`
	CacheDir   string  `long:"cache-dir"           env:"CACHE_DIR"   description:"Land mask directory for the file backend; overrides config"`
	WebP       string  `short:"w" long:"webp"                        description:"Render the finished mask as WebP to this path"`
	Width      int     `long:"width"                                 description:"WebP width in pixels (0 = one pixel per cell)"`
	RenderOnly bool    `short:"r" long:"render-only"                 description:"Skip classification and render what the store already holds"`
}

func main() {
	_ = godotenv.Load(".env")

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if opts.Dataset != "" {
		cfg.Dataset = opts.Dataset
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.CacheDir != "" {
		cfg.Cache.Dir = opts.CacheDir
	}
	cfg.Steps = []float64{opts.Step}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts, cfg)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("Land mask precomputation failed")
	}
}

func run(ctx context.Context, opts Options, cfg *config.Config) error {
	store, closeStore, err := cfg.Cache.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open land mask store: %w", err)
	}
	defer func() { _ = closeStore() }()

	if store == nil {
		return fmt.Errorf("cache backend %q cannot hold a land mask, use file or redis", cfg.Cache.Backend)
	}

	if !opts.RenderOnly {
		polys, err := landmass.Load(cfg.Dataset)
		if err != nil {
			return err
		}
		land := landmass.NewClassifier(polys, cfg.Zone())

		log.Info().
			Str("dataset", cfg.Dataset).
			Int("polygons", land.Len()).
			Float64("step", opts.Step).
			Int("rows", cfg.Grid.Rows(opts.Step)).
			Int("cols", cfg.Grid.Cols(opts.Step)).
			Msg("Starting land mask precomputation")

		start := time.Now()
		stats, err := landmask.New(store, land, opts.Step).Fill(ctx, cfg.Grid, cfg.Workers)
		if err != nil {
			return err
		}

		log.Info().
			Int("rows", stats.Rows).
			Int("cells", stats.Cells).
			Int("computed", stats.Computed).
			Int("land", stats.Land).
			Int("failed_rows", stats.Failed).
			Dur("duration", time.Since(start)).
			Msg("Land mask precomputed")
	}

	if opts.WebP == "" {
		return nil
	}

	img, err := render.MaskImage(ctx, store, opts.Step, cfg.Grid)
	if err != nil {
		return fmt.Errorf("build mask image: %w", err)
	}

	if dir := filepath.Dir(opts.WebP); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(opts.WebP)
	if err != nil {
		return err
	}

	if err := render.WriteWebP(f, img, opts.Width); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", opts.WebP, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info().Str("path", opts.WebP).Msg("Land mask image written")
	return nil
}
