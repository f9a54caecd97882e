package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/woozymasta/farpoint/internal/config"
	"github.com/woozymasta/farpoint/internal/landmass"
	"github.com/woozymasta/farpoint/internal/logger"
	"github.com/woozymasta/farpoint/internal/render"
	"github.com/woozymasta/farpoint/internal/search"
	"github.com/woozymasta/farpoint/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string    `short:"c" long:"config"       env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	Dataset     string    `short:"d" long:"dataset"      env:"DATASET"      description:"Land polygons (.shp, .geojson); overrides config"`
	Steps       []float64 `short:"s" long:"step"         env:"STEPS" env-delim:"," description:"Pass step in degrees, repeatable; overrides config"`
	Workers     int       `short:"p" long:"workers"      env:"WORKERS"      description:"Rows swept in parallel (0 = one per CPU); overrides config"`
	CacheDir    string    `long:"cache-dir"              env:"CACHE_DIR"    description:"Land mask directory for the file backend; overrides config"`
	NoCache     bool      `long:"no-cache"                                  description:"Classify every cell without a land mask store"`
	GeoJSON     string    `short:"g" long:"geojson"                         description:"Write result as GeoJSON to this path"`
	Format      string    `short:"f" long:"format"                          description:"GeoJSON output format" choice:"json" choice:"yaml" default:"json"`
	SVG         string    `long:"svg"                                       description:"Write a minified SVG world plot to this path"`
	SVGWidth    int       `long:"svg-width"                                 description:"SVG width in pixels" default:"1440"`
	MetricsAddr string    `short:"m" long:"metrics-addr" env:"METRICS_ADDR" description:"Serve /metrics and /status on this address while running"`
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
	if len(opts.Steps) > 0 {
		cfg.Steps = opts.Steps
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.CacheDir != "" {
		cfg.Cache.Dir = opts.CacheDir
	}
	if opts.NoCache {
		cfg.Cache.Backend = config.BackendNone
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, opts, cfg)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("Search failed")
	}
}

// run owns every resource opened after configuration, so they are released
// before main exits, on errors too.
func run(ctx context.Context, opts Options, cfg *config.Config) error {
	polys, err := landmass.Load(cfg.Dataset)
	if err != nil {
		return err
	}
	land := landmass.NewClassifier(polys, cfg.Zone())

	store, closeStore, err := cfg.Cache.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open land mask store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("Failed to close land mask store")
		}
	}()

	status := server.NewServerContext(len(cfg.Steps))
	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           status.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", opts.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() { _ = srv.Close() }()

		log.Info().Str("addr", opts.MetricsAddr).Msg("Metrics server started")
	}

	opt := []search.Option{
		search.WithGrid(cfg.Grid),
		search.WithWorkers(cfg.Workers),
		search.WithPassHook(status.RecordPass),
	}
	if store != nil {
		opt = append(opt, search.WithStore(store))
	}

	log.Info().
		Str("dataset", cfg.Dataset).
		Int("polygons", land.Len()).
		Int("references", len(cfg.References)).
		Floats64("steps", cfg.Steps).
		Float64("seed", cfg.Seed).
		Str("cache", cfg.Cache.Backend).
		Msg("Starting search")

	searcher := search.New(cfg.Points(), land, opt...)

	best, _, err := searcher.Refine(ctx, cfg.Steps, cfg.Seed)
	if err != nil {
		return err
	}
	status.Finish(best)

	if !best.Found {
		log.Warn().Float64("seed", cfg.Seed).Msg("No water cell beat the seed distance")
	} else {
		log.Info().
			Str("farthest", best.Best.String()).
			Str("nearest", cfg.Label(best.Nearest)).
			Float64("distance_km", best.DistanceKm).
			Float64("step", best.Step).
			Msg("Farthest point found")
	}

	markers := make([]render.Marker, len(cfg.References))
	for i, r := range cfg.References {
		markers[i] = render.Marker{Name: r.Name, Point: r.Point()}
	}

	if opts.GeoJSON != "" {
		data, err := render.Encode(render.ResultGeoJSON(best, markers), opts.Format)
		if err != nil {
			return fmt.Errorf("encode GeoJSON: %w", err)
		}
		if err := writeFile(opts.GeoJSON, data); err != nil {
			return err
		}
		log.Info().Str("path", opts.GeoJSON).Msg("GeoJSON written")
	}

	if opts.SVG != "" {
		out, err := render.ResultSVG(best, markers, opts.SVGWidth)
		if err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
		if err := writeFile(opts.SVG, []byte(out)); err != nil {
			return err
		}
		log.Info().Str("path", opts.SVG).Msg("SVG written")
	}

	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
