package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/tryon/internal/app"
	"github.com/ayusman/tryon/internal/asset"
	"github.com/ayusman/tryon/internal/capture"
	"github.com/ayusman/tryon/internal/config"
	"github.com/ayusman/tryon/internal/detector"
	"github.com/ayusman/tryon/internal/server"
	"github.com/ayusman/tryon/internal/store"
)

type serveOptions struct {
	addr     string
	assetDir string
	noCamera bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the preview server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath, root.envFile)
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.assetDir != "" {
				cfg.AssetDir = opts.assetDir
			}
			if opts.noCamera {
				cfg.Camera.Enabled = false
			}

			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			if root.verbose {
				level = log.DebugLevel
			}

			return serve(cmd.Context(), cfg, newLogger(os.Stderr, level))
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.assetDir, "assets", "", "hairstyle asset directory (overrides config)")
	cmd.Flags().BoolVar(&opts.noCamera, "no-camera", false, "disable camera snapshots")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()
	logger.Debug("store opened", "path", st.Path())

	catalog, err := asset.Load(cfg.AssetDir)
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	logger.Info("assets loaded", "dir", catalog.Dir(), "count", len(catalog.List()), "default", catalog.Default().ID)

	det := newDetector(cfg, logger)

	var snapshotter *capture.Snapshotter
	if cfg.Camera.Enabled {
		camera := capture.NewCamera(cfg.Camera.CameraConfig)
		defer camera.Close()

		snapCfg := cfg.Snapshot
		snapCfg.Logger = logger.WithPrefix("camera")
		snapshotter = capture.NewSnapshotter(camera, snapCfg)
	}

	a, err := app.New(app.Config{
		Catalog:     catalog,
		Detector:    det,
		Store:       st,
		Snapshotter: snapshotter,
		Placement:   cfg.Placement,
		Interaction: cfg.Interaction,
		Logger:      logger,
	})
	if err != nil {
		det.Close()
		return err
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		logger.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		App:         a,
		StaticDir:   staticDir,
		PreviewFPS:  cfg.Server.PreviewFPS,
		JPEGQuality: cfg.Server.JPEGQuality,
		Logger:      logger,
	})

	appCtx, stop := context.WithCancel(ctx)
	defer stop()
	a.Start(appCtx)

	g, gctx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})

	err = g.Wait()
	stop()
	if cerr := a.Close(); cerr != nil {
		logger.Warn("closing detector", "err", cerr)
	}
	logger.Info("stopped")
	return err
}

// newDetector returns the FaceMesh detector, or a failed placeholder when
// the service script cannot be found so the server still runs for manual
// placement.
func newDetector(cfg config.Config, logger *log.Logger) detector.Detector {
	dcfg := detector.DefaultConfig()
	dcfg.Script = cfg.Detector.Script
	dcfg.Python = cfg.Detector.Python
	dcfg.MinConfidence = cfg.Detector.MinConfidence
	dcfg.IdleTimeout = cfg.Detector.IdleTimeout.Duration

	det, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		logger.Warn("face detection unavailable, overlay must be placed by hand", "err", err)
		mock := detector.NewMockDetector()
		mock.SetLoadError(err)
		return mock
	}
	return det
}
