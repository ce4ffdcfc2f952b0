package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/config"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/logging"
	"github.com/abelbrown/emograph/internal/metrics"
	"github.com/abelbrown/emograph/internal/otel"
	"github.com/abelbrown/emograph/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots and playback control over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			logging.InitWriter(os.Stderr, level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logging.WithPrefix("serve")

	events, err := otel.NewFileLogger(filepath.Join(config.Dir(), "events.jsonl"))
	if err != nil {
		log.Warn("event log disabled", "err", err)
		events = otel.NewNullLogger()
	}
	defer events.Close()
	if !otel.TraceEnabled() {
		events.SetDiskLevel(otel.LevelInfo)
	}
	events.Info(otel.KindStartup, "main", "serve")

	src, st, err := openSource(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	player := anim.NewPlayer(anim.PlayerConfig{
		Interval: cfg.Interval(),
		Sink:     metrics.RecordSnapshot,
	})
	defer player.Close()

	srv := server.New(server.Config{
		Source:  src,
		Player:  player,
		Params:  cfg.ForceParams(),
		Weights: cfg.Weights(),
		Events:  events,
		Logger:  logging.WithPrefix("http"),
	})

	if name := initialDataset(ctx, src, cfg); name != "" {
		if _, err := srv.LoadDataset(ctx, cfg.Data.Type, name); err != nil {
			log.Warn("initial dataset", "type", cfg.Data.Type, "name", name, "err", err)
		}
	}
	if cfg.Playback.Autoplay {
		player.Play()
		metrics.SetPlaying(true)
	}

	err = srv.Run(ctx, cfg.Server.Addr)
	events.Info(otel.KindShutdown, "main", "serve")
	return err
}

// initialDataset returns the configured dataset name, or the first one of
// the configured type in the index.
func initialDataset(ctx context.Context, src dataset.Source, cfg *config.Config) string {
	if cfg.Data.Name != "" {
		return cfg.Data.Name
	}
	idx, err := src.Index(ctx)
	if err != nil {
		logging.Warn("index unavailable", "err", err)
		return ""
	}
	return idx.First(cfg.Data.Type)
}
