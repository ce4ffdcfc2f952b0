package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/emograph/internal/config"
	"github.com/abelbrown/emograph/internal/coord"
	"github.com/abelbrown/emograph/internal/logging"
	"github.com/abelbrown/emograph/internal/otel"
	"github.com/abelbrown/emograph/internal/ui"
)

// ringSize is the number of events kept for the debug overlay.
const ringSize = 512

func playCmd() *cobra.Command {
	var paused bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play datasets in the terminal",
		Long:  "Open the interactive graph view. Press ? inside for key bindings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if paused {
				cfg.Playback.Autoplay = false
			}
			return runPlay(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	return cmd
}

func runPlay(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The TUI owns stdout, so logs go to a file
	if err := logging.Init(config.Dir()); err != nil {
		return err
	}
	defer logging.Close()
	log := logging.WithPrefix("play")

	events, err := otel.NewFileLogger(filepath.Join(config.Dir(), "events.jsonl"))
	if err != nil {
		log.Warn("event log disabled", "err", err)
		events = otel.NewNullLogger()
	}
	defer events.Close()
	ring := otel.NewRingBuffer(ringSize)
	if !otel.TraceEnabled() {
		events.SetDiskLevel(otel.LevelInfo)
	}
	events.SetRingBuffer(ring)
	events.Info(otel.KindStartup, "main", "play")

	src, st, err := openSource(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	prefetch := ""
	if cfg.Data.Prefetch && st != nil {
		prefetch = cfg.Data.Type
	}
	co := coord.New(coord.Config{
		Source:   src,
		Interval: cfg.Interval(),
		Autoplay: cfg.Playback.Autoplay,
		Prefetch: prefetch,
		Events:   events,
		Logger:   logging.WithPrefix("coord"),
	})
	defer co.Close()

	app := ui.NewApp(ui.AppConfig{
		LoadIndex:   co.LoadIndex,
		LoadDataset: co.LoadDataset,
		TogglePlay:  co.TogglePlay,
		Step:        co.Step,
		SetInterval: co.SetInterval,
		SetParams:   co.SetParams,

		DataType: cfg.Data.Type,
		Name:     cfg.Data.Name,
		Interval: cfg.Interval(),
		Playing:  cfg.Playback.Autoplay,
		Params:   cfg.ForceParams(),
		Weights:  cfg.Weights(),
		FPS:      cfg.UI.FPS,
		ShowHelp: cfg.UI.ShowHelp,
		Ring:     ring,
		Events:   events,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	co.Start(ctx, program)

	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	co.Wait()
	events.Info(otel.KindShutdown, "main", "play")
	log.Info("exited", "log", logging.Path())

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run program: %w", runErr)
	}
	return nil
}
