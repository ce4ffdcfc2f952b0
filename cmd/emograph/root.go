package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abelbrown/emograph/internal/config"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/logging"
	"github.com/abelbrown/emograph/internal/store"
)

var version = "0.3.0"

var (
	configPath string
	dataDir    string
	dataURL    string
	dataType   string
	dataName   string
	noCache    bool
)

var rootCmd = &cobra.Command{
	Use:   "emograph",
	Short: "emograph replays emotion propagation as a live graph",
	Long: Brand.Sprint("emograph") + " replays comment -> reply emotion chains as an animated force graph\n" +
		Subtle.Sprint("Play datasets in the terminal, serve them over HTTP or export the frames"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("emograph {{ .Version }}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.emograph/config.toml)")
	pf.StringVar(&dataDir, "data-dir", "", "local dataset root")
	pf.StringVar(&dataURL, "url", "", "dataset web root, overrides --data-dir")
	pf.StringVarP(&dataType, "type", "t", "", "dataset type")
	pf.StringVarP(&dataName, "name", "n", "", "dataset name")
	pf.BoolVar(&noCache, "no-cache", false, "bypass the sqlite dataset cache")

	rootCmd.AddCommand(
		playCmd(),
		serveCmd(),
		exportCmd(),
		datasetsCmd(),
		cacheCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "emograph: %v\n", err)
		return err
	}
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if dataURL != "" {
		cfg.Data.URL = dataURL
	}
	if dataType != "" {
		cfg.Data.Type = dataType
	}
	if dataName != "" {
		cfg.Data.Name = dataName
	}
	if noCache {
		cfg.Data.CachePath = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSource builds the dataset source described by cfg. The returned store
// is nil when caching is disabled; callers close it when non-nil.
func openSource(cfg *config.Config) (dataset.Source, *store.Store, error) {
	var src dataset.Source
	if cfg.Data.URL != "" {
		hs := dataset.NewHTTPSource(cfg.Data.URL)
		hs.SetRateLimit(cfg.Data.RateLimit)
		src = hs
	} else {
		src = dataset.NewDirSource(cfg.Data.Dir)
	}

	if cfg.Data.CachePath == "" {
		return src, nil, nil
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	cs := dataset.NewCachedSource(src, st, cfg.CacheTTL())
	cs.SetLogger(logging.WithPrefix("cache"))
	return cs, st, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Data.CachePath == "" {
		return nil, fmt.Errorf("dataset cache disabled (data.cache_path is empty)")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Data.CachePath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	st, err := store.Open(cfg.Data.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return st, nil
}
