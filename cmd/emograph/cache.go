package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/emograph/internal/coord"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/logging"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local dataset cache",
	}

	cmd.AddCommand(
		cacheListCmd(),
		cachePurgeCmd(),
		cacheWarmCmd(),
		cacheRemoveCmd(),
	)
	return cmd
}

func cacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.ListDatasets()
			if err != nil {
				return err
			}

			Banner("cache")
			if len(entries) == 0 {
				Subtle.Println("  nothing cached")
				return nil
			}
			var total int
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				total += e.Size
				rows = append(rows, []string{e.DataType, e.Name, humanize.Bytes(uint64(e.Size)), humanize.Time(e.FetchedAt)})
			}
			Table([]string{"TYPE", "NAME", "SIZE", "FETCHED"}, rows)
			fmt.Printf("\n  %d datasets · %s · %s\n", len(entries), humanize.Bytes(uint64(total)), Subtle.Sprint(cfg.Data.CachePath))
			return nil
		},
	}
}

func cachePurgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached datasets older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if olderThan == 0 {
				olderThan = cfg.CacheTTL()
			}
			cutoff := time.Now().Add(-olderThan)
			n, err := st.Purge(cutoff)
			if err != nil {
				return err
			}
			Good.Printf("  %s purged %d datasets fetched before %s\n", StatusIcon(true), n, humanize.Time(cutoff))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff (default: cache TTL, everything when the TTL is 0)")
	return cmd
}

// refreshing re-downloads every dataset, replacing fresh cache entries.
type refreshing struct {
	*dataset.CachedSource
}

func (r refreshing) Load(ctx context.Context, dataType, name string) (*dataset.Graph, error) {
	return r.Refresh(ctx, dataType, name)
}

func cacheWarmCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Download every dataset of a type into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Data.CachePath == "" {
				return fmt.Errorf("dataset cache disabled (data.cache_path is empty)")
			}
			src, st, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			idx, err := src.Index(ctx)
			if err != nil {
				return err
			}
			names := idx.Names(cfg.Data.Type)
			if cs, ok := src.(*dataset.CachedSource); ok && refresh {
				src = refreshing{cs}
			}

			Banner("warming " + cfg.Data.Type)
			co := coord.New(coord.Config{Source: src, Logger: logging.WithPrefix("warm")})
			defer co.Close()

			start := time.Now()
			n, err := co.Prefetch(ctx, cfg.Data.Type, names)
			fmt.Printf("  %s %d/%d cached in %s\n", StatusIcon(err == nil), n, len(names), time.Since(start).Round(time.Millisecond))
			if err != nil {
				Bad.Printf("  %v\n", err)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-download datasets that are already cached")
	return cmd
}

func cacheRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove one cached dataset of --type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteDataset(cfg.Data.Type, args[0]); err != nil {
				return err
			}
			Good.Printf("  %s removed %s/%s\n", StatusIcon(true), cfg.Data.Type, args[0])
			return nil
		},
	}
}
