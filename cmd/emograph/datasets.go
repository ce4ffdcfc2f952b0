package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/emograph/internal/palette"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ls"},
		Short:   "List the datasets in the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src, st, err := openSource(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			idx, err := src.Index(cmd.Context())
			if err != nil {
				return err
			}

			Banner("datasets")
			types := idx.Types()
			if dataType != "" {
				types = []string{dataType}
			}
			var rows [][]string
			for _, t := range types {
				names := idx.Names(t)
				rows = append(rows, []string{t, strconv.Itoa(len(names)), previewNames(names, 3)})
			}
			if len(rows) == 0 {
				Warn.Println("  index is empty")
				return nil
			}
			Table([]string{"TYPE", "COUNT", "DATASETS"}, rows)
			return nil
		},
	}

	cmd.AddCommand(datasetsInfoCmd())
	return cmd
}

func datasetsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Summarise one dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src, st, err := openSource(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			g, err := src.Load(cmd.Context(), cfg.Data.Type, args[0])
			if err != nil {
				return err
			}

			Banner(cfg.Data.Type + "/" + args[0])
			fmt.Printf("  %s %s\n", Subtle.Sprint("nodes: "), humanize.Comma(int64(len(g.Nodes))))
			fmt.Printf("  %s %s\n", Subtle.Sprint("frames:"), humanize.Comma(int64(len(g.Frames))))
			fmt.Printf("  %s %s\n", Subtle.Sprint("events:"), humanize.Comma(int64(g.EventCount())))
			if !g.Empty() {
				first, last := g.Frames[len(g.Frames)-1].Timestamp, g.Frames[0].Timestamp
				fmt.Printf("  %s days %d .. %d\n", Subtle.Sprint("span:  "), first, last)
			}
			fmt.Println()

			var rows [][]string
			for _, n := range g.Nodes {
				label := n.Label
				if label == "" {
					label = n.ID
				}
				rows = append(rows, []string{n.ID, label, palette.English(label), palette.BaseColor(label).Hex()})
			}
			Table([]string{"ID", "LABEL", "EMOTION", "COLOR"}, rows)
			return nil
		},
	}
}

// previewNames joins the first n names and notes how many were left out.
func previewNames(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(names[:n], ", "), len(names)-n)
}
